package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var importParent string

var importCmd = &cobra.Command{
	Use:   "import <workspace> <glob>...",
	Short: "Create pages from Markdown files",
	Long: `Each matching file becomes a new page. Patterns support ** so a whole
notes directory can be pulled in with "notes/**/*.md".`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaceID := args[0]
		var files []string
		seen := map[string]bool{}
		for _, pattern := range args[1:] {
			matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					files = append(files, m)
				}
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no files match %v", args[1:])
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		for _, file := range files {
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			page, err := rt.service.ImportMarkdown(ctx, workspaceID, importParent, filepath.Base(file), src)
			if err != nil {
				logger.Error().Err(err).Str("file", file).Msg("import")
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", page.ID, file)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importParent, "parent", "", "Page to nest the imported pages under")
	rootCmd.AddCommand(importCmd)
}
