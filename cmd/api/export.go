package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <workspace> <page>",
	Short: "Write a page to a file as html, md, pdf or docx",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		result, err := rt.service.ExportPage(ctx, args[0], args[1], exportFormat)
		if err != nil {
			return err
		}
		target := exportOut
		if target == "" {
			target = result.Filename
		} else if info, err := os.Stat(target); err == nil && info.IsDir() {
			target = filepath.Join(target, result.Filename)
		}
		if err := os.WriteFile(target, result.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Output format: html, md, pdf or docx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory (default: derived from the title)")
	rootCmd.AddCommand(exportCmd)
}
