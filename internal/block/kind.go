// Package block defines the content blocks a page is made of.
package block

import "sort"

// Kind is the discriminant that decides how a block is edited and rendered.
type Kind string

const (
	KindText      Kind = "text"
	KindHeading1  Kind = "heading1"
	KindHeading2  Kind = "heading2"
	KindHeading3  Kind = "heading3"
	KindHeading4  Kind = "heading4"
	KindHeading5  Kind = "heading5"
	KindHeading6  Kind = "heading6"
	KindTodo      Kind = "todo"
	KindBullet    Kind = "bullet"
	KindNumber    Kind = "number"
	KindQuote     Kind = "quote"
	KindDivider   Kind = "divider"
	KindToggle    Kind = "toggle"
	KindCode      Kind = "code"
	KindCallout   Kind = "callout"
	KindImage     Kind = "image"
	KindFile      Kind = "file"
	KindPageEmbed Kind = "page"
	KindPageLink  Kind = "link_to_page"
)

// Traits is the per-kind edit and render contract. Every kind has exactly one
// row in the registry; shorthand triggers and styles live in the same row.
type Traits struct {
	Label       string
	Placeholder string
	Style       string
	Triggers    []string
	Text        bool
	ListLike    bool
	Level       int
}

var registry = map[Kind]Traits{
	KindText:      {Label: "Text", Placeholder: "Type '/' for commands", Style: "block-text", Text: true},
	KindHeading1:  {Label: "Heading 1", Placeholder: "Heading 1", Style: "block-h1", Triggers: []string{"#"}, Text: true, Level: 1},
	KindHeading2:  {Label: "Heading 2", Placeholder: "Heading 2", Style: "block-h2", Triggers: []string{"##"}, Text: true, Level: 2},
	KindHeading3:  {Label: "Heading 3", Placeholder: "Heading 3", Style: "block-h3", Triggers: []string{"###"}, Text: true, Level: 3},
	KindHeading4:  {Label: "Heading 4", Placeholder: "Heading 4", Style: "block-h4", Triggers: []string{"####"}, Text: true, Level: 4},
	KindHeading5:  {Label: "Heading 5", Placeholder: "Heading 5", Style: "block-h5", Triggers: []string{"#####"}, Text: true, Level: 5},
	KindHeading6:  {Label: "Heading 6", Placeholder: "Heading 6", Style: "block-h6", Triggers: []string{"######"}, Text: true, Level: 6},
	KindTodo:      {Label: "To-do list", Placeholder: "To-do", Style: "block-todo", Triggers: []string{"[]"}, Text: true, ListLike: true},
	KindBullet:    {Label: "Bulleted list", Placeholder: "List", Style: "block-bullet", Triggers: []string{"-", "*"}, Text: true, ListLike: true},
	KindNumber:    {Label: "Numbered list", Placeholder: "List", Style: "block-number", Triggers: []string{"1."}, Text: true, ListLike: true},
	KindQuote:     {Label: "Quote", Placeholder: "Quote", Style: "block-quote", Triggers: []string{">"}, Text: true},
	KindDivider:   {Label: "Divider", Style: "block-divider", Triggers: []string{"---"}},
	KindToggle:    {Label: "Toggle list", Placeholder: "Toggle", Style: "block-toggle", Text: true, ListLike: true},
	KindCode:      {Label: "Code", Placeholder: "Code", Style: "block-code", Triggers: []string{"```"}, Text: true},
	KindCallout:   {Label: "Callout", Placeholder: "Callout", Style: "block-callout", Text: true},
	KindImage:     {Label: "Image", Style: "block-image"},
	KindFile:      {Label: "File", Style: "block-file"},
	KindPageEmbed: {Label: "Page", Style: "block-page"},
	KindPageLink:  {Label: "Link to page", Style: "block-page-link"},
}

var menuOrder = []Kind{
	KindText,
	KindHeading1, KindHeading2, KindHeading3, KindHeading4, KindHeading5, KindHeading6,
	KindTodo, KindBullet, KindNumber, KindToggle,
	KindQuote, KindCallout, KindCode, KindDivider,
	KindImage, KindFile,
	KindPageEmbed, KindPageLink,
}

// Kinds returns every kind in command-menu order.
func Kinds() []Kind {
	out := make([]Kind, len(menuOrder))
	copy(out, menuOrder)
	return out
}

// Lookup returns the registry row for k.
func Lookup(k Kind) (Traits, bool) {
	t, ok := registry[k]
	return t, ok
}

func (k Kind) Valid() bool {
	_, ok := registry[k]
	return ok
}

func (k Kind) Label() string { return registry[k].Label }

func (k Kind) Style() string { return registry[k].Style }

func (k Kind) Placeholder() string { return registry[k].Placeholder }

// HasText reports whether the kind carries user-editable content.
func (k Kind) HasText() bool { return registry[k].Text }

// ListLike kinds continue as the same kind when the block is split.
func (k Kind) ListLike() bool { return registry[k].ListLike }

// HeadingLevel returns 1..6 for headings and 0 for everything else.
func (k Kind) HeadingLevel() int { return registry[k].Level }

func (k Kind) IsHeading() bool { return registry[k].Level > 0 }

// IsPageRef reports whether blocks of this kind point at another page.
func (k Kind) IsPageRef() bool { return k == KindPageEmbed || k == KindPageLink }

// Heading returns the heading kind for level, clamped to 1..6.
func Heading(level int) Kind {
	switch {
	case level <= 1:
		return KindHeading1
	case level == 2:
		return KindHeading2
	case level == 3:
		return KindHeading3
	case level == 4:
		return KindHeading4
	case level == 5:
		return KindHeading5
	default:
		return KindHeading6
	}
}

// Trigger maps a shorthand token to the kind it converts into.
type Trigger struct {
	Token string
	Kind  Kind
}

var triggers = buildTriggers()

func buildTriggers() []Trigger {
	var out []Trigger
	for _, kind := range menuOrder {
		for _, token := range registry[kind].Triggers {
			out = append(out, Trigger{Token: token, Kind: kind})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Token) > len(out[j].Token)
	})
	return out
}

// Triggers returns the shorthand table, longest token first.
func Triggers() []Trigger {
	out := make([]Trigger, len(triggers))
	copy(out, triggers)
	return out
}
