package compose

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"

	"bxc/utils/debug"
)

// String returns a readable outline of a projection result. It exists
// solely for manual inspection and debug reports.
func (r *Result) String() string {
	if r == nil {
		return "<nil Result>"
	}
	tw := debug.NewTreeWriter()

	tw.Line(0, "Footnotes: %d", len(r.Footnotes))
	for i, fn := range r.Footnotes {
		tw.Line(1, "Footnote[%d] id[%q]", i+1, fn.ID)
		tw.TextBlock(2, "content", fn.Content)
	}

	tw.Line(0, "Attachments: %d", len(r.Attachments))
	names := slices.Collect(maps.Keys(r.Attachments))
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		tw.Line(1, "Attachment[%q] size[%d]", name, len(r.Attachments[name]))
	}

	tw.Line(0, "Skipped blocks: %d", len(r.Skipped))
	for _, s := range r.Skipped {
		tw.Line(1, "Block[%d] style[%q] reason[%v]", s.ID, s.Style, s.Err)
	}

	if r.Doc != nil && r.Doc.Root() != nil {
		tw.Line(0, "Tree:")
		outlineElement(tw, r.Doc.Root(), 1)
	}
	return tw.String()
}

func outlineElement(tw *debug.TreeWriter, el *etree.Element, depth int) {
	attrs := ""
	for _, a := range el.Attr {
		attrs += " " + a.FullKey() + "=" + a.Value
	}
	tw.Line(depth, "<%s>%s", el.Tag, attrs)
	if text := strings.TrimSpace(el.Text()); text != "" {
		tw.TextBlock(depth+1, "text", text)
	}
	for _, child := range el.ChildElements() {
		outlineElement(tw, child, depth+1)
	}
}
