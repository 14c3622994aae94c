package block

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Inline rich content handling. The editing surface stores block content as
// an HTML fragment. Only bold, italic and footnote references survive the
// translation to the neutral inline set shared by both output schemas -
// everything else is stripped to its text.

type SegmentKind int

const (
	SegText SegmentKind = iota
	SegBold
	SegItalic
	SegFootnoteRef
)

// Segment is one node of parsed inline content. Text is set for SegText,
// FnID/FnContent for SegFootnoteRef, Children for bold/italic.
type Segment struct {
	Kind      SegmentKind
	Text      string
	FnID      string
	FnContent string
	Children  []Segment
}

const (
	attrFnID      = "data-fn-id"
	attrFnContent = "data-fn-content"
)

// ParseInline converts an HTML fragment into neutral inline segments.
// Unknown markup contributes its text only. The parser never fails on
// malformed input - it follows the same recovery rules the editing surface
// itself uses.
func ParseInline(content string) ([]Segment, error) {
	if content == "" {
		return nil, nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return nil, fmt.Errorf("inline content: %w", err)
	}
	var segs []Segment
	for _, n := range nodes {
		segs = append(segs, parseInlineNode(n)...)
	}
	return segs, nil
}

func parseInlineNode(n *html.Node) []Segment {
	switch n.Type {
	case html.TextNode:
		if n.Data == "" {
			return nil
		}
		return []Segment{{Kind: SegText, Text: n.Data}}
	case html.ElementNode:
		if id := attrVal(n, attrFnID); id != "" {
			return []Segment{{
				Kind:      SegFootnoteRef,
				FnID:      id,
				FnContent: attrVal(n, attrFnContent),
			}}
		}
		children := parseInlineChildren(n)
		switch n.DataAtom {
		case atom.B, atom.Strong:
			return []Segment{{Kind: SegBold, Children: children}}
		case atom.I, atom.Em:
			return []Segment{{Kind: SegItalic, Children: children}}
		default:
			// unwrap anything else
			return children
		}
	default:
		return nil
	}
}

func parseInlineChildren(n *html.Node) []Segment {
	var segs []Segment
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		segs = append(segs, parseInlineNode(c)...)
	}
	return segs
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// RegisterFootnotes walks segments adding discovered footnotes to the
// collector in appearance order.
func RegisterFootnotes(segs []Segment, fns *Footnotes) {
	for _, s := range segs {
		if s.Kind == SegFootnoteRef {
			fns.Add(s.FnID, s.FnContent)
			continue
		}
		RegisterFootnotes(s.Children, fns)
	}
}

// PlainText flattens segments to their text content. Footnote references
// contribute nothing.
func PlainText(segs []Segment) string {
	var sb strings.Builder
	plainText(segs, &sb)
	return sb.String()
}

func plainText(segs []Segment, sb *strings.Builder) {
	for _, s := range segs {
		if s.Kind == SegText {
			sb.WriteString(s.Text)
			continue
		}
		plainText(s.Children, sb)
	}
}

// TextLen returns segment text length in runes - the content units
// pagination splits operate on.
func TextLen(segs []Segment) int {
	n := 0
	for _, s := range segs {
		if s.Kind == SegText {
			n += len([]rune(s.Text))
			continue
		}
		n += TextLen(s.Children)
	}
	return n
}

// SplitAt splits segments at a rune offset of their flattened text,
// closing and reopening formatting around the cut so both halves stay well
// formed. A zero length footnote reference sitting exactly on the cut goes
// to the right half together with the text it annotates.
func SplitAt(segs []Segment, offset int) (left, right []Segment) {
	rest := offset
	for i, s := range segs {
		if rest <= 0 {
			right = append(right, segs[i:]...)
			return left, right
		}
		n := segLen(s)
		if n <= rest {
			left = append(left, s)
			rest -= n
			continue
		}
		// cut lands inside this segment
		l, r := splitSegment(s, rest)
		if l != nil {
			left = append(left, *l)
		}
		if r != nil {
			right = append(right, *r)
		}
		right = append(right, segs[i+1:]...)
		return left, right
	}
	return left, right
}

func segLen(s Segment) int {
	if s.Kind == SegText {
		return len([]rune(s.Text))
	}
	return TextLen(s.Children)
}

func splitSegment(s Segment, offset int) (*Segment, *Segment) {
	if s.Kind == SegText {
		runes := []rune(s.Text)
		l := Segment{Kind: SegText, Text: string(runes[:offset])}
		r := Segment{Kind: SegText, Text: string(runes[offset:])}
		return &l, &r
	}
	lc, rc := SplitAt(s.Children, offset)
	var l, r *Segment
	if len(lc) > 0 {
		l = &Segment{Kind: s.Kind, Children: lc}
	}
	if len(rc) > 0 {
		r = &Segment{Kind: s.Kind, Children: rc}
	}
	return l, r
}

// SerializeHTML renders segments back into the markup dialect of the
// editing surface. Inverse of ParseInline up to markup normalization.
func SerializeHTML(segs []Segment) string {
	var sb strings.Builder
	serializeHTML(segs, &sb)
	return sb.String()
}

func serializeHTML(segs []Segment, sb *strings.Builder) {
	for _, s := range segs {
		switch s.Kind {
		case SegText:
			sb.WriteString(html.EscapeString(s.Text))
		case SegBold:
			sb.WriteString("<b>")
			serializeHTML(s.Children, sb)
			sb.WriteString("</b>")
		case SegItalic:
			sb.WriteString("<i>")
			serializeHTML(s.Children, sb)
			sb.WriteString("</i>")
		case SegFootnoteRef:
			sb.WriteString(`<sup ` + attrFnID + `="` + html.EscapeString(s.FnID) + `"`)
			if s.FnContent != "" {
				sb.WriteString(` ` + attrFnContent + `="` + html.EscapeString(s.FnContent) + `"`)
			}
			sb.WriteString(`></sup>`)
		}
	}
}
