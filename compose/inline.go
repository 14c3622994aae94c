package compose

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"bxc/block"
)

// Inline content materialization. Parsed segments become neutral elements
// shared by both schemas: bold, italic and xref. Text escaping is left to
// the serializer so structural tags are never escaped by accident.

func (p *Projector) appendInline(el *etree.Element, b block.Block, st *walkState) {
	segs, err := block.ParseInline(b.Content)
	if err != nil {
		// keep the text, lose the formatting
		p.Log.Warn("Unable to parse inline content", zap.Int("id", b.ID), zap.Error(err))
		el.SetText(b.Content)
		return
	}
	block.RegisterFootnotes(segs, st.fns)
	materializeSegments(el, segs)
}

func materializeSegments(el *etree.Element, segs []block.Segment) {
	for _, s := range segs {
		switch s.Kind {
		case block.SegText:
			el.CreateText(s.Text)
		case block.SegBold:
			materializeSegments(el.CreateElement("bold"), s.Children)
		case block.SegItalic:
			materializeSegments(el.CreateElement("italic"), s.Children)
		case block.SegFootnoteRef:
			xref := el.CreateElement("xref")
			xref.CreateAttr("ref-type", "fn")
			xref.CreateAttr("rid", "fn-"+s.FnID)
		}
	}
}

// stampFootnoteRefs sets the visible number on every footnote cross
// reference. The number is the footnote's position in first appearance
// order across the entire document.
func stampFootnoteRefs(root *etree.Element, fns *block.Footnotes) {
	if root == nil {
		return
	}
	for _, xref := range root.FindElements("//xref[@ref-type='fn']") {
		id := xref.SelectAttrValue("rid", "")
		if len(id) > 3 {
			id = id[3:] // drop "fn-" prefix
		}
		if n := fns.Number(id); n > 0 {
			xref.SetText(strconv.Itoa(n))
		}
	}
}

// appendFootnoteGroup emits collected footnotes into the back matter in
// first appearance order. Nothing is emitted for a document without
// footnotes.
func appendFootnoteGroup(back *etree.Element, fns *block.Footnotes) {
	all := fns.All()
	if len(all) == 0 {
		return
	}
	group := back.CreateElement("fn-group")
	for i, fn := range all {
		el := group.CreateElement("fn")
		el.CreateAttr("id", "fn-"+fn.ID)
		el.CreateElement("label").SetText(strconv.Itoa(i + 1))
		el.CreateElement("p").SetText(fn.Content)
	}
}
