package compose

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"bxc/block"
)

// buildTable projects a table block into a table-wrap subtree. A malformed
// payload skips the block but never aborts projection.
func (p *Projector) buildTable(parent *etree.Element, b block.Block, def block.StyleDefinition, st *walkState) {
	td, err := block.ParseTableData(b.Content)
	if err != nil {
		p.skip(st, b, err)
		return
	}

	wrap := parent.CreateElement(def.Tag.Get(p.Format))
	wrap.CreateAttr("id", "table-"+strconv.Itoa(b.ID))
	if td.Caption != "" {
		wrap.CreateElement("caption").CreateElement("p").SetText(td.Caption)
	}

	tbl := wrap.CreateElement("table")
	width := 0
	for ri, row := range td.Rows {
		if width == 0 {
			width = len(row)
		} else if len(row) != width {
			// rows must stay rectangular counting hidden placeholders
			p.Log.Warn("Table row is not rectangular", zap.Int("id", b.ID), zap.Int("row", ri), zap.Int("want", width), zap.Int("got", len(row)))
		}
		tr := tbl.CreateElement("tr")
		for _, cell := range row {
			if cell.Hidden {
				// placeholder occupied by a span from an earlier cell
				continue
			}
			tag := "td"
			if cell.Header {
				tag = "th"
			}
			el := tr.CreateElement(tag)
			if cell.ColSpan > 1 {
				el.CreateAttr("colspan", strconv.Itoa(cell.ColSpan))
			}
			if cell.RowSpan > 1 {
				el.CreateAttr("rowspan", strconv.Itoa(cell.RowSpan))
			}
			cb := b
			cb.Content = cell.Content
			p.appendInline(el, cb, st)
		}
	}
}
