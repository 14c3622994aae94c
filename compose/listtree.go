package compose

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"bxc/block"
)

// List tree building. A contiguous run of blocks sharing one list style is
// grouped into nested list elements using per block indentation levels. A
// sub-list always nests inside the enclosing list-item, never beside it.

type openList struct {
	el    *etree.Element
	level int
}

// appendListTree converts one run into list trees appended under parent.
// The first block of a run always opens a fresh root list regardless of its
// level (the sentinel sits below every real level).
func (p *Projector) appendListTree(parent *etree.Element, run []block.Block, def block.StyleDefinition, st *walkState) {
	var stack []openList

	topLevel := func() int {
		if len(stack) == 0 {
			return -1
		}
		return stack[len(stack)-1].level
	}

	for _, b := range run {
		level := b.Level
		if level < 0 {
			level = 0
		}

		for len(stack) > 0 && level < stack[len(stack)-1].level {
			stack = stack[:len(stack)-1]
		}

		if level > topLevel() {
			host := parent
			if len(stack) > 0 {
				// nest inside the last item of the enclosing list
				enclosing := stack[len(stack)-1].el
				item := lastChildElement(enclosing)
				if item == nil || item.Tag != "list-item" {
					// a list cannot open before its first item, repair and complain
					p.Log.Warn("List run opens sub-list before any item", zap.Int("block", b.ID), zap.Int("level", level))
					item = enclosing.CreateElement("list-item")
				}
				host = item
			}
			list := host.CreateElement("list")
			applyListAttrs(list, listAttrsFor(b, def))
			stack = append(stack, openList{el: list, level: level})
		}

		item := stack[len(stack)-1].el.CreateElement("list-item")
		para := item.CreateElement(def.Tag.Get(p.Format))
		p.appendInline(para, b, st)
	}
}

// listAttrsFor merges per block ordering attributes over style defaults.
func listAttrsFor(b block.Block, def block.StyleDefinition) block.ListAttributes {
	var attrs block.ListAttributes
	if def.ListDefaults != nil {
		attrs = *def.ListDefaults
	}
	if b.List != nil {
		if b.List.Type != "" {
			attrs.Type = b.List.Type
		}
		if b.List.Start != 0 {
			attrs.Start = b.List.Start
		}
		if b.List.Reversed {
			attrs.Reversed = true
		}
	}
	return attrs
}

func applyListAttrs(list *etree.Element, attrs block.ListAttributes) {
	if attrs.Type != "" {
		list.CreateAttr("list-type", attrs.Type)
	}
	if attrs.Start > 1 {
		list.CreateAttr("start", strconv.Itoa(attrs.Start))
	}
	if attrs.Reversed {
		list.CreateAttr("reversed", "yes")
	}
}
