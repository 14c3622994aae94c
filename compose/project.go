// Package compose turns the flat block sequence into nested schema XML:
// structural projection, list grouping, inline formatting, rendering and
// export packaging.
package compose

import (
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"bxc/block"
	"bxc/common"
	"bxc/config"
)

const xlinkNS = "http://www.w3.org/1999/xlink"

// SkippedBlock describes a block left out of the projection and why.
type SkippedBlock struct {
	ID    int
	Style string
	Err   error
}

// Result is the outcome of one projection pass.
type Result struct {
	Doc         *etree.Document
	Footnotes   []block.Footnote
	Attachments map[string][]byte
	Skipped     []SkippedBlock
}

// Projector builds the export tree for one output format. It never mutates
// the document snapshot - all state lives in the Result.
type Projector struct {
	Format   common.OutputFmt
	Registry *block.Registry
	Images   config.ImagesConfig
	Log      *zap.Logger
}

type frame struct {
	el    *etree.Element
	level int
}

type walkState struct {
	res *Result
	fns *block.Footnotes
}

// Project walks the block sequence and produces the nested element tree
// for the configured format together with collected footnotes and binary
// attachments.
func (p *Projector) Project(doc *block.Document) (*Result, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("no style registry")
	}

	res := &Result{Attachments: make(map[string][]byte)}
	st := &walkState{res: res, fns: &block.Footnotes{}}

	blocks := block.StripPageBreaks(doc.Blocks)
	if len(blocks) != len(doc.Blocks) {
		// markers are pagination artifacts, they have no place in the export
		p.Log.Debug("Dropped page break markers before projection", zap.Int("count", len(doc.Blocks)-len(blocks)))
	}
	front, body, back := p.partition(blocks)

	xdoc := etree.NewDocument()
	xdoc.WriteSettings = etree.WriteSettings{CanonicalText: true, CanonicalAttrVal: true}
	xdoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	switch p.Format {
	case common.OutputFmtJATS:
		p.buildArticle(xdoc, doc.Meta, front, body, back, st)
	case common.OutputFmtBITS:
		p.buildBook(xdoc, doc.Meta, front, body, back, st)
	default:
		return nil, fmt.Errorf("unsupported output format %d", p.Format)
	}

	stampFootnoteRefs(xdoc.Root(), st.fns)
	res.Doc = xdoc
	res.Footnotes = st.fns.All()
	return res, nil
}

// partition splits blocks by matter class. Chapter headings belong to the
// body - the book schema groups them later. Blocks with unknown styles stay
// in the body partition so the walk can report them once.
func (p *Projector) partition(blocks []block.Block) (front, body, back []block.Block) {
	for _, b := range blocks {
		def, ok := p.Registry.Lookup(b.Style)
		if !ok {
			body = append(body, b)
			continue
		}
		switch def.Matter {
		case block.MatterFront:
			front = append(front, b)
		case block.MatterBack:
			back = append(back, b)
		default:
			body = append(body, b)
		}
	}
	return front, body, back
}

func (p *Projector) buildArticle(xdoc *etree.Document, meta block.DocumentMeta, front, body, back []block.Block, st *walkState) {
	xdoc.CreateDirective(`DOCTYPE article PUBLIC "-//NLM//DTD JATS (Z39.96) Journal Publishing DTD v1.3 20210610//EN" "JATS-journalpublishing1-3.dtd"`)

	root := xdoc.CreateElement("article")
	root.CreateAttr("xmlns:xlink", xlinkNS)
	root.CreateAttr("article-type", "research-article")
	if tag := meta.LanguageTag(p.Log); tag != language.Und {
		root.CreateAttr("xml:lang", tag.String())
	}

	frontEl := root.CreateElement("front")
	artMeta := frontEl.CreateElement("article-meta")
	id := artMeta.CreateElement("article-id")
	id.CreateAttr("pub-id-type", "publisher-id")
	id.SetText(meta.ID)
	p.walk(artMeta, front, -1, st)
	p.fillMetaDefaults(artMeta, meta, "article-title")

	bodyEl := root.CreateElement("body")
	p.walk(bodyEl, body, -1, st)

	backEl := root.CreateElement("back")
	p.walk(backEl, back, -1, st)
	appendFootnoteGroup(backEl, st.fns)
}

func (p *Projector) buildBook(xdoc *etree.Document, meta block.DocumentMeta, front, body, back []block.Block, st *walkState) {
	xdoc.CreateDirective(`DOCTYPE book PUBLIC "-//NLM//DTD BITS Book Interchange DTD v2.1 20220202//EN" "BITS-book2-1.dtd"`)

	root := xdoc.CreateElement("book")
	root.CreateAttr("xmlns:xlink", xlinkNS)
	if tag := meta.LanguageTag(p.Log); tag != language.Und {
		root.CreateAttr("xml:lang", tag.String())
	}

	bookMeta := root.CreateElement("book-meta")
	id := bookMeta.CreateElement("book-id")
	id.CreateAttr("book-id-type", "publisher-id")
	id.SetText(meta.ID)
	p.walk(bookMeta, front, -1, st)
	p.fillMetaDefaults(bookMeta, meta, "book-title")

	bodyEl := root.CreateElement("book-body")
	pre, chapters := p.splitChapters(body)
	p.walk(bodyEl, pre, -1, st)
	for _, ch := range chapters {
		p.buildChapter(bodyEl, ch, st)
	}

	backEl := root.CreateElement("book-back")
	p.walk(backEl, back, -1, st)
	appendFootnoteGroup(backEl, st.fns)
}

// chapter is one top level chapter group of the book schema: the chapter
// heading plus every block up to the next chapter heading.
type chapter struct {
	heading block.Block
	def     block.StyleDefinition
	rest    []block.Block
}

// splitChapters groups body blocks so that every block following (and
// including) a chapter classed heading starts a new chapter. Blocks before
// the first chapter heading remain ungrouped body content.
func (p *Projector) splitChapters(body []block.Block) (pre []block.Block, chapters []chapter) {
	cur := -1
	for _, b := range body {
		def, ok := p.Registry.Lookup(b.Style)
		if ok && def.Matter == block.MatterChap && def.IsHeading() {
			chapters = append(chapters, chapter{heading: b, def: def})
			cur = len(chapters) - 1
			continue
		}
		if cur < 0 {
			pre = append(pre, b)
			continue
		}
		chapters[cur].rest = append(chapters[cur].rest, b)
	}
	return pre, chapters
}

func (p *Projector) buildChapter(parent *etree.Element, ch chapter, st *walkState) {
	tag := ch.def.WrapperTag(p.Format)
	if tag == "" {
		tag = "book-part"
	}
	part := parent.CreateElement(tag)
	part.CreateAttr("book-part-type", "chapter")
	for k, v := range ch.def.Attributes {
		part.CreateAttr(k, v)
	}

	title := part.CreateElement(ch.def.Tag.Get(p.Format))
	p.appendInline(title, ch.heading, st)

	// the chapter heading owns the whole group, deeper headings nest inside
	level := 0
	if ch.def.HeadingLevel != nil {
		level = *ch.def.HeadingLevel
	}
	p.walk(part, ch.rest, level, st)
}

// walk is the heading-driven section nesting pass. rootLevel is the heading
// level already consumed by the walk root (-1 for none - the sentinel below
// every real level).
func (p *Projector) walk(parent *etree.Element, blocks []block.Block, rootLevel int, st *walkState) {
	stack := []frame{{el: parent, level: rootLevel}}
	top := func() *frame { return &stack[len(stack)-1] }

	for i := 0; i < len(blocks); {
		b := blocks[i]
		def, ok := p.Registry.Lookup(b.Style)
		if !ok {
			p.skip(st, b, fmt.Errorf("style %q not in registry", b.Style))
			i++
			continue
		}

		if def.IsList() {
			j := i
			for j < len(blocks) && blocks[j].Style == b.Style {
				j++
			}
			p.appendListTree(top().el, blocks[i:j], def, st)
			i = j
			continue
		}

		switch {
		case def.Kind == block.KindTable:
			p.buildTable(top().el, b, def, st)

		case def.Kind == block.KindImage:
			p.buildFigure(top().el, b, def, st)

		case def.IsHeading():
			level := *def.HeadingLevel
			for len(stack) > 1 && level <= top().level {
				stack = stack[:len(stack)-1]
			}
			wtag := def.WrapperTag(p.Format)
			if wtag == "" {
				wtag = "sec"
			}
			sec := top().el.CreateElement(wtag)
			for k, v := range def.Attributes {
				sec.CreateAttr(k, v)
			}
			stack = append(stack, frame{el: sec, level: level})
			title := sec.CreateElement(def.Tag.Get(p.Format))
			p.appendInline(title, b, st)

		case def.WrapperTag(p.Format) != "":
			// consecutive blocks sharing a wrapper tag share one wrapper
			wtag := def.WrapperTag(p.Format)
			wrap := lastChildElement(top().el)
			if wrap == nil || wrap.Tag != wtag {
				wrap = top().el.CreateElement(wtag)
			}
			el := wrap.CreateElement(def.Tag.Get(p.Format))
			p.appendInline(el, b, st)

		default:
			el := top().el.CreateElement(def.Tag.Get(p.Format))
			p.appendInline(el, b, st)
		}
		i++
	}
}

func (p *Projector) skip(st *walkState, b block.Block, err error) {
	p.Log.Warn("Skipping block", zap.Int("id", b.ID), zap.String("style", b.Style), zap.Error(err))
	st.res.Skipped = append(st.res.Skipped, SkippedBlock{ID: b.ID, Style: b.Style, Err: err})
}

// fillMetaDefaults supplies title and contributor groups from document
// metadata when no front matter blocks provided them.
func (p *Projector) fillMetaDefaults(meta *etree.Element, dm block.DocumentMeta, titleTag string) {
	groupTag := "title-group"
	if p.Format == common.OutputFmtBITS {
		groupTag = "book-title-group"
	}
	if meta.SelectElement(groupTag) == nil && dm.Title != "" {
		meta.CreateElement(groupTag).CreateElement(titleTag).SetText(dm.Title)
	}
	if meta.SelectElement("contrib-group") == nil && len(dm.Authors) > 0 {
		cg := meta.CreateElement("contrib-group")
		for _, a := range dm.Authors {
			contrib := cg.CreateElement("contrib")
			contrib.CreateAttr("contrib-type", "author")
			contrib.CreateElement("string-name").SetText(a)
		}
	}
	if meta.SelectElement("kwd-group") == nil && len(dm.Keywords) > 0 {
		kg := meta.CreateElement("kwd-group")
		for _, k := range dm.Keywords {
			kg.CreateElement("kwd").SetText(k)
		}
	}
	if dm.Publisher != "" {
		pub := meta.CreateElement("publisher")
		pub.CreateElement("publisher-name").SetText(dm.Publisher)
	}
	if dm.Year != "" {
		date := meta.CreateElement("pub-date")
		date.CreateElement("year").SetText(dm.Year)
	}
}

func lastChildElement(el *etree.Element) *etree.Element {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[len(children)-1]
}
