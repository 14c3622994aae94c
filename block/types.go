// Package block defines the flat document model produced by the editing
// surface: an ordered sequence of typed content blocks plus the style
// definitions that drive both XML projection and pagination.
package block

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// StylePageBreak is the reserved style key of synthetic page break markers
// inserted by pagination. Markers are not content - they never reach the
// projector and are regenerated from scratch on every pagination pass.
const StylePageBreak = "-page-break-"

// Block is the atomic unit of document content. ID is assigned once at
// creation time by the editing surface and never changes - it is the only
// cross reference used for navigation, footnote linking and diffing.
//
// Content carries rich inline markup for text styles and a serialized JSON
// payload (TableData/ImageData) for table and image styles. Level is the
// indent depth for list styles and the outline depth for heading styles.
type Block struct {
	ID      int             `json:"id"`
	Style   string          `json:"style"`
	Content string          `json:"content"`
	Level   int             `json:"level,omitempty"`
	List    *ListAttributes `json:"list,omitempty"`
	Page    int             `json:"page,omitempty"`
}

// IsPageBreak reports whether the block is a synthetic pagination marker.
func (b Block) IsPageBreak() bool {
	return b.Style == StylePageBreak
}

// NewPageBreak constructs a marker terminating the given 1-based page.
// Markers get ID 0 on purpose - they are not content and must never be used
// as link targets.
func NewPageBreak(page int) Block {
	return Block{Style: StylePageBreak, Page: page}
}

// StripPageBreaks returns a new sequence with all pagination markers removed.
// The result shares backing blocks with the input but never aliases its
// slice storage.
func StripPageBreaks(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.IsPageBreak() {
			continue
		}
		out = append(out, b)
	}
	return out
}

// ListAttributes describe ordering of a list opened by a list style block.
type ListAttributes struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Start    int    `json:"start,omitempty" yaml:"start,omitempty"`
	Reversed bool   `json:"reversed,omitempty" yaml:"reversed,omitempty"`
}

// TableCell is a single cell of a table payload. Hidden cells are
// placeholders occupied by a span from an earlier cell in the same row
// block; they keep rows rectangular and produce no output.
type TableCell struct {
	Content string `json:"content"`
	ColSpan int    `json:"colspan,omitempty"`
	RowSpan int    `json:"rowspan,omitempty"`
	Hidden  bool   `json:"isHidden,omitempty"`
	Header  bool   `json:"isHeader,omitempty"`
}

// TableData is the structured payload of a table style block.
type TableData struct {
	Caption string        `json:"caption"`
	Rows    [][]TableCell `json:"rows"`
}

// ParseTableData decodes a table block payload.
func ParseTableData(content string) (*TableData, error) {
	var td TableData
	if err := json.Unmarshal([]byte(content), &td); err != nil {
		return nil, fmt.Errorf("table payload: %w", err)
	}
	return &td, nil
}

// ImageData is the structured payload of an image style block. Src is
// either a data URI or bare base64 of the image bytes.
type ImageData struct {
	Src     string `json:"src"`
	Caption string `json:"caption,omitempty"`
	Source  string `json:"source,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// ParseImageData decodes an image block payload.
func ParseImageData(content string) (*ImageData, error) {
	var id ImageData
	if err := json.Unmarshal([]byte(content), &id); err != nil {
		return nil, fmt.Errorf("image payload: %w", err)
	}
	if strings.TrimSpace(id.Src) == "" {
		return nil, fmt.Errorf("image payload: empty src")
	}
	return &id, nil
}

// Footnote is one footnote discovered during projection. Footnotes are
// numbered by their first appearance order across the whole document.
type Footnote struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Footnotes collects footnotes preserving first appearance order.
// Duplicate registrations by id are coalesced, first content wins.
type Footnotes struct {
	order []Footnote
	index map[string]int
}

// Add registers a footnote and returns its 1-based number.
func (f *Footnotes) Add(id, content string) int {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if n, ok := f.index[id]; ok {
		return n + 1
	}
	f.order = append(f.order, Footnote{ID: id, Content: content})
	f.index[id] = len(f.order) - 1
	return len(f.order)
}

// Number returns the 1-based number of a registered footnote or 0.
func (f *Footnotes) Number(id string) int {
	if f.index == nil {
		return 0
	}
	if n, ok := f.index[id]; ok {
		return n + 1
	}
	return 0
}

// All returns registered footnotes in first appearance order.
func (f *Footnotes) All() []Footnote {
	return f.order
}

// DocumentMeta carries document level metadata entered outside the block
// sequence.
type DocumentMeta struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Language  string   `json:"language,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Year      string   `json:"year,omitempty"`
}

// Document is a full snapshot of the editing surface state.
type Document struct {
	Meta   DocumentMeta `json:"meta"`
	Blocks []Block      `json:"blocks"`
}

// LanguageTag parses the document language, falling back to Undetermined.
func (m DocumentMeta) LanguageTag(log *zap.Logger) language.Tag {
	lang := strings.TrimSpace(m.Language)
	if lang == "" {
		return language.Und
	}
	tag, err := language.Parse(lang)
	if err != nil {
		log.Warn("Unable to parse document language", zap.String("lang", lang), zap.Error(err))
		return language.Und
	}
	return tag
}

// ParseDocument decodes a document snapshot. Missing metadata id is filled
// with a generated UUID so every export has a stable citable identifier.
func ParseDocument(data []byte, log *zap.Logger) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document snapshot: %w", err)
	}
	if strings.TrimSpace(doc.Meta.ID) == "" {
		doc.Meta.ID = uuid.NewString()
		log.Debug("Document has no id, generated one", zap.String("id", doc.Meta.ID))
	}
	seen := make(map[int]struct{}, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if b.IsPageBreak() {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			log.Warn("Duplicate block id in snapshot", zap.Int("id", b.ID))
		}
		seen[b.ID] = struct{}{}
	}
	return &doc, nil
}
