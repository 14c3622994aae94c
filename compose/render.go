package compose

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// structuralTags never carry character data of their own - text inside one
// of these indicates an upstream construction bug, not user error. Inline
// containers (p, title, bold, td ...) legitimately mix text and elements
// and are left alone.
var structuralTags = map[string]struct{}{
	"article": {}, "book": {},
	"front": {}, "body": {}, "back": {},
	"book-meta": {}, "book-body": {}, "book-back": {}, "book-part": {},
	"article-meta": {}, "title-group": {}, "book-title-group": {},
	"contrib-group": {}, "kwd-group": {}, "abstract": {},
	"sec": {}, "disp-quote": {}, "verse-group": {}, "app": {}, "ref-list": {},
	"list": {}, "list-item": {},
	"table-wrap": {}, "table": {}, "tr": {}, "caption": {},
	"fig": {}, "fn-group": {}, "fn": {},
}

// Render serializes a projected tree into the final XML document text.
// Serialization is deterministic - the same tree always yields the same
// bytes.
func Render(doc *etree.Document, log *zap.Logger) (string, error) {
	if doc == nil || doc.Root() == nil {
		return "", fmt.Errorf("nothing to render")
	}
	// no pretty printing: indentation would inject whitespace into mixed
	// inline content and change the document text
	sanitizeElement(doc.Root(), log)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return out, nil
}

// sanitizeElement drops stray character data from structural nodes,
// preferring children over text, and recurses depth first.
func sanitizeElement(el *etree.Element, log *zap.Logger) {
	if _, structural := structuralTags[el.Tag]; structural && len(el.ChildElements()) > 0 {
		removeCharData(el, log)
	}
	for _, child := range el.ChildElements() {
		sanitizeElement(child, log)
	}
}

func removeCharData(el *etree.Element, log *zap.Logger) {
	var stray []etree.Token
	for _, tok := range el.Child {
		cd, ok := tok.(*etree.CharData)
		if !ok {
			continue
		}
		if strings.TrimSpace(cd.Data) == "" {
			continue
		}
		stray = append(stray, tok)
	}
	if len(stray) == 0 {
		return
	}
	log.Warn("Structural element carries text, dropping it", zap.String("tag", el.Tag))
	for _, tok := range stray {
		el.RemoveChild(tok)
	}
}
