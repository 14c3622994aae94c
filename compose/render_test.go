package compose

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"bxc/block"
	"bxc/common"
)

func TestRender(t *testing.T) {
	p := newTestProjector(t, common.OutputFmtJATS)
	res := project(t, p, block.DocumentMeta{ID: "d", Title: "T"},
		block.Block{ID: 1, Style: "paragraph", Content: `a <b>b</b> & c`},
	)

	out, err := Render(res.Doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing xml declaration:\n%s", out)
	}
	if !strings.Contains(out, "JATS-journalpublishing1-3.dtd") {
		t.Errorf("missing doctype:\n%s", out)
	}
	if !strings.Contains(out, "a <bold>b</bold> &amp; c") {
		t.Errorf("inline text not escaped around markup:\n%s", out)
	}

	// identical tree renders to identical bytes
	res2 := project(t, p, block.DocumentMeta{ID: "d", Title: "T"},
		block.Block{ID: 1, Style: "paragraph", Content: `a <b>b</b> & c`},
	)
	out2, err := Render(res2.Doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != out2 {
		t.Error("rendering is not deterministic")
	}
}

func TestRenderSanitizesStructuralText(t *testing.T) {
	doc := etree.NewDocument()
	root := doc.CreateElement("article")
	body := root.CreateElement("body")
	body.CreateText("stray text")
	body.CreateElement("p").SetText("kept")

	out, err := Render(doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(out, "stray text") {
		t.Errorf("structural text survived:\n%s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("element content lost:\n%s", out)
	}
}

func TestRenderLeavesMixedContentAlone(t *testing.T) {
	doc := etree.NewDocument()
	root := doc.CreateElement("article")
	p := root.CreateElement("body").CreateElement("p")
	p.CreateText("before ")
	p.CreateElement("bold").SetText("strong")
	p.CreateText(" after")

	out, err := Render(doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "before <bold>strong</bold> after") {
		t.Errorf("mixed inline content damaged:\n%s", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	if _, err := Render(nil, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for nil document")
	}
	if _, err := Render(etree.NewDocument(), zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for rootless document")
	}
}
