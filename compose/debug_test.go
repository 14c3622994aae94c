package compose

import (
	"strings"
	"testing"

	"bxc/block"
	"bxc/common"
)

func TestResultString(t *testing.T) {
	p := newTestProjector(t, common.OutputFmtJATS)
	res := project(t, p, block.DocumentMeta{ID: "d"},
		block.Block{ID: 1, Style: "heading-1", Content: "Top"},
		block.Block{ID: 2, Style: "paragraph", Content: `text<sup data-fn-id="n" data-fn-content="note"></sup>`},
		block.Block{ID: 3, Style: "bogus", Content: "x"},
	)

	out := res.String()
	for _, want := range []string{"<article>", "<sec>", "Top", "footnote", "skipped"} {
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Errorf("outline misses %q:\n%s", want, out)
		}
	}
}
