package paginate

import (
	"errors"
	"fmt"
	"unicode"

	"go.uber.org/zap"

	"bxc/block"
	"bxc/config"
)

// ErrDegenerateGeometry is returned when the page geometry leaves no room
// for content and pagination cannot make progress.
var ErrDegenerateGeometry = errors.New("page geometry leaves no room for content")

// MeasureFunc returns the laid-out height of a block run rendered as a
// single unit. The run is always measured together so cross block margin
// collapsing is captured. Implementations are expected to be synchronous
// and deterministic for identical input.
type MeasureFunc func(blocks []block.Block) (float64, error)

// Result of a pagination pass.
type Result struct {
	// Blocks is the input content with fresh page break markers inserted.
	Blocks []block.Block
	// Pages is the total page count, markers inserted plus one.
	Pages int
	// Overflowed lists ids of blocks taller than a whole page which were
	// emitted as-is. Degraded output rather than an error.
	Overflowed []int
}

// Engine recomputes page break positions for a flat block sequence. Each
// run strips the old markers first and rebuilds placement from scratch, so
// the outcome never depends on what a previous pass produced.
type Engine struct {
	Geometry  config.PageConfig
	Measure   MeasureFunc
	Registry  *block.Registry
	Log       *zap.Logger
	StartPage int
	// BodyStyle receives the continuation of a heading split mid-content.
	BodyStyle string
}

// Paginate computes marker placement for blocks. The input is not modified.
func (e *Engine) Paginate(blocks []block.Block) (*Result, error) {
	avail := e.Geometry.Height - e.Geometry.Margins.Top - e.Geometry.Margins.Bottom
	if e.Geometry.Width <= 0 || e.Geometry.Height <= 0 || avail <= 0 {
		return nil, fmt.Errorf("%w: %gx%g margins %g/%g", ErrDegenerateGeometry,
			e.Geometry.Width, e.Geometry.Height, e.Geometry.Margins.Top, e.Geometry.Margins.Bottom)
	}

	queue := block.StripPageBreaks(blocks)
	pageNo := e.StartPage
	if pageNo < 1 {
		pageNo = 1
	}

	res := &Result{}
	var out []block.Block
	var page []block.Block

	closePage := func() {
		out = append(out, page...)
		out = append(out, block.NewPageBreak(pageNo))
		pageNo++
		page = nil
	}
	prepend := func(blocks ...block.Block) {
		queue = append(blocks, queue...)
	}

	for len(queue) > 0 {
		cand := queue[0]
		queue = queue[1:]

		h, err := e.measure(append(page, cand))
		if err != nil {
			return nil, err
		}
		if h <= avail {
			page = append(page, cand)
			continue
		}

		if len(page) == 0 {
			// Candidate alone is taller than a page.
			if e.splittable(cand) {
				prefix, rest, ok, err := e.split(page, cand, avail)
				if err != nil {
					return nil, err
				}
				if ok {
					page = append(page, prefix)
					closePage()
					prepend(rest)
					continue
				}
			}
			e.Log.Warn("Block is taller than a page, emitting as is", zap.Int("id", cand.ID), zap.String("style", cand.Style))
			res.Overflowed = append(res.Overflowed, cand.ID)
			page = append(page, cand)
			closePage()
			continue
		}

		if run := e.trailingHeadings(page); run > 0 {
			if run < len(page) {
				// Keep the whole heading run with the content that follows
				// it. Consecutive headings move together, any one of them
				// left behind would end up last on the page.
				moved := append([]block.Block{}, page[len(page)-run:]...)
				page = page[:len(page)-run]
				closePage()
				prepend(append(moved, cand)...)
				continue
			}
			// Headings opened this page and nothing fits after them even
			// here. Split the candidate to put at least a fragment under
			// the headings, or overflow the page rather than orphan them.
			if e.splittable(cand) {
				prefix, rest, ok, err := e.split(page, cand, avail)
				if err != nil {
					return nil, err
				}
				if ok {
					page = append(page, prefix)
					closePage()
					prepend(rest)
					continue
				}
			}
			e.Log.Warn("Heading and following block do not fit one page together", zap.Int("heading", page[len(page)-1].ID), zap.Int("id", cand.ID))
			res.Overflowed = append(res.Overflowed, cand.ID)
			page = append(page, cand)
			closePage()
			continue
		}

		if e.splittable(cand) {
			alone, err := e.measure([]block.Block{cand})
			if err != nil {
				return nil, err
			}
			if alone > avail {
				prefix, rest, ok, err := e.split(page, cand, avail)
				if err != nil {
					return nil, err
				}
				if ok {
					page = append(page, prefix)
					closePage()
					prepend(rest)
					continue
				}
			}
		}

		closePage()
		prepend(cand)
	}

	out = append(out, page...)
	// A marker with nothing after it would open an empty page.
	if n := len(out); n > 0 && out[n-1].IsPageBreak() {
		out = out[:n-1]
		pageNo--
	}
	res.Blocks = out
	res.Pages = pageNo - e.startPage() + 1
	return res, nil
}

func (e *Engine) startPage() int {
	if e.StartPage < 1 {
		return 1
	}
	return e.StartPage
}

func (e *Engine) measure(blocks []block.Block) (float64, error) {
	h, err := e.Measure(blocks)
	if err != nil {
		return 0, fmt.Errorf("measurement failed: %w", err)
	}
	return h, nil
}

func (e *Engine) isHeading(b block.Block) bool {
	return e.Registry.IsHeading(b.Style)
}

// trailingHeadings counts the heading-class blocks at the end of the page.
func (e *Engine) trailingHeadings(page []block.Block) int {
	n := 0
	for i := len(page) - 1; i >= 0 && e.isHeading(page[i]); i-- {
		n++
	}
	return n
}

// splittable reports whether the block carries plain inline text which can
// be cut mid-content. Tables, images and markers are indivisible units.
func (e *Engine) splittable(b block.Block) bool {
	if b.IsPageBreak() {
		return false
	}
	def, ok := e.Registry.Lookup(b.Style)
	if ok && def.Kind != block.KindText {
		return false
	}
	return true
}

// split finds the longest prefix of cand fitting the space left on the
// current page after committed and cuts the block there. The cut offset is
// searched over text content units and snapped back to the nearest
// preceding whitespace so no word is broken. Returns ok=false when not even
// the first word fits.
func (e *Engine) split(committed []block.Block, cand block.Block, avail float64) (prefix, rest block.Block, ok bool, err error) {
	segs, perr := block.ParseInline(cand.Content)
	if perr != nil {
		e.Log.Warn("Unparsable inline content, not splitting", zap.Int("id", cand.ID), zap.Error(perr))
		return prefix, rest, false, nil
	}
	total := block.TextLen(segs)
	if total < 2 {
		return prefix, rest, false, nil
	}

	fits := func(off int) (bool, error) {
		left, _ := block.SplitAt(segs, off)
		trial := cand
		trial.Content = block.SerializeHTML(left)
		h, err := e.measure(append(committed, trial))
		if err != nil {
			return false, err
		}
		return h <= avail, nil
	}

	// Largest offset in [1, total) whose prefix still fits.
	lo, hi, best := 1, total-1, 0
	for lo <= hi {
		mid := (lo + hi) / 2
		okFit, err := fits(mid)
		if err != nil {
			return prefix, rest, false, err
		}
		if okFit {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		return prefix, rest, false, nil
	}

	cut := snapToWhitespace(block.PlainText(segs), best)
	if cut == 0 {
		return prefix, rest, false, nil
	}

	left, right := block.SplitAt(segs, cut)
	prefix = cand
	prefix.Content = block.SerializeHTML(left)
	rest = cand
	rest.Content = block.SerializeHTML(right)
	if e.isHeading(cand) {
		rest.Style = e.demotedStyle(cand.Style)
	}
	return prefix, rest, true, nil
}

// demotedStyle picks the style for the continuation of a split heading.
// A heading fragment flowing onto the next page is no longer a heading.
func (e *Engine) demotedStyle(orig string) string {
	if _, ok := e.Registry.Lookup(e.BodyStyle); ok {
		return e.BodyStyle
	}
	e.Log.Warn("Fallback body style is not registered, keeping original", zap.String("style", orig), zap.String("fallback", e.BodyStyle))
	return orig
}

// snapToWhitespace moves the cut offset back so it lands right after the
// closest whitespace run at or before off. Returns 0 when there is none.
func snapToWhitespace(text string, off int) int {
	runes := []rune(text)
	if off > len(runes) {
		off = len(runes)
	}
	for i := off; i > 0; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return 0
}
