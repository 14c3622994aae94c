package paginate

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"bxc/block"
)

// StyleMetrics describes how tall blocks of one style render. Text styles
// are driven by line height and line capacity, indivisible styles (tables,
// images) by a fixed height.
type StyleMetrics struct {
	LineHeight   float64 `yaml:"line_height"`
	CharsPerLine int     `yaml:"chars_per_line"`
	FixedHeight  float64 `yaml:"fixed_height"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
}

// TableMeasurer is a deterministic stand-in for the live layout oracle.
// Heights come from a per-style lookup table, adjacent vertical margins
// collapse the way stacked body content does.
type TableMeasurer struct {
	Styles  map[string]StyleMetrics `yaml:"styles"`
	Default StyleMetrics            `yaml:"default"`
}

// LoadTableMeasurer reads a metrics table from a YAML file. Unknown keys
// are rejected.
func LoadTableMeasurer(path string) (*TableMeasurer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read measures: %w", err)
	}
	m := &TableMeasurer{}
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(m); err != nil {
		return nil, fmt.Errorf("unable to parse measures %s: %w", path, err)
	}
	if m.Default.LineHeight <= 0 {
		return nil, fmt.Errorf("measures %s: default line_height must be positive", path)
	}
	return m, nil
}

func (m *TableMeasurer) metrics(style string) StyleMetrics {
	if sm, ok := m.Styles[style]; ok {
		return sm
	}
	return m.Default
}

// Measure renders nothing: it adds up table-driven block heights plus
// collapsed inter-block margins. Satisfies MeasureFunc.
func (m *TableMeasurer) Measure(blocks []block.Block) (float64, error) {
	var total, prevBottom float64
	for i, b := range blocks {
		if b.IsPageBreak() {
			continue
		}
		sm := m.metrics(b.Style)
		if i > 0 {
			total += math.Max(prevBottom, sm.MarginTop)
		} else {
			total += sm.MarginTop
		}
		total += m.blockHeight(b, sm)
		prevBottom = sm.MarginBottom
	}
	total += prevBottom
	return total, nil
}

func (m *TableMeasurer) blockHeight(b block.Block, sm StyleMetrics) float64 {
	if sm.FixedHeight > 0 {
		return sm.FixedHeight
	}
	chars := contentLen(b.Content)
	perLine := sm.CharsPerLine
	if perLine <= 0 {
		perLine = 80
	}
	lines := (chars + perLine - 1) / perLine
	if lines < 1 {
		lines = 1
	}
	lh := sm.LineHeight
	if lh <= 0 {
		lh = m.Default.LineHeight
	}
	return float64(lines) * lh
}

// contentLen counts text units the way the split search does, so measured
// prefixes line up with cut offsets.
func contentLen(content string) int {
	segs, err := block.ParseInline(content)
	if err != nil {
		return len([]rune(content))
	}
	return block.TextLen(segs)
}
