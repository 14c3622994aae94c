package block

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"bxc/common"
)

//go:embed styles.yaml
var defaultStyles []byte

// MatterClass controls which document section a projected block lands in.
type MatterClass string

const (
	MatterBody  MatterClass = ""        // default
	MatterFront MatterClass = "front"   // article/book metadata
	MatterBack  MatterClass = "back"    // references, appendices
	MatterChap  MatterClass = "chapter" // heading opening a new top level chapter group (book schema)
)

// StyleKind selects how a block's content is interpreted.
type StyleKind string

const (
	KindText  StyleKind = ""      // rich inline markup
	KindTable StyleKind = "table" // TableData JSON payload
	KindImage StyleKind = "image" // ImageData JSON payload
)

// ListKind marks list styles grouped into nested list trees.
type ListKind string

const (
	ListNone      ListKind = ""
	ListOrdered   ListKind = "ordered"
	ListUnordered ListKind = "unordered"
)

// TagPair holds the output element name per schema.
type TagPair struct {
	Article string `yaml:"jats"`
	Book    string `yaml:"bits"`
}

// Get returns the tag for the requested output format.
func (t TagPair) Get(format common.OutputFmt) string {
	if format == common.OutputFmtBITS {
		return t.Book
	}
	return t.Article
}

// StyleDefinition maps a style key to its output behavior. At most one
// definition exists per key - loading a key again replaces it.
type StyleDefinition struct {
	Tag          TagPair           `yaml:"tag"`
	Wrapper      *TagPair          `yaml:"wrapper,omitempty"`
	HeadingLevel *int              `yaml:"heading_level,omitempty"`
	Matter       MatterClass       `yaml:"matter,omitempty"`
	Kind         StyleKind         `yaml:"kind,omitempty"`
	List         ListKind          `yaml:"list,omitempty"`
	ListDefaults *ListAttributes   `yaml:"list_defaults,omitempty"`
	Attributes   map[string]string `yaml:"attributes,omitempty"`
}

// IsHeading reports whether the style participates in section nesting.
func (d StyleDefinition) IsHeading() bool {
	return d.HeadingLevel != nil
}

// IsList reports whether blocks of this style group into list trees.
func (d StyleDefinition) IsList() bool {
	return d.List != ListNone
}

// WrapperTag returns the parent wrapper tag for the format or "".
func (d StyleDefinition) WrapperTag(format common.OutputFmt) string {
	if d.Wrapper == nil {
		return ""
	}
	return d.Wrapper.Get(format)
}

// Registry is a snapshot of style definitions keyed by style key. A
// document may reference keys absent from the registry - consumers must
// skip such blocks instead of failing.
type Registry struct {
	defs map[string]StyleDefinition
}

// Lookup returns the definition for a style key.
func (r *Registry) Lookup(key string) (StyleDefinition, bool) {
	if r == nil || r.defs == nil {
		return StyleDefinition{}, false
	}
	def, ok := r.defs[key]
	return def, ok
}

// Put adds or replaces a single definition.
func (r *Registry) Put(key string, def StyleDefinition) {
	if r.defs == nil {
		r.defs = make(map[string]StyleDefinition)
	}
	r.defs[key] = def
}

// Delete removes a definition. Documents referencing the key keep working,
// affected blocks are skipped during projection.
func (r *Registry) Delete(key string) {
	delete(r.defs, key)
}

// Len returns the number of registered styles.
func (r *Registry) Len() int {
	return len(r.defs)
}

// IsHeading is a convenience lookup used by pagination - unknown style keys
// are not headings.
func (r *Registry) IsHeading(key string) bool {
	def, ok := r.Lookup(key)
	return ok && def.IsHeading()
}

func parseRegistry(data []byte, into *Registry) error {
	var raw map[string]StyleDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, def := range raw {
		into.Put(key, def)
	}
	return nil
}

// DefaultRegistry returns the embedded style set.
func DefaultRegistry() (*Registry, error) {
	r := &Registry{}
	if err := parseRegistry(defaultStyles, r); err != nil {
		// embedded data, must parse
		return nil, fmt.Errorf("embedded styles: %w", err)
	}
	return r, nil
}

// LoadRegistry builds a registry from the embedded defaults with
// definitions from the optional user file superimposed key by key.
func LoadRegistry(path string, log *zap.Logger) (*Registry, error) {
	r, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read styles from %q: %w", path, err)
	}
	before := r.Len()
	if err := parseRegistry(data, r); err != nil {
		return nil, fmt.Errorf("unable to parse styles from %q: %w", path, err)
	}
	log.Debug("Loaded user styles", zap.String("path", path), zap.Int("embedded", before), zap.Int("total", r.Len()))
	return r, nil
}
