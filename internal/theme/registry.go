package theme

import (
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"KlineStudio/internal/errors"
)

// AllThemes is the selector that expands to every registered theme.
const AllThemes = "all"

// Registry resolves theme names. It is read-only after construction and safe
// for concurrent use.
type Registry struct {
	byName map[string]Theme
	sorted []Theme
}

// NewRegistry validates themes and indexes them by name.
func NewRegistry(themes ...Theme) (*Registry, error) {
	v := validator.New()
	r := &Registry{byName: make(map[string]Theme, len(themes))}
	for _, t := range themes {
		if err := v.Struct(t); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidTheme, err, "theme %q", t.Name)
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, errors.Newf(errors.ErrCodeDuplicateTheme, "theme %q registered twice", t.Name)
		}
		t.Display.PanelRatios = append([]int(nil), t.Display.PanelRatios...)
		r.byName[t.Name] = t
		r.sorted = append(r.sorted, t)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	return r, nil
}

// NewBuiltinRegistry returns a registry holding the built-in themes plus extra.
func NewBuiltinRegistry(extra ...Theme) (*Registry, error) {
	return NewRegistry(append(Builtin(), extra...)...)
}

// Resolve returns the theme registered under name.
func (r *Registry) Resolve(name string) (Theme, error) {
	t, ok := r.byName[name]
	if !ok {
		return Theme{}, errors.Newf(errors.ErrCodeUnknownTheme,
			"unknown theme %q, available: %s", name, strings.Join(r.Names(), ", "))
	}
	return t, nil
}

// ListAll returns every theme sorted by name.
func (r *Registry) ListAll() []Theme {
	out := make([]Theme, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Names returns every theme name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.sorted))
	for i, t := range r.sorted {
		names[i] = t.Name
	}
	return names
}

// Select expands a theme selector: "" or "all" yields every theme, any other
// value yields that single theme.
func (r *Registry) Select(selector string) ([]Theme, error) {
	if selector == "" || selector == AllThemes {
		return r.ListAll(), nil
	}
	t, err := r.Resolve(selector)
	if err != nil {
		return nil, err
	}
	return []Theme{t}, nil
}

type fileEntry struct {
	Name string `yaml:"name"`
	Base string `yaml:"base"`
}

// LoadFile reads extra themes from a YAML file of the form
//
//	themes:
//	  - name: ocean
//	    base: dark
//	    colors: {up: teal}
//
// Each entry starts from its base theme (default when omitted) and overrides
// only the fields it sets.
func LoadFile(path string) ([]Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read theme file %s", path)
	}

	var doc struct {
		Themes []yaml.Node `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidTheme, err, "parse theme file %s", path)
	}

	builtins := make(map[string]Theme)
	for _, t := range Builtin() {
		builtins[t.Name] = t
	}

	out := make([]Theme, 0, len(doc.Themes))
	for i := range doc.Themes {
		node := &doc.Themes[i]
		var entry fileEntry
		if err := node.Decode(&entry); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidTheme, err, "theme entry %d", i)
		}
		if entry.Base == "" {
			entry.Base = DefaultName
		}
		base, ok := builtins[entry.Base]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownTheme, "theme %q extends unknown base %q", entry.Name, entry.Base)
		}

		t := base
		t.Display.PanelRatios = append([]int(nil), base.Display.PanelRatios...)
		if err := node.Decode(&t); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidTheme, err, "theme %q", entry.Name)
		}
		out = append(out, t)
	}
	return out, nil
}
