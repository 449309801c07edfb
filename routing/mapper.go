package routing

import (
	"fmt"
	"path"
	"sort"
	"strings"

	rbac "github.com/bohemiyan/erp-rbac"
)

// Resolved is what guards one request path.
type Resolved struct {
	Path     string       `json:"path"`
	Resource string       `json:"resource,omitempty"`
	Action   rbac.Action  `json:"action"`
	Skip     bool         `json:"skip"`
	Any      *RequiresAny `json:"requires_any,omitempty"`
	// Pattern is the rule that matched, empty when the path is guarded as
	// its own page resource.
	Pattern string `json:"pattern,omitempty"`
}

type compiledRule struct {
	pattern  string
	resource string
	action   rbac.Action
	files    map[string]Override
}

func (r *compiledRule) matches(p string) bool {
	if r.pattern == "/" {
		return true
	}
	return p == r.pattern || strings.HasPrefix(p, r.pattern+"/")
}

// Mapper resolves paths against rules ranked by specificity.
type Mapper struct {
	rules []compiledRule
}

// Compile validates rules and ranks them longest pattern first. Two rules
// with the same normalized pattern have no most specific winner and are
// rejected.
func Compile(rules []Rule) (*Mapper, error) {
	seen := make(map[string]bool, len(rules))
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		p := normalizePath(r.Pattern)
		if seen[p] {
			return nil, fmt.Errorf("%w: route pattern %q declared more than once", rbac.ErrConfiguration, p)
		}
		seen[p] = true

		if r.Resource == "" {
			return nil, fmt.Errorf("%w: route pattern %q has no resource", rbac.ErrConfiguration, p)
		}
		if !r.Action.Valid() {
			return nil, fmt.Errorf("%w: route pattern %q has invalid action %d", rbac.ErrConfiguration, p, int(r.Action))
		}

		files := make(map[string]Override, len(r.Files))
		for name, o := range r.Files {
			key := fileKey(name)
			if _, dup := files[key]; dup {
				return nil, fmt.Errorf("%w: file %q listed twice under %q", rbac.ErrConfiguration, key, p)
			}
			if err := validateOverride(o); err != nil {
				return nil, fmt.Errorf("%w: file %q under %q: %v", rbac.ErrConfiguration, key, p, err)
			}
			files[key] = o
		}

		compiled = append(compiled, compiledRule{pattern: p, resource: r.Resource, action: r.Action, files: files})
	}

	sort.Slice(compiled, func(i, j int) bool {
		if len(compiled[i].pattern) != len(compiled[j].pattern) {
			return len(compiled[i].pattern) > len(compiled[j].pattern)
		}
		return compiled[i].pattern < compiled[j].pattern
	})
	return &Mapper{rules: compiled}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(rules []Rule) *Mapper {
	m, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return m
}

func validateOverride(o Override) error {
	switch o.Kind {
	case OverrideAction:
		if !o.Action.Valid() {
			return fmt.Errorf("invalid action %d", int(o.Action))
		}
	case OverrideSkip:
	case OverrideRequiresAny:
		if o.Any == nil {
			return fmt.Errorf("requires-any override without alternatives")
		}
		if !o.Any.Then.Valid() {
			return fmt.Errorf("invalid then action %d", int(o.Any.Then))
		}
		for _, alt := range o.Any.Alternatives {
			if alt.Resource == "" || !alt.Action.Valid() {
				return fmt.Errorf("invalid alternative %+v", alt)
			}
		}
	default:
		return fmt.Errorf("unknown override kind %d", int(o.Kind))
	}
	return nil
}

// Resolve returns what guards p. The most specific matching rule applies;
// a path no rule covers is guarded as its own page resource with view_all.
func (m *Mapper) Resolve(p string) Resolved {
	p = normalizePath(p)
	name := fileKey(path.Base(p))

	for i := range m.rules {
		rule := &m.rules[i]
		if !rule.matches(p) {
			continue
		}
		res := Resolved{Path: p, Resource: rule.resource, Action: rule.action, Pattern: rule.pattern}
		o, ok := rule.files[name]
		if !ok {
			return res
		}
		switch o.Kind {
		case OverrideAction:
			res.Action = o.Action
		case OverrideSkip:
			return Resolved{Path: p, Skip: true, Pattern: rule.pattern}
		case OverrideRequiresAny:
			res.Action = o.Any.Then
			res.Any = o.Any
		}
		return res
	}

	return Resolved{Path: p, Resource: PageKey(p), Action: rbac.ActionViewAll}
}

// DeclaredResource is a resource named by the rule table itself.
type DeclaredResource struct {
	Key     string
	Pattern string
}

// Resources lists every resource the rules can resolve to, including
// RequiresAny alternatives, each once, in rank order.
func (m *Mapper) Resources() []DeclaredResource {
	seen := make(map[string]bool)
	var out []DeclaredResource
	add := func(key, pattern string) {
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, DeclaredResource{Key: key, Pattern: pattern})
	}
	for _, r := range m.rules {
		add(r.resource, r.pattern)
		names := make([]string, 0, len(r.files))
		for name := range r.files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if o := r.files[name]; o.Kind == OverrideRequiresAny {
				for _, alt := range o.Any.Alternatives {
					add(alt.Resource, r.pattern)
				}
			}
		}
	}
	return out
}

// PageKey is the resource key of a page no rule covers: the path without
// leading slash and extension.
func PageKey(p string) string {
	p = normalizePath(p)
	key := strings.TrimPrefix(strings.TrimSuffix(p, path.Ext(p)), "/")
	if key == "" {
		return "index"
	}
	return key
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + strings.TrimSpace(p))
}

func fileKey(name string) string {
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}
