// Package routes composes the console's navigable route table from the
// built-in routes and the routes contributed by registered modules, and
// resolves request paths against it.
package routes

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"ordertrack/console/internal/access"
	"ordertrack/console/internal/views"
)

var (
	ErrNotFound     = errors.New("route not found")
	ErrRedirectLoop = errors.New("redirect loop")
)

const maxRedirects = 8

// Route is a node of the declared route tree. Child paths are relative to
// the parent; an empty child path is the parent's index.
type Route struct {
	Path        string
	Name        string
	View        views.Ref
	Requirement access.Requirement
	Redirect    string
	// CheckSetup asks the guard to load the setup-completion flag before
	// evaluating the route.
	CheckSetup bool
	ModuleKey  string
	Children   []Route
}

// Entry is a matchable route with its absolute path and inherited settings.
type Entry struct {
	Path        string             `json:"path"`
	Name        string             `json:"name,omitempty"`
	View        views.Ref          `json:"view"`
	Layouts     []views.Ref        `json:"layouts,omitempty"`
	Requirement access.Requirement `json:"requirement"`
	Redirect    string             `json:"redirect,omitempty"`
	CheckSetup  bool               `json:"checkSetup,omitempty"`
	ModuleKey   string             `json:"moduleKey,omitempty"`

	segments []string
	dynamic  bool
}

// Resolution is the outcome of matching a path, after static redirects.
type Resolution struct {
	Requested      string            `json:"requested"`
	Path           string            `json:"path"`
	Entry          Entry             `json:"route"`
	Params         map[string]string `json:"params,omitempty"`
	RedirectedFrom []string          `json:"redirectedFrom,omitempty"`
}

type Table struct {
	entries []Entry
	static  map[string]int
	byName  map[string]int
}

// New flattens tree into a table and validates it: paths and names must be
// unique and every redirect must land on a non-redirect route.
func New(tree []Route) (*Table, error) {
	var entries []Entry
	flatten(tree, "", access.None, nil, "", &entries)

	t := &Table{
		entries: entries,
		static:  make(map[string]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}

	var errs []error
	patterns := make(map[string]string, len(entries))
	for i, e := range entries {
		key := patternKey(e.segments)
		if prev, dup := patterns[key]; dup {
			errs = append(errs, fmt.Errorf("route %s collides with %s", e.Path, prev))
			continue
		}
		patterns[key] = e.Path
		if !e.dynamic {
			t.static[e.Path] = i
		}
		if e.Name != "" {
			if _, dup := t.byName[e.Name]; dup {
				errs = append(errs, fmt.Errorf("route name %q declared twice", e.Name))
				continue
			}
			t.byName[e.Name] = i
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, e := range entries {
		if e.Redirect == "" {
			continue
		}
		if _, err := t.Resolve(e.Path); err != nil {
			errs = append(errs, fmt.Errorf("redirect from %s: %w", e.Path, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func flatten(routes []Route, parent string, parentReq access.Requirement, layouts []views.Ref, module string, out *[]Entry) {
	for _, r := range routes {
		full := joinPath(parent, r.Path)
		req := access.Inherit(parentReq, access.Normalize(string(r.Requirement)))
		moduleKey := r.ModuleKey
		if moduleKey == "" {
			moduleKey = module
		}

		if len(r.Children) > 0 {
			if !hasIndex(r.Children) {
				*out = append(*out, newEntry(full, r, req, layouts, moduleKey))
			}
			childLayouts := layouts
			if !r.View.IsZero() {
				childLayouts = append(append([]views.Ref(nil), layouts...), r.View)
			}
			flatten(r.Children, full, req, childLayouts, moduleKey, out)
			continue
		}
		*out = append(*out, newEntry(full, r, req, layouts, moduleKey))
	}
}

func newEntry(full string, r Route, req access.Requirement, layouts []views.Ref, moduleKey string) Entry {
	segs := segments(full)
	dynamic := false
	for _, s := range segs {
		if strings.HasPrefix(s, ":") {
			dynamic = true
		}
	}
	e := Entry{
		Path:        full,
		Name:        r.Name,
		View:        r.View,
		Layouts:     append([]views.Ref(nil), layouts...),
		Requirement: req,
		CheckSetup:  r.CheckSetup,
		ModuleKey:   moduleKey,
		segments:    segs,
		dynamic:     dynamic,
	}
	if r.Redirect != "" {
		e.Redirect = joinPath(full, r.Redirect)
		e.View = views.Ref{}
		e.Layouts = nil
	}
	return e
}

func hasIndex(children []Route) bool {
	for _, c := range children {
		if c.Path == "" {
			return true
		}
	}
	return false
}

// Resolve matches p, following static redirects before anything else looks
// at the route.
func (t *Table) Resolve(p string) (Resolution, error) {
	current := cleanPath(p)
	res := Resolution{Requested: current}
	seen := make(map[string]bool)

	for {
		entry, params, ok := t.match(current)
		if !ok {
			return res, fmt.Errorf("%w: %s", ErrNotFound, current)
		}
		if entry.Redirect == "" {
			res.Path = current
			res.Entry = entry
			res.Params = params
			return res, nil
		}
		if seen[current] || len(res.RedirectedFrom) >= maxRedirects {
			chain := append(append([]string(nil), res.RedirectedFrom...), current)
			return res, fmt.Errorf("%w: %s", ErrRedirectLoop, strings.Join(chain, " -> "))
		}
		seen[current] = true
		res.RedirectedFrom = append(res.RedirectedFrom, current)
		current = cleanPath(entry.Redirect)
	}
}

func (t *Table) match(p string) (Entry, map[string]string, bool) {
	if i, ok := t.static[p]; ok {
		return t.entries[i], nil, true
	}
	segs := segments(p)
	for _, e := range t.entries {
		if !e.dynamic || len(e.segments) != len(segs) {
			continue
		}
		params := make(map[string]string)
		matched := true
		for i, want := range e.segments {
			if strings.HasPrefix(want, ":") {
				if segs[i] == "" {
					matched = false
					break
				}
				params[want[1:]] = segs[i]
				continue
			}
			if want != segs[i] {
				matched = false
				break
			}
		}
		if matched {
			return e, params, true
		}
	}
	return Entry{}, nil, false
}

// Entries returns the flattened table in declaration order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func (t *Table) Lookup(name string) (Entry, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// PathFor returns the path of the named route.
func (t *Table) PathFor(name string) (string, bool) {
	e, ok := t.Lookup(name)
	return e.Path, ok
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func joinPath(parent, p string) string {
	switch {
	case strings.HasPrefix(p, "/"):
		return cleanPath(p)
	case p == "":
		if parent == "" {
			return "/"
		}
		return parent
	default:
		return cleanPath(parent + "/" + p)
	}
}

func segments(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func patternKey(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			parts[i] = ":"
			continue
		}
		parts[i] = s
	}
	return "/" + strings.Join(parts, "/")
}
