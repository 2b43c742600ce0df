// Package registry collects the manifests of the console's feature modules and
// projects the navigation structures (route tables, sidebars) derived from
// them.
//
// A Registry is built once at startup from an explicit, ordered manifest list
// and is immutable afterwards. Registration order is preserved by every
// projection.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"ordertrack/console/internal/views"
)

// Parent paths under which module routes are mounted.
const (
	AdminSettingsPath = "/admin/settings"
	UserProvidersPath = "/providers"
)

type Category string

const (
	CategoryAnalyser Category = "analyser"
	CategoryProvider Category = "provider"
	CategoryNotifier Category = "notifier"
)

// categoryOrder fixes the order of admin sidebar groups.
var categoryOrder = []Category{CategoryAnalyser, CategoryProvider, CategoryNotifier}

var categoryGroups = map[Category]string{
	CategoryAnalyser: "Analysers",
	CategoryProvider: "Providers",
	CategoryNotifier: "Notifiers",
}

func (c Category) Valid() bool {
	_, ok := categoryGroups[c]
	return ok
}

// GroupLabel is the admin sidebar heading for the category.
func (c Category) GroupLabel() string {
	return categoryGroups[c]
}

// Categories lists the known categories in sidebar order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

type AdminRoute struct {
	Path  string
	View  views.Ref
	Label string // optional, falls back to Manifest.Name
}

type UserRoute struct {
	Path  string
	View  views.Ref
	Label string
}

// Manifest is the static description of one feature module.
type Manifest struct {
	Key         string
	Name        string
	Category    Category
	AdminRoutes []AdminRoute
	UserRoutes  []UserRoute
}

// RouteEntry is one row of a flattened route table.
type RouteEntry struct {
	Path      string
	View      views.Ref
	ModuleKey string
}

type SidebarItem struct {
	To        string `json:"to"`
	Label     string `json:"label"`
	ModuleKey string `json:"moduleKey"`
}

type SidebarGroup struct {
	Group    string        `json:"group"`
	Category Category      `json:"category"`
	Items    []SidebarItem `json:"items"`
}

type Registry struct {
	manifests []Manifest
	byKey     map[string]int
}

// Builder accumulates manifests during bootstrap.
type Builder struct {
	manifests []Manifest
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Register appends m. Validation is deferred to Build.
func (b *Builder) Register(m Manifest) *Builder {
	b.manifests = append(b.manifests, cloneManifest(m))
	return b
}

// Build validates the accumulated manifests and returns the registry. Every
// problem found is reported, joined into one error.
func (b *Builder) Build() (*Registry, error) {
	if err := validate(b.manifests); err != nil {
		return nil, err
	}
	r := &Registry{
		manifests: make([]Manifest, len(b.manifests)),
		byKey:     make(map[string]int, len(b.manifests)),
	}
	for i, m := range b.manifests {
		r.manifests[i] = cloneManifest(m)
		r.byKey[m.Key] = i
	}
	return r, nil
}

// Build registers manifests in the given order and builds the registry.
func Build(manifests ...Manifest) (*Registry, error) {
	b := NewBuilder()
	for _, m := range manifests {
		b.Register(m)
	}
	return b.Build()
}

// All returns every manifest in registration order.
func (r *Registry) All() []Manifest {
	out := make([]Manifest, len(r.manifests))
	for i, m := range r.manifests {
		out[i] = cloneManifest(m)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.manifests)
}

func (r *Registry) Lookup(key string) (Manifest, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Manifest{}, false
	}
	return cloneManifest(r.manifests[i]), true
}

func (r *Registry) ByCategory(c Category) []Manifest {
	var out []Manifest
	for _, m := range r.manifests {
		if m.Category == c {
			out = append(out, cloneManifest(m))
		}
	}
	return out
}

func (r *Registry) AdminRoutes() []RouteEntry {
	var out []RouteEntry
	for _, m := range r.manifests {
		for _, route := range m.AdminRoutes {
			out = append(out, RouteEntry{Path: route.Path, View: route.View, ModuleKey: m.Key})
		}
	}
	return out
}

func (r *Registry) UserRoutes() []RouteEntry {
	var out []RouteEntry
	for _, m := range r.manifests {
		for _, route := range m.UserRoutes {
			out = append(out, RouteEntry{Path: route.Path, View: route.View, ModuleKey: m.Key})
		}
	}
	return out
}

// AdminSidebarGroups groups admin routes by category. Groups come in the
// fixed category order and a category without manifests yields no group.
func (r *Registry) AdminSidebarGroups() []SidebarGroup {
	var groups []SidebarGroup
	for _, c := range Categories() {
		var items []SidebarItem
		for _, m := range r.manifests {
			if m.Category != c {
				continue
			}
			for _, route := range m.AdminRoutes {
				label := route.Label
				if label == "" {
					label = m.Name
				}
				items = append(items, SidebarItem{
					To:        AdminSettingsPath + "/" + route.Path,
					Label:     label,
					ModuleKey: m.Key,
				})
			}
		}
		if len(items) == 0 {
			continue
		}
		groups = append(groups, SidebarGroup{Group: c.GroupLabel(), Category: c, Items: items})
	}
	return groups
}

func (r *Registry) UserSidebarItems() []SidebarItem {
	var items []SidebarItem
	for _, m := range r.manifests {
		for _, route := range m.UserRoutes {
			items = append(items, SidebarItem{
				To:        UserProvidersPath + "/" + route.Path,
				Label:     route.Label,
				ModuleKey: m.Key,
			})
		}
	}
	return items
}

func validate(manifests []Manifest) error {
	var errs []error
	seen := make(map[string]int, len(manifests))
	adminPaths := make(map[string]string)
	userPaths := make(map[string]string)

	for i, m := range manifests {
		where := fmt.Sprintf("manifest %d (%q)", i, m.Key)
		if strings.TrimSpace(m.Key) == "" {
			errs = append(errs, fmt.Errorf("%s: key is required", where))
		} else if first, dup := seen[m.Key]; dup {
			errs = append(errs, fmt.Errorf("%s: key already registered by manifest %d", where, first))
		} else {
			seen[m.Key] = i
		}
		if !m.Category.Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown category %q (want one of %v)", where, m.Category, Categories()))
		}
		for _, route := range m.AdminRoutes {
			if err := checkSegment(route.Path); err != nil {
				errs = append(errs, fmt.Errorf("%s: admin route: %w", where, err))
				continue
			}
			if owner, dup := adminPaths[route.Path]; dup {
				errs = append(errs, fmt.Errorf("%s: admin path %q already used by %q", where, route.Path, owner))
			}
			adminPaths[route.Path] = m.Key
			if route.View.IsZero() {
				errs = append(errs, fmt.Errorf("%s: admin route %q has no view", where, route.Path))
			}
		}
		for _, route := range m.UserRoutes {
			if err := checkSegment(route.Path); err != nil {
				errs = append(errs, fmt.Errorf("%s: user route: %w", where, err))
				continue
			}
			if owner, dup := userPaths[route.Path]; dup {
				errs = append(errs, fmt.Errorf("%s: user path %q already used by %q", where, route.Path, owner))
			}
			userPaths[route.Path] = m.Key
			if route.View.IsZero() {
				errs = append(errs, fmt.Errorf("%s: user route %q has no view", where, route.Path))
			}
			if strings.TrimSpace(route.Label) == "" {
				errs = append(errs, fmt.Errorf("%s: user route %q needs a label", where, route.Path))
			}
		}
	}
	return errors.Join(errs...)
}

func checkSegment(segment string) error {
	switch {
	case segment == "":
		return errors.New("path segment is required")
	case strings.Contains(segment, "/"):
		return fmt.Errorf("path %q must be a single segment", segment)
	case strings.HasPrefix(segment, ":"):
		return fmt.Errorf("path %q cannot be a parameter", segment)
	}
	return nil
}

func cloneManifest(m Manifest) Manifest {
	m.AdminRoutes = append([]AdminRoute(nil), m.AdminRoutes...)
	m.UserRoutes = append([]UserRoute(nil), m.UserRoutes...)
	return m
}
