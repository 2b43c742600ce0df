// Package views resolves the view resources that console routes point at.
//
// A route stores a Ref, never the loaded view. The first navigation to a
// route loads the resource through a Loader; later navigations reuse the
// cached View. Concurrent first navigations share a single load.
package views

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ordertrack/console/internal/metrics"
)

var ErrNotFound = errors.New("view not found")

// Ref names a view resource without loading it.
type Ref struct {
	Name string `json:"name"`
}

// Lazy returns a reference to the named view.
func Lazy(name string) Ref {
	return Ref{Name: name}
}

func (r Ref) IsZero() bool {
	return r.Name == ""
}

type View struct {
	Name     string    `json:"name"`
	Asset    string    `json:"asset"`
	Digest   string    `json:"digest"`
	Size     int       `json:"size"`
	Body     []byte    `json:"-"`
	LoadedAt time.Time `json:"loadedAt"`
}

type Loader interface {
	Load(ctx context.Context, name string) (View, error)
}

type LoaderFunc func(ctx context.Context, name string) (View, error)

func (f LoaderFunc) Load(ctx context.Context, name string) (View, error) {
	return f(ctx, name)
}

// FSLoader reads view bundles from a file tree, one file per view.
type FSLoader struct {
	fsys fs.FS
	ext  string
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys, ext: ".html"}
}

func (l *FSLoader) Load(ctx context.Context, name string) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	asset := path.Clean(strings.TrimPrefix(name, "/")) + l.ext
	if !fs.ValidPath(asset) {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	body, err := fs.ReadFile(l.fsys, asset)
	if errors.Is(err, fs.ErrNotExist) {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return View{}, fmt.Errorf("read view %s: %w", name, err)
	}
	sum := sha256.Sum256(body)
	return View{
		Name:     name,
		Asset:    asset,
		Digest:   hex.EncodeToString(sum[:]),
		Size:     len(body),
		Body:     body,
		LoadedAt: time.Now(),
	}, nil
}

// Resolver caches loaded views by name. Failed loads are not cached.
type Resolver struct {
	loader Loader
	log    *zap.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]View
}

type Option func(*Resolver)

func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

func NewResolver(loader Loader, opts ...Option) *Resolver {
	r := &Resolver{
		loader: loader,
		log:    zap.NewNop(),
		cache:  make(map[string]View),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, ref Ref) (View, error) {
	if ref.IsZero() {
		return View{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if view, ok := r.cached(ref.Name); ok {
		metrics.ViewLoads.WithLabelValues("cached").Inc()
		return view, nil
	}

	// The load is detached from the caller so one abandoned navigation does
	// not fail the others waiting on the same view.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(ref.Name, func() (any, error) {
		if view, ok := r.cached(ref.Name); ok {
			return view, nil
		}
		view, err := r.loader.Load(loadCtx, ref.Name)
		if err != nil {
			metrics.ViewLoads.WithLabelValues("error").Inc()
			return View{}, err
		}
		r.mu.Lock()
		r.cache[ref.Name] = view
		r.mu.Unlock()
		metrics.ViewLoads.WithLabelValues("loaded").Inc()
		r.log.Debug("view loaded", zap.String("view", ref.Name), zap.Int("size", view.Size))
		return view, nil
	})

	select {
	case <-ctx.Done():
		return View{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return View{}, res.Err
		}
		return res.Val.(View), nil
	}
}

// ResolveAll resolves refs in order, skipping zero refs.
func (r *Resolver) ResolveAll(ctx context.Context, refs []Ref) ([]View, error) {
	out := make([]View, 0, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		view, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// Cached reports whether name has already been loaded.
func (r *Resolver) Cached(name string) bool {
	_, ok := r.cached(name)
	return ok
}

func (r *Resolver) cached(name string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.cache[name]
	return view, ok
}
