// Package loader resolves module references to schemas.
//
// A module is identified by its resolved URL. Modules are registered in Go
// or read from a mounted file system, imported once, and cached until
// invalidated. A module is either a factory invoked with the reference's
// arguments on every load, or a static schema returned as is.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/schemaui/pkg/errors"
)

// Factory produces a schema from reference arguments. It may be called from
// several goroutines at once.
type Factory func(ctx context.Context, args map[string]any) (any, error)

// Decoder converts a module file into a schema.
type Decoder func(data []byte) (any, error)

// Module is an imported module.
type Module struct {
	URL     string
	Factory Factory
	Schema  any
}

// Result reports how a Load was served.
type Result struct {
	URL    string
	Cached bool
	Err    error
}

type mount struct {
	prefix string
	fsys   fs.FS
}

// Loader imports and caches modules. Safe for concurrent use.
type Loader struct {
	mu       sync.Mutex
	registry map[string]Module
	mounts   []mount
	cache    map[string]*Module
	flight   singleflight.Group
	decode   Decoder
	logger   zerolog.Logger
	onLoad   func(Result)
}

// Option configures a Loader.
type Option func(*Loader)

// WithDecoder sets the decoder for files read from mounts.
func WithDecoder(d Decoder) Option {
	return func(l *Loader) {
		l.decode = d
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger.With().Str("component", "loader").Logger()
	}
}

// WithLoadHook is called after every Load.
func WithLoadHook(fn func(Result)) Option {
	return func(l *Loader) {
		l.onLoad = fn
	}
}

// New creates a Loader with no modules.
func New(opts ...Option) *Loader {
	l := &Loader{
		registry: make(map[string]Module),
		cache:    make(map[string]*Module),
		decode:   DecodeYAML,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DecodeYAML decodes a YAML document into plain maps and slices.
func DecodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Resolve resolves ref against base. An empty base is the root.
func Resolve(ref, base string) (string, error) {
	if base == "" {
		base = "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// Register adds a module under an absolute URL, replacing any earlier
// registration and cached import.
func (l *Loader) Register(url string, m Module) {
	m.URL = url
	l.mu.Lock()
	l.registry[url] = m
	delete(l.cache, url)
	l.mu.Unlock()
}

// RegisterFunc registers a factory module.
func (l *Loader) RegisterFunc(url string, fn Factory) {
	l.Register(url, Module{Factory: fn})
}

// RegisterSchema registers a static schema module.
func (l *Loader) RegisterSchema(url string, schema any) {
	l.Register(url, Module{Schema: schema})
}

// Mount serves URLs under prefix from files in fsys. Later mounts take
// precedence.
func (l *Loader) Mount(prefix string, fsys fs.FS) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	l.mu.Lock()
	l.mounts = append(l.mounts, mount{prefix: prefix, fsys: fsys})
	l.mu.Unlock()
}

// Load resolves ref against base, imports the module once and produces its
// schema. It returns the schema and the module URL.
func (l *Loader) Load(ctx context.Context, ref, base string, args map[string]any) (any, string, error) {
	u, err := Resolve(ref, base)
	if err != nil {
		return nil, "", &errors.Error{Op: "loader.Load", Kind: errors.KindLoad, Err: err, Path: ref}
	}
	mod, cached, err := l.Import(ctx, u)
	if l.onLoad != nil {
		l.onLoad(Result{URL: u, Cached: cached, Err: err})
	}
	if err != nil {
		return nil, u, err
	}
	if mod.Factory == nil {
		return mod.Schema, u, nil
	}
	schema, err := mod.Factory(ctx, args)
	if err != nil {
		return nil, u, &errors.Error{Op: "loader.Load", Kind: errors.KindLoad, Err: err, Path: u}
	}
	return schema, u, nil
}

// Import returns the module at url, importing it on first use. Concurrent
// imports of the same URL share one import.
func (l *Loader) Import(ctx context.Context, url string) (*Module, bool, error) {
	l.mu.Lock()
	if mod := l.cache[url]; mod != nil {
		l.mu.Unlock()
		return mod, true, nil
	}
	l.mu.Unlock()

	v, err, _ := l.flight.Do(url, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod, err := l.importModule(url)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if existing := l.cache[url]; existing != nil {
			mod = existing
		} else {
			l.cache[url] = mod
		}
		l.mu.Unlock()
		l.logger.Debug().Str("url", url).Msg("module imported")
		return mod, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Module), false, nil
}

func (l *Loader) importModule(url string) (*Module, error) {
	l.mu.Lock()
	reg, ok := l.registry[url]
	mounts := append([]mount(nil), l.mounts...)
	l.mu.Unlock()
	if ok {
		return &reg, nil
	}

	for i := len(mounts) - 1; i >= 0; i-- {
		m := mounts[i]
		if !strings.HasPrefix(url, m.prefix) {
			continue
		}
		name := path.Clean(strings.TrimPrefix(url, m.prefix))
		data, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, &errors.Error{Op: "loader.Import", Kind: errors.KindLoad, Err: err, Path: url}
		}
		schema, err := l.decode(data)
		if err != nil {
			return nil, &errors.Error{Op: "loader.Import", Kind: errors.KindLoad, Err: fmt.Errorf("decode %s: %w", name, err), Path: url}
		}
		return &Module{URL: url, Schema: schema}, nil
	}
	return nil, &errors.Error{Op: "loader.Import", Kind: errors.KindNotFound, Err: errors.ErrModuleNotFound, Path: url}
}

// Invalidate drops the cached import of url. The next Load imports again.
func (l *Loader) Invalidate(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[url]; !ok {
		return false
	}
	delete(l.cache, url)
	return true
}

// Purge drops every cached import.
func (l *Loader) Purge() {
	l.mu.Lock()
	l.cache = make(map[string]*Module)
	l.mu.Unlock()
}

// Cached returns the URLs of imported modules in sorted order.
func (l *Loader) Cached() []string {
	l.mu.Lock()
	urls := make([]string, 0, len(l.cache))
	for u := range l.cache {
		urls = append(urls, u)
	}
	l.mu.Unlock()
	sort.Strings(urls)
	return urls
}
