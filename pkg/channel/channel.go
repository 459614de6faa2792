// Package channel provides scoped publish/subscribe messaging between
// components that hold no references to each other.
//
// A channel is keyed by its name and the resolved URL of the module that
// declares the subscribing component, so two features may use the same
// channel name without hearing each other.
package channel

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/go-drift/schemaui/pkg/errors"
)

// Delimiter separates the channel name from the module URL in a scope.
const Delimiter = "@"

// DefaultListenerWarnThreshold is the subscriber count above which a
// channel key logs a possible leak.
const DefaultListenerWarnThreshold = 10

// Origin is a component that may bind or emit channels. ModuleURL returns
// the URL of the module that declared it, or "" when unknown.
type Origin interface {
	ModuleURL() string
}

// Handler receives the data of an emitted message.
type Handler func(data any)

// Subscription is an active channel binding.
type Subscription struct {
	manager  *Manager
	key      string
	owner    Origin
	handler  Handler
	seq      uint64
	canceled atomic.Bool
}

// Key returns the scoped channel key.
func (s *Subscription) Key() string {
	return s.key
}

// Cancel stops receiving messages on this subscription.
func (s *Subscription) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.manager.remove(s)
	}
}

// IsCanceled returns true if this subscription has been canceled.
func (s *Subscription) IsCanceled() bool {
	return s.canceled.Load()
}

// Manager is a registry of channel subscriptions.
type Manager struct {
	mu       sync.Mutex
	buckets  map[string][]*Subscription
	seq      uint64
	warnAt   int
	handler  errors.Handler
	logger   zerolog.Logger
	onEmit   func(key string, delivered int)
	warnings int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for listener warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger.With().Str("component", "channel").Logger()
	}
}

// WithErrorHandler sets where handler panics are reported.
func WithErrorHandler(h errors.Handler) Option {
	return func(m *Manager) {
		m.handler = h
	}
}

// WithListenerWarnThreshold sets the per-key subscriber count that triggers
// a warning. Zero disables warnings.
func WithListenerWarnThreshold(n int) Option {
	return func(m *Manager) {
		m.warnAt = n
	}
}

// WithEmitHook is called after every emit with the matched scope and the
// number of handlers invoked.
func WithEmitHook(fn func(scope string, delivered int)) Option {
	return func(m *Manager) {
		m.onEmit = fn
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		buckets: make(map[string][]*Subscription),
		warnAt:  DefaultListenerWarnThreshold,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Scope returns the key a channel name has for a module URL.
func Scope(name, moduleURL string) string {
	return name + Delimiter + moduleURL
}

// resolve resolves path against base the way module references are
// resolved.
func resolve(path, base string) (string, error) {
	if base == "" {
		base = "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(p).String(), nil
}

func originURL(op, name string, origin Origin) (string, error) {
	if origin == nil || origin.ModuleURL() == "" {
		return "", &errors.Error{Op: op, Kind: errors.KindScope, Err: errors.ErrUnscopedChannel, Channel: name}
	}
	return origin.ModuleURL(), nil
}

// Bind registers fn under name scoped to owner's module. Owners without a
// module URL fail with ErrUnscopedChannel.
func (m *Manager) Bind(owner Origin, name string, fn Handler) (*Subscription, error) {
	moduleURL, err := originURL("channel.Bind", name, owner)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.seq++
	sub := &Subscription{manager: m, key: Scope(name, moduleURL), owner: owner, handler: fn, seq: m.seq}
	m.buckets[sub.key] = append(m.buckets[sub.key], sub)
	count := len(m.buckets[sub.key])
	warn := m.warnAt > 0 && count > m.warnAt
	if warn {
		m.warnings++
	}
	m.mu.Unlock()

	if warn {
		m.logger.Warn().Str("channel", sub.key).Int("subscribers", count).Msg("possible channel subscription leak")
	}
	return sub, nil
}

// Emit delivers data to every handler whose key starts with one of the
// target scopes. Targets are the given paths resolved against the origin's
// module URL, or the origin's own module when no path is given. Handlers
// run synchronously in registration order. Emit returns the number of
// handlers invoked.
func (m *Manager) Emit(origin Origin, name string, data any, paths ...string) (int, error) {
	moduleURL, err := originURL("channel.Emit", name, origin)
	if err != nil {
		return 0, err
	}
	scopes := []string{Scope(name, moduleURL)}
	if len(paths) > 0 {
		scopes = scopes[:0]
		for _, p := range paths {
			target, err := resolve(p, moduleURL)
			if err != nil {
				return 0, &errors.Error{Op: "channel.Emit", Kind: errors.KindScope, Err: err, Channel: name, Path: p}
			}
			scopes = append(scopes, Scope(name, target))
		}
	}

	subs := m.match(scopes)
	delivered := 0
	for _, sub := range subs {
		if sub.IsCanceled() || sub.handler == nil {
			continue
		}
		m.deliver(sub, data)
		delivered++
	}
	if m.onEmit != nil {
		m.onEmit(strings.Join(scopes, ","), delivered)
	}
	return delivered, nil
}

func (m *Manager) deliver(sub *Subscription, data any) {
	defer errors.Recover(m.handler, "channel."+sub.key)
	sub.handler(data)
}

// match snapshots the subscriptions matching any scope, ordered by
// registration.
func (m *Manager) match(scopes []string) []*Subscription {
	m.mu.Lock()
	var subs []*Subscription
	for key, bucket := range m.buckets {
		for _, scope := range scopes {
			if strings.HasPrefix(key, scope) {
				subs = append(subs, bucket...)
				break
			}
		}
	}
	m.mu.Unlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
	return subs
}

func (m *Manager) remove(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(sub)
}

func (m *Manager) removeLocked(sub *Subscription) {
	bucket := m.buckets[sub.key]
	for i, s := range bucket {
		if s == sub {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m.buckets, sub.key)
		return
	}
	m.buckets[sub.key] = bucket
}

// Clear removes owner's subscriptions to name. An empty name removes all of
// owner's subscriptions. It returns the number removed.
func (m *Manager) Clear(owner Origin, name string) int {
	m.mu.Lock()
	var removed []*Subscription
	for _, bucket := range m.buckets {
		for _, sub := range bucket {
			if sub.owner != owner {
				continue
			}
			if name != "" && !strings.HasPrefix(sub.key, name+Delimiter) {
				continue
			}
			removed = append(removed, sub)
		}
	}
	for _, sub := range removed {
		sub.canceled.Store(true)
		m.removeLocked(sub)
	}
	m.mu.Unlock()
	return len(removed)
}

// ClearAll removes every subscription.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	for _, bucket := range m.buckets {
		for _, sub := range bucket {
			sub.canceled.Store(true)
		}
	}
	m.buckets = make(map[string][]*Subscription)
	m.mu.Unlock()
}

// Keys returns the live channel keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	keys := make([]string, 0, len(m.buckets))
	for key := range m.buckets {
		keys = append(keys, key)
	}
	m.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Count returns the number of live subscriptions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return n
}

// ListenerWarnings returns how many binds exceeded the warning threshold.
func (m *Manager) ListenerWarnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}
