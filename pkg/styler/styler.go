// Package styler turns style objects into generated class names and keeps
// the stylesheet of rules those classes need.
package styler

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Prefix starts every generated class name.
const Prefix = "s-"

// Styler maps style objects to class names. A selector's rule is added to
// the sheet once no matter how many components use it. Safe for concurrent
// use.
type Styler struct {
	mu    sync.Mutex
	rules map[string]string
	order []string
}

// New creates an empty Styler.
func New() *Styler {
	return &Styler{rules: make(map[string]string)}
}

// ClassName returns a deterministic class for styles on tag. Equal style
// objects always produce the same class regardless of key order.
func ClassName(styles map[string]any, tag string) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.EncodeString(tag); err != nil {
		return "", err
	}
	if err := enc.Encode(styles); err != nil {
		return "", fmt.Errorf("encode styles: %w", err)
	}
	return Prefix + strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 36), nil
}

// Declarations formats styles as a CSS declaration block body. Keys are
// written in kebab case and sorted.
func Declarations(styles map[string]any) string {
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := styles[k]
		if v == nil || v == false || v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(kebab(k))
		b.WriteString(": ")
		b.WriteString(value(v))
	}
	return b.String()
}

func value(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case int, int64, float64:
		return fmt.Sprintf("%vpx", typed)
	}
	return fmt.Sprint(v)
}

func kebab(s string) string {
	if strings.ContainsRune(s, '-') {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ApplyRule adds a rule for selector. It reports whether the rule is new;
// a selector that already has a rule is left alone.
func (s *Styler) ApplyRule(selector, body string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[selector]; ok {
		return false
	}
	s.rules[selector] = body
	s.order = append(s.order, selector)
	return true
}

// Use returns the class for styles on tag and makes sure its rule exists.
// Empty styles have no class.
func (s *Styler) Use(styles map[string]any, tag string) (string, error) {
	if len(styles) == 0 {
		return "", nil
	}
	class, err := ClassName(styles, tag)
	if err != nil {
		return "", err
	}
	s.ApplyRule("."+class, Declarations(styles))
	return class, nil
}

// Len returns the number of rules.
func (s *Styler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// CSS renders the sheet in the order rules were added.
func (s *Styler) CSS() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, selector := range s.order {
		fmt.Fprintf(&b, "%s { %s }\n", selector, s.rules[selector])
	}
	return b.String()
}

// Reset drops every rule.
func (s *Styler) Reset() {
	s.mu.Lock()
	s.rules = make(map[string]string)
	s.order = nil
	s.mu.Unlock()
}
