package xyb

import (
	"net/url"
	"strings"
)

// Fields is an insertion-ordered set of form fields for a single outgoing
// request. It is the only untyped boundary in the client: endpoints build it
// from named values, the signer consumes a snapshot, and Encode produces the
// literal request body.
type Fields struct {
	keys []string
	vals map[string]string
}

func NewFields() *Fields {
	return &Fields{vals: make(map[string]string)}
}

// Set adds or overwrites a field, keeping first-insertion order.
func (f *Fields) Set(key, value string) *Fields {
	if _, ok := f.vals[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.vals[key] = value
	return f
}

func (f *Fields) Get(key string) string {
	return f.vals[key]
}

func (f *Fields) Len() int {
	return len(f.keys)
}

// Map returns a snapshot for the signer.
func (f *Fields) Map() map[string]string {
	m := make(map[string]string, len(f.vals))
	for k, v := range f.vals {
		m[k] = v
	}
	return m
}

// Encode renders the x-www-form-urlencoded body in insertion order.
func (f *Fields) Encode() string {
	var b strings.Builder
	for i, k := range f.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.vals[k]))
	}
	return b.String()
}
