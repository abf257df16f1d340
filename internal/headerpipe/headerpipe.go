// Package headerpipe implements the case-insensitive header accessor used
// uniformly on both the request and response side of a Request Record (C2).
// Unlike net/http.Header, which canonicalises names to MIME-header-case and
// loses the caller's original casing, Pipe keeps the name as first written
// and only normalises for lookup, while exposing insertion order on Keys.
package headerpipe

import "strings"

// Pipe is a small ordered, case-insensitive multimap of header name to
// values. The zero value is ready to use.
type Pipe struct {
	// order keeps the lower-cased keys in first-insertion order.
	order []string
	// values is keyed by the lower-cased name.
	values map[string][]string
	// original remembers the casing the header was first set with.
	original map[string]string
}

// New returns an empty Pipe.
func New() *Pipe {
	return &Pipe{
		values:   make(map[string][]string),
		original: make(map[string]string),
	}
}

// FromMap builds a Pipe from a map as it arrives over the wire (IPC/fetch),
// where each header name maps to a slice of its values. Insertion
// order follows Go's (unspecified) map iteration order, since the wire
// format itself does not preserve order across a JSON object.
func FromMap(h map[string][]string) *Pipe {
	p := New()
	for name, values := range h {
		for _, v := range values {
			p.Add(name, v)
		}
	}
	return p
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Add appends a value for name without disturbing existing values,
// preserving insertion order the way HTTP headers are received on the wire.
func (p *Pipe) Add(name, value string) {
	k := key(name)
	if p.values == nil {
		p.values = make(map[string][]string)
		p.original = make(map[string]string)
	}
	if _, exists := p.values[k]; !exists {
		p.order = append(p.order, k)
		p.original[k] = name
	}
	p.values[k] = append(p.values[k], value)
}

// GetHeader returns the first value for name (case-insensitive) and whether
// it was present at all.
func (p *Pipe) GetHeader(name string) (string, bool) {
	vs, ok := p.values[key(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetAll returns every value recorded for name, in insertion order.
func (p *Pipe) GetAll(name string) []string {
	return append([]string(nil), p.values[key(name)]...)
}

// SetHeader replaces all values of name with value. A header set after being
// deleted is treated as a fresh insertion point in the iteration order
// (last-write-wins per spec invariant (ii)).
func (p *Pipe) SetHeader(name, value string) {
	k := key(name)
	if p.values == nil {
		p.values = make(map[string][]string)
		p.original = make(map[string]string)
	}
	if _, exists := p.values[k]; !exists {
		p.order = append(p.order, k)
		p.original[k] = name
	}
	p.values[k] = []string{value}
}

// DeleteHeader removes all values for name.
func (p *Pipe) DeleteHeader(name string) {
	k := key(name)
	if _, ok := p.values[k]; !ok {
		return
	}
	delete(p.values, k)
	delete(p.original, k)
	for i, existing := range p.order {
		if existing == k {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Keys returns the header names in insertion order, using the casing each
// name was first set/added with.
func (p *Pipe) Keys() []string {
	keys := make([]string, 0, len(p.order))
	for _, k := range p.order {
		keys = append(keys, p.original[k])
	}
	return keys
}

// Map flattens the Pipe into a plain map[string][]string suitable for
// serialisation over IPC or into a CDP frame, keyed by original casing.
func (p *Pipe) Map() map[string][]string {
	out := make(map[string][]string, len(p.order))
	for _, k := range p.order {
		out[p.original[k]] = append([]string(nil), p.values[k]...)
	}
	return out
}

// Flat collapses multi-value headers into a single comma-joined string per
// name, the representation CDP's Network.Headers expects on the wire.
func (p *Pipe) Flat() map[string]string {
	out := make(map[string]string, len(p.order))
	for _, k := range p.order {
		out[p.original[k]] = strings.Join(p.values[k], ", ")
	}
	return out
}
