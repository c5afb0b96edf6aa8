// Package name implements hierarchical, slash-delimited names.
//
// A Name is an ordered list of binary components. Names are written as URIs
// where every byte outside the unreserved set (ALPHA / DIGIT / "-" / "." /
// "_" / "~") is percent-encoded with uppercase hex. A component made only of
// periods is written with three extra periods, so the empty component is
// "...".
//
// Two typed components carry numbers: segment components (marker 0x00) and
// version components (marker 0xFD). Both encode the number as a big-endian
// non-negative integer of 1, 2, 4, or 8 bytes. Segment 1 is written "%00%01";
// version 1 is written "%FD%01".
package name

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	markerSegment = 0x00
	markerVersion = 0xFD
)

// Component is a single name component holding raw bytes.
type Component string

// Name is an ordered sequence of components. The zero value is the root
// name "/".
type Name []Component

// FromString creates a generic component from its raw text.
func FromString(s string) Component {
	return Component(s)
}

// FromSegment creates a segment-number component.
func FromSegment(seg uint64) Component {
	return Component(append([]byte{markerSegment}, encodeNonNegInt(seg)...))
}

// FromVersion creates a version component.
func FromVersion(v uint64) Component {
	return Component(append([]byte{markerVersion}, encodeNonNegInt(v)...))
}

// IsSegment reports whether c is a well-formed segment component.
func (c Component) IsSegment() bool {
	_, err := c.ToSegment()
	return err == nil
}

// ToSegment decodes a segment component.
func (c Component) ToSegment() (uint64, error) {
	return c.toMarkedNumber(markerSegment)
}

// IsVersion reports whether c is a well-formed version component.
func (c Component) IsVersion() bool {
	_, err := c.ToVersion()
	return err == nil
}

// ToVersion decodes a version component.
func (c Component) ToVersion() (uint64, error) {
	return c.toMarkedNumber(markerVersion)
}

func (c Component) toMarkedNumber(marker byte) (uint64, error) {
	if len(c) < 2 || c[0] != marker {
		return 0, fmt.Errorf("component %s is not marked 0x%02X", c.String(), marker)
	}
	return decodeNonNegInt([]byte(c[1:]))
}

// Text returns the raw component bytes as a string.
func (c Component) Text() string {
	return string(c)
}

// String returns the URI-escaped form of the component.
func (c Component) String() string {
	var b strings.Builder
	onlyPeriods := true
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if ch != '.' {
			onlyPeriods = false
		}
		if isUnreserved(ch) {
			b.WriteByte(ch)
		} else {
			fmt.Fprintf(&b, "%%%02X", ch)
		}
	}
	if onlyPeriods {
		return b.String() + "..."
	}
	return b.String()
}

// Parse parses a URI such as "/catalog/query/%7B%7D". An optional "ndn:"
// scheme is accepted. Empty path segments (repeated or trailing slashes)
// are ignored.
func Parse(uri string) (Name, error) {
	uri = strings.TrimPrefix(uri, "ndn:")
	if uri != "" && uri[0] != '/' {
		return nil, fmt.Errorf("name %q must start with '/'", uri)
	}

	var n Name
	for _, part := range strings.Split(uri, "/") {
		if part == "" {
			continue
		}
		comp, err := parseComponent(part)
		if err != nil {
			return nil, fmt.Errorf("name %q: %w", uri, err)
		}
		n = append(n, comp)
	}
	return n, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant input.
func MustParse(uri string) Name {
	n, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return n
}

func parseComponent(s string) (Component, error) {
	if strings.Trim(s, ".") == "" {
		if len(s) < 3 {
			return "", fmt.Errorf("component %q is not a valid period-only component", s)
		}
		return Component(s[3:]), nil
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			buf = append(buf, s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape in component %q", s)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q in component %q", s[i:i+3], s)
		}
		buf = append(buf, hi<<4|lo)
		i += 2
	}
	return Component(buf), nil
}

// String returns the URI form of the name. The root name is "/".
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range n {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// Len returns the number of components.
func (n Name) Len() int {
	return len(n)
}

// At returns the component at index i. Negative indexes count from the end,
// so At(-1) is the last component.
func (n Name) At(i int) Component {
	if i < 0 {
		i += len(n)
	}
	return n[i]
}

// Prefix returns the first k components. A negative k drops -k components
// from the end. The result never aliases n.
func (n Name) Prefix(k int) Name {
	if k < 0 {
		k += len(n)
	}
	k = max(0, min(k, len(n)))
	out := make(Name, k)
	copy(out, n[:k])
	return out
}

// Append returns a new name with the components appended.
// The receiver is never modified.
func (n Name) Append(comps ...Component) Name {
	out := make(Name, 0, len(n)+len(comps))
	out = append(out, n...)
	return append(out, comps...)
}

// AppendString appends a generic component holding s.
func (n Name) AppendString(s string) Name {
	return n.Append(FromString(s))
}

// AppendName appends all components of other.
func (n Name) AppendName(other Name) Name {
	return n.Append(other...)
}

// AppendSegment appends a segment-number component.
func (n Name) AppendSegment(seg uint64) Name {
	return n.Append(FromSegment(seg))
}

// AppendVersion appends a version component.
func (n Name) AppendVersion(v uint64) Name {
	return n.Append(FromVersion(v))
}

// IsPrefixOf reports whether every component of n matches the start of other.
func (n Name) IsPrefixOf(other Name) bool {
	if len(n) > len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// Equal reports whether the names have identical components.
func (n Name) Equal(other Name) bool {
	return len(n) == len(other) && n.IsPrefixOf(other)
}

// encodeNonNegInt encodes v in the shortest of 1, 2, 4, or 8 big-endian bytes.
func encodeNonNegInt(v uint64) []byte {
	switch {
	case v <= 0xFF:
		return []byte{byte(v)}
	case v <= 0xFFFF:
		return binary.BigEndian.AppendUint16(nil, uint16(v))
	case v <= 0xFFFFFFFF:
		return binary.BigEndian.AppendUint32(nil, uint32(v))
	default:
		return binary.BigEndian.AppendUint64(nil, v)
	}
}

func decodeNonNegInt(b []byte) (uint64, error) {
	switch len(b) {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	case 8:
		return binary.BigEndian.Uint64(b), nil
	default:
		return 0, fmt.Errorf("invalid non-negative integer length %d", len(b))
	}
}

func isUnreserved(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' ||
		ch >= 'a' && ch <= 'z' ||
		ch >= '0' && ch <= '9' ||
		ch == '-' || ch == '.' || ch == '_' || ch == '~'
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
