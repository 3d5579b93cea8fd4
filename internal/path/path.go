// Package path implements the token-sequence location type used to address
// state inside a document. A Path is immutable; every mutator returns a new
// value.
package path

import "strings"

// separator used by the stable string encoding. It never appears inside a
// token because tokens are produced by schema field names, list entry ids,
// and tree node ids, none of which may contain it.
const separator = "/"

// Path is an ordered sequence of non-empty tokens identifying a location in
// document state. The zero value is Empty (the root).
type Path struct {
	tokens []string
}

// Empty returns the root path.
func Empty() Path {
	return Path{}
}

// FromTokens builds a Path from a token slice, silently dropping any empty
// token (per spec: the empty string is never a present token; a leading
// empty token just means "root").
func FromTokens(tokens ...string) Path {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return Path{tokens: out}
}

// Tokens returns the ordered, non-empty tokens of p. The returned slice is a
// copy; callers may not mutate it to affect p.
func (p Path) Tokens() []string {
	out := make([]string, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// Len reports how many tokens p carries.
func (p Path) Len() int {
	return len(p.tokens)
}

// IsEmpty reports whether p is the root path.
func (p Path) IsEmpty() bool {
	return len(p.tokens) == 0
}

// Append returns a new Path with token appended at the tail. An empty token
// is a no-op.
func (p Path) Append(token string) Path {
	if token == "" {
		return p
	}
	out := make([]string, len(p.tokens)+1)
	copy(out, p.tokens)
	out[len(p.tokens)] = token
	return Path{tokens: out}
}

// Concat returns a new Path with other's tokens appended after p's.
func (p Path) Concat(other Path) Path {
	out := make([]string, 0, len(p.tokens)+len(other.tokens))
	out = append(out, p.tokens...)
	out = append(out, other.tokens...)
	return Path{tokens: out}
}

// Shift returns a new Path with the first token dropped. Shifting Empty
// returns Empty.
func (p Path) Shift() Path {
	if len(p.tokens) == 0 {
		return p
	}
	out := make([]string, len(p.tokens)-1)
	copy(out, p.tokens[1:])
	return Path{tokens: out}
}

// Pop returns a new Path with the last token dropped. Popping Empty returns
// Empty.
func (p Path) Pop() Path {
	if len(p.tokens) == 0 {
		return p
	}
	out := make([]string, len(p.tokens)-1)
	copy(out, p.tokens[:len(p.tokens)-1])
	return Path{tokens: out}
}

// Head returns the first token and true, or "" and false if p is empty.
func (p Path) Head() (string, bool) {
	if len(p.tokens) == 0 {
		return "", false
	}
	return p.tokens[0], true
}

// Equals reports whether a and b carry identical token sequences.
func Equals(a, b Path) bool {
	if len(a.tokens) != len(b.tokens) {
		return false
	}
	for i := range a.tokens {
		if a.tokens[i] != b.tokens[i] {
			return false
		}
	}
	return true
}

// IsPrefix reports whether p's tokens are a prefix of q's tokens (p itself
// counts as a prefix of itself).
func IsPrefix(p, q Path) bool {
	if len(p.tokens) > len(q.tokens) {
		return false
	}
	for i := range p.tokens {
		if p.tokens[i] != q.tokens[i] {
			return false
		}
	}
	return true
}

// Overlap reports whether a and b overlap: one is a prefix of the other
// (in either direction, including equality).
func Overlap(a, b Path) bool {
	return IsPrefix(a, b) || IsPrefix(b, a)
}

// Encode returns the stable string encoding used as a dedup key. It is
// bijective with Tokens: Decode(Encode(p)) == p for all p.
func (p Path) Encode() string {
	if len(p.tokens) == 0 {
		return separator
	}
	return separator + strings.Join(p.tokens, separator)
}

// Decode parses the stable string encoding produced by Encode.
func Decode(s string) Path {
	trimmed := strings.Trim(s, separator)
	if trimmed == "" {
		return Empty()
	}
	return FromTokens(strings.Split(trimmed, separator)...)
}

// String renders p using its stable encoding, for logging and debugging.
func (p Path) String() string {
	return p.Encode()
}
