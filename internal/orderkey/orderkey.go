// Package orderkey implements the densely-between-generable ordering key
// used to position list and tree children. The core treats it as an
// external capability (spec.md §4.2): this is the reference
// implementation, not a mandated algorithm.
package orderkey

import "strings"

// alphabet is the digit set used for key bodies, in ascending order. It
// excludes characters that sort unpredictably across locales.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	minDigit = 0
	midDigit = len(alphabet) / 2
	maxDigit = len(alphabet) - 1
)

// Key is a totally ordered string. Two Keys compare with the standard
// library's string ordering (Compare, <, >, ==); this is exactly the
// lexicographic order the package maintains.
type Key string

// Compare mirrors the teacher's pkg/types.Comparable contract so OrderKey
// values can be dropped into the same sorted-by-position idiom used
// throughout the schema package.
func (k Key) Compare(other Key) int {
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

// Between returns a key strictly greater than left (if present) and
// strictly less than right (if present). Called with both nil it returns a
// key at the middle of the keyspace. Called with only one bound it
// generates a key walking away from that bound so the space stays
// unbounded on either side.
func Between(left, right *Key) Key {
	var l, r string
	if left != nil {
		l = string(*left)
	}
	if right != nil {
		r = string(*right)
	}

	if l != "" && r != "" && l >= r {
		panic("orderkey: Between requires left < right")
	}

	return Key(between(l, r))
}

func between(l, r string) string {
	var out []byte
	i := 0
	for {
		lDigit := digitAt(l, i)
		rDigit, rBounded := digitAtBounded(r, i)

		if rBounded && lDigit == rDigit {
			out = append(out, alphabet[lDigit])
			i++
			continue
		}

		upper := maxDigit + 1
		if rBounded {
			upper = rDigit
		}

		if upper-lDigit > 1 {
			mid := lDigit + (upper-lDigit)/2
			out = append(out, alphabet[mid])
			return string(out)
		}

		// No room between lDigit and upper at this position: take lDigit
		// and recurse to the next position to find room there.
		out = append(out, alphabet[lDigit])
		i++
	}
}

func digitAt(s string, i int) int {
	if i >= len(s) {
		return minDigit
	}
	return digitValue(s[i])
}

func digitAtBounded(s string, i int) (int, bool) {
	if i >= len(s) {
		return 0, false
	}
	return digitValue(s[i]), true
}

func digitValue(b byte) int {
	idx := strings.IndexByte(alphabet, b)
	if idx < 0 {
		return minDigit
	}
	return idx
}

// First returns a key suitable for a single, first element (mid of the
// keyspace), equivalent to Between(nil, nil).
func First() Key {
	return Between(nil, nil)
}
