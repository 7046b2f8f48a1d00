/*
Package checks provides utilities to check for certain properties of the
tokens found in a statistics corpus: sequence fragments and defines.
*/
package checks

import (
	"strings"
)

// IsRNA accepts a string and checks if it is a valid RNA sequence. Case is
// ignored. The empty string is a valid (empty) fragment.
func IsRNA(seq string) bool {
	for _, base := range strings.ToUpper(seq) {
		switch base {
		case 'A', 'C', 'U', 'G':
			continue
		default:
			return false
		}
	}
	return true
}

// IsDefine checks that define is a well formed element define: an even
// number of 1-based residue positions that never decrease, read as
// consecutive (start, end) pairs.
func IsDefine(define []int) bool {
	if len(define)%2 != 0 {
		return false
	}
	for i, position := range define {
		if position < 1 {
			return false
		}
		if i > 0 && position < define[i-1] {
			return false
		}
	}
	return true
}
