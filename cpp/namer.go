// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "fmt"

// namer generates unique identifiers for one lowering pass. Its counter
// is seeded fresh per pass so independent passes over the same kernel
// produce byte-identical names.
type namer struct {
	dialect   Dialect
	usedNames map[string]struct{}
	counter   uint32
}

func newNamer(d Dialect) *namer {
	return &namer{
		dialect:   d,
		usedNames: make(map[string]struct{}),
	}
}

// call generates a unique name based on the given base, escaping reserved
// words and adding a numeric suffix on collision.
func (n *namer) call(base string) string {
	escaped := escapeName(n.dialect, base)
	if _, used := n.usedNames[escaped]; !used {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}

	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}
