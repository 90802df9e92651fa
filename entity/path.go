// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package entity implements hierarchical entity paths, the '/'-separated
// names that identify the row of an entity store the way a filesystem
// path identifies a file.
package entity

import (
	"strings"

	"github.com/dchest/siphash"
)

// Path is a hierarchical, '/'-separated entity name such as
// "world/robot/camera". The root path has zero parts.
type Path struct {
	parts []string
}

// Root is the empty path at the top of the hierarchy.
var Root = Path{}

// New parses s into a Path. Leading, trailing, and repeated slashes are
// ignored, so "/a/b/", "a/b", and "a//b" all parse to the same Path.
func New(s string) Path {
	var parts []string
	for _, p := range strings.Split(s, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Path{parts: parts}
}

// Join builds a Path directly from its already-split components.
func Join(parts ...string) Path {
	return Path{parts: append([]string(nil), parts...)}
}

// String renders p in canonical "/a/b/c" form. The root renders as "/".
func (p Path) String() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

// Len returns the number of path components.
func (p Path) Len() int { return len(p.parts) }

// IsRoot returns whether p is the root path.
func (p Path) IsRoot() bool { return len(p.parts) == 0 }

// Parent returns p's parent and true, or the zero Path and false if p is
// already the root.
func (p Path) Parent() (Path, bool) {
	if len(p.parts) == 0 {
		return Path{}, false
	}
	return Path{parts: p.parts[:len(p.parts)-1]}, true
}

// Child returns the path obtained by appending name as a new component.
func (p Path) Child(name string) Path {
	parts := make([]string, len(p.parts)+1)
	copy(parts, p.parts)
	parts[len(p.parts)] = name
	return Path{parts: parts}
}

// HasPrefix returns whether prefix is a prefix of or equal to x, i.e.
// whether x names prefix or one of prefix's descendants.
func (prefix Path) HasPrefix(x Path) bool {
	if len(prefix.parts) > len(x.parts) {
		return false
	}
	for i, part := range prefix.parts {
		if x.parts[i] != part {
			return false
		}
	}
	return true
}

// Equal returns whether p and o name the same entity.
func (p Path) Equal(o Path) bool {
	if len(p.parts) != len(o.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// siphash keys are fixed and arbitrary: Hash only needs to be stable
// across calls within a process, not across processes or versions.
const hashKey0, hashKey1 = 0x9ae16a3b2f90404f, 0xc949d7c7509e6557

// Hash returns a stable 64-bit hash of p, suitable as a sharding key for
// the per-entity index shards an IndexStore keeps.
func (p Path) Hash() uint64 {
	return siphash.Hash(hashKey0, hashKey1, []byte(p.String()))
}
