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

package entity

import "testing"

func TestPathParsing(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a/b/c", "/a/b/c"},
		{"/a/b/", "/a/b"},
		{"a//b", "/a/b"},
		{"", "/"},
		{"/", "/"},
	}
	for _, c := range cases {
		if got := New(c.in).String(); got != c.want {
			t.Errorf("New(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPathParentAndChild(t *testing.T) {
	p := New("world/robot/camera")
	parent, ok := p.Parent()
	if !ok || parent.String() != "/world/robot" {
		t.Fatalf("Parent() = %q, %v", parent, ok)
	}
	child := parent.Child("camera")
	if !child.Equal(p) {
		t.Fatalf("Parent().Child(...) = %q, want %q", child, p)
	}
	if _, ok := Root.Parent(); ok {
		t.Fatal("Root should have no parent")
	}
}

func TestPathHasPrefix(t *testing.T) {
	a := New("world/robot")
	b := New("world/robot/camera")
	if !a.HasPrefix(b) {
		t.Fatal("world/robot should be a prefix of world/robot/camera")
	}
	if b.HasPrefix(a) {
		t.Fatal("world/robot/camera should not be a prefix of world/robot")
	}
}

func TestPathHashStable(t *testing.T) {
	a := New("world/robot/camera")
	b := New("world/robot/camera")
	if a.Hash() != b.Hash() {
		t.Fatal("equal paths must hash identically")
	}
	if a.Hash() == New("world/robot/wheel").Hash() {
		t.Fatal("distinct paths hashing to the same value (extremely unlikely, check Hash())")
	}
}
