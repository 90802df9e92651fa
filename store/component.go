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

package store

import (
	"sort"

	"github.com/rowkeeper/entitystore/cell"
	"github.com/rowkeeper/entitystore/ints"
)

// ComponentBucket holds one contiguous, RowId-ordered range of values
// for a single component, the way a blockfmt data block holds one
// contiguous byte range of a packed column. Buckets are append-only
// and are evicted whole by GC; there is no in-place deletion.
type ComponentBucket struct {
	rowIDs []RowId
	cells  []cell.DataCell
	bytes  int
}

// Len returns the number of rows held in b.
func (b *ComponentBucket) Len() int { return len(b.rowIDs) }

// Bytes returns b's current byte-size estimate.
func (b *ComponentBucket) Bytes() int { return b.bytes }

func (b *ComponentBucket) push(id RowId, c cell.DataCell) {
	b.rowIDs = append(b.rowIDs, id)
	b.cells = append(b.cells, c)
	b.bytes += cellSize(c)
}

// get looks up the cell stored for RowId id. RowIds within a bucket
// are strictly increasing (rows are appended in insertion order and
// RowId is monotonic), so this is a binary search rather than a scan.
func (b *ComponentBucket) get(id RowId) (cell.DataCell, bool) {
	i := sort.Search(len(b.rowIDs), func(i int) bool { return b.rowIDs[i] >= id })
	if i < len(b.rowIDs) && b.rowIDs[i] == id {
		return b.cells[i], true
	}
	return cell.DataCell{}, false
}

func cellSize(c cell.DataCell) int {
	n := 0
	for _, v := range c.Values {
		n += v.Size()
	}
	return n
}

// ComponentStore holds every ComponentBucket for a single component
// name, oldest first. Because RowIds are allocated in strictly
// increasing order store-wide, the buckets' RowId ranges never
// overlap: a binary search over bucket boundaries locates the bucket
// that would hold a given RowId without needing a back-pointer from
// the index into the component storage.
type ComponentStore struct {
	Name           cell.ComponentName
	buckets        []*ComponentBucket
	rowsPerBucket  int
	bytesPerBucket int
}

// NewComponentStore constructs a ComponentStore that rolls a new
// bucket over once the open bucket reaches rowsPerBucket rows or
// bytesPerBucket bytes, whichever comes first. A rowsPerBucket of 0
// starts a new bucket for every insert; a bytesPerBucket of 0 disables
// the byte threshold.
func NewComponentStore(name cell.ComponentName, rowsPerBucket, bytesPerBucket int) *ComponentStore {
	return &ComponentStore{
		Name:           name,
		rowsPerBucket:  ints.Max(0, rowsPerBucket),
		bytesPerBucket: ints.Max(0, bytesPerBucket),
	}
}

// Insert appends c under RowId id, rolling over to a new bucket first
// if the open bucket has hit a configured threshold.
func (cs *ComponentStore) Insert(id RowId, c cell.DataCell) {
	var cur *ComponentBucket
	if n := len(cs.buckets); n > 0 {
		cur = cs.buckets[n-1]
	}
	full := cur != nil && (cur.Len() >= cs.rowsPerBucket ||
		(cs.bytesPerBucket > 0 && cur.Bytes() >= cs.bytesPerBucket))
	if cur == nil || full {
		cur = &ComponentBucket{}
		cs.buckets = append(cs.buckets, cur)
	}
	cur.push(id, c)
}

// Get finds the cell stored for RowId id across every surviving
// bucket (a GC'd row simply yields ok == false).
func (cs *ComponentStore) Get(id RowId) (cell.DataCell, bool) {
	// buckets hold disjoint, increasing RowId ranges: find the one
	// whose first RowId is <= id via a boundary search, then check it.
	i := sort.Search(len(cs.buckets), func(i int) bool {
		b := cs.buckets[i]
		return b.Len() == 0 || b.rowIDs[0] > id
	})
	if i == 0 {
		return cell.DataCell{}, false
	}
	return cs.buckets[i-1].get(id)
}

// Buckets returns the oldest-first bucket list, for GC and
// sanity-check inspection.
func (cs *ComponentStore) Buckets() []*ComponentBucket { return cs.buckets }

// DropOldest evicts the single oldest bucket, if any, and returns how
// many rows and bytes it held.
func (cs *ComponentStore) DropOldest() (rows, bytes int) {
	if len(cs.buckets) == 0 {
		return 0, 0
	}
	dropped := cs.buckets[0]
	cs.buckets = cs.buckets[1:]
	return dropped.Len(), dropped.Bytes()
}

// TotalRows returns the number of rows summed across every surviving
// bucket.
func (cs *ComponentStore) TotalRows() int {
	n := 0
	for _, b := range cs.buckets {
		n += b.Len()
	}
	return n
}

// TotalBytes returns the byte estimate summed across every surviving
// bucket.
func (cs *ComponentStore) TotalBytes() int {
	n := 0
	for _, b := range cs.buckets {
		n += b.Bytes()
	}
	return n
}
