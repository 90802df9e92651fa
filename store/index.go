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

	"github.com/rowkeeper/entitystore/timeline"
)

// IndexBucket holds one contiguous, append-only range of (time, RowId)
// entries for a single entity/timeline shard, the way a blockfmt
// TimeIndex entry tracks the time range covered by one data block.
//
// Entries are appended in insertion order; the (time, RowId) ordering
// invariant is restored lazily by sort rather than on every push, so a
// burst of in-order inserts (the common case) never pays a sort cost.
type IndexBucket struct {
	times  []timeline.TimeInt
	rowIDs []RowId
	dirty  bool
}

// Len returns the number of rows indexed by b.
func (b *IndexBucket) Len() int { return len(b.times) }

// push appends one (time, RowId) pair, marking b dirty if this breaks
// the sorted-order invariant.
func (b *IndexBucket) push(t timeline.TimeInt, id RowId) {
	if n := len(b.times); n > 0 {
		last := b.times[n-1]
		if t < last || (t == last && id < b.rowIDs[n-1]) {
			b.dirty = true
		}
	}
	b.times = append(b.times, t)
	b.rowIDs = append(b.rowIDs, id)
}

// minTime returns the smallest time value in b. b must be non-empty.
func (b *IndexBucket) minTime() timeline.TimeInt {
	b.sort()
	return b.times[0]
}

// maxTime returns the largest time value in b. b must be non-empty.
func (b *IndexBucket) maxTime() timeline.TimeInt {
	b.sort()
	return b.times[len(b.times)-1]
}

type bucketSorter struct {
	times  []timeline.TimeInt
	rowIDs []RowId
}

func (s bucketSorter) Len() int { return len(s.times) }
func (s bucketSorter) Less(i, j int) bool {
	if s.times[i] != s.times[j] {
		return s.times[i] < s.times[j]
	}
	return s.rowIDs[i] < s.rowIDs[j]
}
func (s bucketSorter) Swap(i, j int) {
	s.times[i], s.times[j] = s.times[j], s.times[i]
	s.rowIDs[i], s.rowIDs[j] = s.rowIDs[j], s.rowIDs[i]
}

// sort restores the (time, RowId) ordering invariant in place. It is a
// no-op unless an out-of-order push has dirtied the bucket, so
// appending in sorted order (the common case for live data) never
// pays a sort cost.
func (b *IndexBucket) sort() {
	if !b.dirty {
		return
	}
	sort.Stable(bucketSorter{b.times, b.rowIDs})
	b.dirty = false
}

// latestBefore returns the RowId of the last row at or before t, and
// true, or (0, false) if b has no such row. b is sorted as a side
// effect.
func (b *IndexBucket) latestBefore(t timeline.TimeInt) (RowId, bool) {
	b.sort()
	i := sort.Search(len(b.times), func(i int) bool { return b.times[i] > t })
	if i == 0 {
		return 0, false
	}
	return b.rowIDs[i-1], true
}

// rangeRows returns the RowIds of every row with start <= time <= end.
// b is sorted as a side effect.
func (b *IndexBucket) rangeRows(start, end timeline.TimeInt) []RowId {
	b.sort()
	lo := sort.Search(len(b.times), func(i int) bool { return b.times[i] >= start })
	hi := sort.Search(len(b.times), func(i int) bool { return b.times[i] > end })
	if lo >= hi {
		return nil
	}
	out := make([]RowId, hi-lo)
	copy(out, b.rowIDs[lo:hi])
	return out
}

// shardKey identifies one entity/timeline pair within an IndexStore.
type shardKey struct {
	entity   string
	timeline string
	kind     timeline.Kind
}

// IndexStore holds, for every (entity, timeline) pair observed, an
// ordered list of IndexBuckets covering successive (possibly
// overlapping, pre-compaction) time ranges, oldest first.
type IndexStore struct {
	shards        map[shardKey][]*IndexBucket
	rowsPerBucket int
}

// NewIndexStore constructs an IndexStore that rolls a new bucket over
// after rowsPerBucket rows (0 means unbounded: one bucket per shard).
func NewIndexStore(rowsPerBucket int) *IndexStore {
	return &IndexStore{shards: make(map[shardKey][]*IndexBucket), rowsPerBucket: rowsPerBucket}
}

func key(entityPath string, tl timeline.Timeline) shardKey {
	return shardKey{entity: entityPath, timeline: tl.Name, kind: tl.Kind}
}

// Insert records one row's (time, RowId) in the appropriate shard,
// rolling over to a fresh bucket once the current one reaches
// rowsPerBucket.
func (s *IndexStore) Insert(entityPath string, tl timeline.Timeline, t timeline.TimeInt, id RowId) {
	k := key(entityPath, tl)
	buckets := s.shards[k]
	var cur *IndexBucket
	if n := len(buckets); n > 0 {
		cur = buckets[n-1]
	}
	if cur == nil || (s.rowsPerBucket > 0 && cur.Len() >= s.rowsPerBucket) {
		cur = &IndexBucket{}
		buckets = append(buckets, cur)
		s.shards[k] = buckets
	}
	cur.push(t, id)
}

// Buckets returns the ordered, oldest-first bucket list for one shard.
func (s *IndexStore) Buckets(entityPath string, tl timeline.Timeline) []*IndexBucket {
	return s.shards[key(entityPath, tl)]
}

// Shards returns every shard key currently tracked.
func (s *IndexStore) Shards() []shardKey {
	out := make([]shardKey, 0, len(s.shards))
	for k := range s.shards {
		out = append(out, k)
	}
	return out
}

// DropOldest removes the single oldest bucket for the given shard, if
// any, and returns the RowIds it held. GC does not call it: GC evicts
// component buckets only and leaves index buckets in place.
func (s *IndexStore) DropOldest(k shardKey) []RowId {
	buckets := s.shards[k]
	if len(buckets) == 0 {
		return nil
	}
	dropped := buckets[0]
	s.shards[k] = buckets[1:]
	dropped.sort()
	return append([]RowId(nil), dropped.rowIDs...)
}
