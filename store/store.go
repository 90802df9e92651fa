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

// Package store implements the entity store itself: a single-threaded,
// in-memory, time-indexed, column-oriented aggregate of Rows, queryable
// by latest_at point lookup or by a range stream-join, and reclaimable
// by a garbage collector that evicts whole component buckets.
package store

import (
	"sort"

	"github.com/rowkeeper/entitystore/cell"
	"github.com/rowkeeper/entitystore/heap"
	"github.com/rowkeeper/entitystore/ints"
	"github.com/rowkeeper/entitystore/timeline"
)

// RowMetadata is what ClearMsgMetadata can forget and GetMsgMetadata
// can still answer about a row that has not yet been forgotten, even
// after the row's data has been evicted by GC. This mirrors the
// two-step gc()/clear_msg_metadata() protocol: eviction of column data
// and eviction of row bookkeeping are independent operations.
type RowMetadata struct {
	Entity       string
	Timepoint    map[timeline.Timeline]timeline.TimeInt
	NumInstances int
}

func cloneTimepoint(tp map[timeline.Timeline]timeline.TimeInt) map[timeline.Timeline]timeline.TimeInt {
	out := make(map[timeline.Timeline]timeline.TimeInt, len(tp))
	for tl, t := range tp {
		out[tl] = t
	}
	return out
}

// Store is the full entity store: one IndexStore shared across all
// entities and timelines, one ComponentStore per component name, and a
// row metadata table used for msg-id bookkeeping independent of the
// column data itself.
type Store struct {
	cfg        Config
	idx        *IndexStore
	components map[cell.ComponentName]*ComponentStore
	meta       map[RowId]RowMetadata
	gen        rowIDGen
}

// New constructs an empty Store.
func New(cfg Config) *Store {
	return &Store{
		cfg:        cfg,
		idx:        NewIndexStore(cfg.RowsPerIndexBucket),
		components: make(map[cell.ComponentName]*ComponentStore),
		meta:       make(map[RowId]RowMetadata),
	}
}

func (s *Store) componentStore(name cell.ComponentName) *ComponentStore {
	cs := s.components[name]
	if cs == nil {
		cs = NewComponentStore(name, s.cfg.RowsPerComponentBucket, s.cfg.BytesPerComponentBucket)
		s.components[name] = cs
	}
	return cs
}

// Insert validates r against the clustering-component invariant and,
// if it passes, assigns r a fresh RowId, indexes it under every
// timeline in its timepoint, and appends its cells to the appropriate
// component stores.
func (s *Store) Insert(r cell.Row) (RowId, error) {
	if err := cell.Validate(r, s.cfg.Clustering); err != nil {
		return 0, err
	}
	id := s.gen.alloc()
	entPath := r.Entity.String()
	for tl, t := range r.Timepoint {
		s.idx.Insert(entPath, tl, t, id)
	}
	for _, c := range r.Cells {
		if c.Len() == 0 {
			continue // a zero-length cell means the component is absent
		}
		s.componentStore(c.Component).Insert(id, c.Clone())
	}
	s.meta[id] = RowMetadata{
		Entity:       entPath,
		Timepoint:    cloneTimepoint(r.Timepoint),
		NumInstances: r.NumInstances,
	}
	return id, nil
}

// GetMsgMetadata returns the row metadata recorded at insertion time
// for id, if it has not been cleared by ClearMsgMetadata.
func (s *Store) GetMsgMetadata(id RowId) (RowMetadata, bool) {
	m, ok := s.meta[id]
	return m, ok
}

// ClearMsgMetadata forgets the recorded metadata for the given RowIds.
// GC does not call this itself: evicting column data and forgetting
// row bookkeeping are deliberately separate steps, so a caller that
// still needs to answer "what was RowId X" for a recently-evicted row
// can defer clearing until it is done.
func (s *Store) ClearMsgMetadata(ids []RowId) {
	for _, id := range ids {
		delete(s.meta, id)
	}
}

// TotalTemporalComponentRows sums the row count across every
// component's surviving buckets, for capacity accounting and tests.
func (s *Store) TotalTemporalComponentRows() int {
	n := 0
	for _, cs := range s.components {
		n += cs.TotalRows()
	}
	return n
}

// LatestAtResult is the outcome of a LatestAt query: a vector parallel
// to the requested components, each slot either the RowId of that
// component's latest qualifying row (Found[i] == true) or absent
// (Found[i] == false), plus the materialised cells for every slot that
// resolved.
type LatestAtResult struct {
	RowIds []RowId
	Found  []bool
	Cells  map[cell.ComponentName]cell.DataCell
}

// LatestAt finds, independently for each requested component, the
// latest row at or before `at` on the given entity/timeline shard that
// has a value for that component.
//
// ok is false if the (entity, timeline) shard itself does not exist —
// wrong entity, wrong timeline name, or wrong timeline kind — or if
// every row in the shard is later than `at`. Otherwise ok is true
// regardless of whether any component resolved: an empty components
// list yields a result with
// empty RowIds/Found (distinct from ok == false), and components that
// never appear on any row in the shard yield Found[i] == false slots
// rather than failing the whole query.
func (s *Store) LatestAt(entityPath string, tl timeline.Timeline, at timeline.TimeInt, components []cell.ComponentName) (LatestAtResult, bool) {
	k := key(entityPath, tl)
	buckets := s.idx.shards[k]
	if len(buckets) == 0 {
		return LatestAtResult{}, false
	}
	anyAtOrBefore := false
	for _, b := range buckets {
		if b.Len() > 0 && b.minTime() <= at {
			anyAtOrBefore = true
			break
		}
	}
	if !anyAtOrBefore {
		return LatestAtResult{}, false
	}
	out := LatestAtResult{
		RowIds: make([]RowId, len(components)),
		Found:  make([]bool, len(components)),
		Cells:  make(map[cell.ComponentName]cell.DataCell, len(components)),
	}
	for i, name := range components {
		cs := s.components[name]
		id, _, ok := latestRowWithComponent(buckets, cs, at)
		if !ok {
			continue
		}
		out.RowIds[i] = id
		out.Found[i] = true
		if c, ok := cs.Get(id); ok {
			out.Cells[name] = c
		}
	}
	return out, true
}

// latestRowWithComponent scans every bucket of the shard (buckets may
// overlap in time), looking for the latest (time, RowId) at or before
// `at` for which cs holds a value.
func latestRowWithComponent(buckets []*IndexBucket, cs *ComponentStore, at timeline.TimeInt) (RowId, timeline.TimeInt, bool) {
	if cs == nil {
		return 0, 0, false
	}
	var bestID RowId
	var bestT timeline.TimeInt
	found := false
	for _, b := range buckets {
		b.sort()
		hi := sort.Search(len(b.times), func(j int) bool { return b.times[j] > at }) - 1
		for j := hi; j >= 0; j-- {
			if _, ok := cs.Get(b.rowIDs[j]); ok {
				if !found || b.times[j] > bestT || (b.times[j] == bestT && b.rowIDs[j] > bestID) {
					found, bestID, bestT = true, b.rowIDs[j], b.times[j]
				}
				break
			}
		}
	}
	return bestID, bestT, found
}

// timeRow is one entry of a component's presence stream: a (time,
// RowId) pair at which that component had a value.
type timeRow struct {
	t  timeline.TimeInt
	id RowId
}

// presenceStream merges every IndexBucket's (time, RowId) entries into
// a single time-ordered stream, keeping only the entries for which cs
// holds a value. Buckets are merged with the generic min-heap in
// package heap rather than concatenated and sorted, since a shard
// typically has few buckets, each already internally sorted.
func presenceStream(buckets []*IndexBucket, cs *ComponentStore) []timeRow {
	if cs == nil {
		return nil
	}
	type cursor struct {
		b   *IndexBucket
		pos int
	}
	less := func(a, c *cursor) bool {
		ta, ida := a.b.times[a.pos], a.b.rowIDs[a.pos]
		tc, idc := c.b.times[c.pos], c.b.rowIDs[c.pos]
		if ta != tc {
			return ta < tc
		}
		return ida < idc
	}
	var cursors []*cursor
	for _, b := range buckets {
		b.sort()
		if b.Len() > 0 {
			cursors = append(cursors, &cursor{b: b})
		}
	}
	heap.OrderSlice(cursors, less)
	var out []timeRow
	for len(cursors) > 0 {
		top := heap.PopSlice(&cursors, less)
		t, id := top.b.times[top.pos], top.b.rowIDs[top.pos]
		if _, ok := cs.Get(id); ok {
			out = append(out, timeRow{t, id})
		}
		top.pos++
		if top.pos < top.b.Len() {
			heap.PushSlice(&cursors, top, less)
		}
	}
	return out
}

// RangeRow is one emitted join result: the primary component's own
// update, plus the latest value of every other requested component as
// of that update.
type RangeRow struct {
	Time  timeline.TimeInt
	RowId RowId
	Cells map[cell.ComponentName]cell.DataCell
}

// Range performs the range query: it walks the primary component's
// presence stream in time order over [start, end] and, for each
// primary update, joins in the latest value of every other requested
// component as of that same (time, RowId).
//
// The non-primary cursors are advanced up to and including any entry
// at the exact same (time, RowId) as the current primary entry before
// that primary entry is emitted, so a component updated in the same
// Row insertion as the primary is reflected immediately rather than
// lagging one emission behind.
func (s *Store) Range(entityPath string, tl timeline.Timeline, start, end timeline.TimeInt, primary cell.ComponentName, others []cell.ComponentName) []RangeRow {
	k := key(entityPath, tl)
	buckets := s.idx.shards[k]
	if len(buckets) == 0 {
		return nil
	}
	primaryCS := s.components[primary]
	primaryStream := presenceStream(buckets, primaryCS)
	if len(primaryStream) == 0 {
		return nil
	}

	type otherCursor struct {
		name   cell.ComponentName
		cs     *ComponentStore
		stream []timeRow
		pos    int
	}
	cursors := make([]*otherCursor, len(others))
	for i, name := range others {
		cursors[i] = &otherCursor{name: name, cs: s.components[name], stream: presenceStream(buckets, s.components[name])}
	}

	advance := func(o *otherCursor, p timeRow) {
		for o.pos < len(o.stream) {
			e := o.stream[o.pos]
			if e.t > p.t || (e.t == p.t && e.id > p.id) {
				break
			}
			o.pos++
		}
	}

	var out []RangeRow
	for _, p := range primaryStream {
		for _, o := range cursors {
			advance(o, p)
		}
		if p.t < start || p.t > end {
			continue
		}
		row := RangeRow{Time: p.t, RowId: p.id, Cells: make(map[cell.ComponentName]cell.DataCell, len(others)+1)}
		if c, ok := primaryCS.Get(p.id); ok {
			row.Cells[primary] = c
		}
		for _, o := range cursors {
			if o.pos == 0 {
				continue
			}
			latest := o.stream[o.pos-1]
			if c, ok := o.cs.Get(latest.id); ok {
				row.Cells[o.name] = c
			}
		}
		out = append(out, row)
	}
	return out
}

// RangeInterval is Range with its [start, end] bound expressed as a
// half-open ints.Interval ([start, end) rather than [start, end]),
// for callers that already work in terms of ints.Interval spans (e.g.
// one obtained from an ints.Intervals set after a Compress/Intersect).
func (s *Store) RangeInterval(entityPath string, tl timeline.Timeline, span ints.Interval, primary cell.ComponentName, others []cell.ComponentName) []RangeRow {
	if span.Empty() {
		return nil
	}
	return s.Range(entityPath, tl, timeline.TimeInt(span.Start), timeline.TimeInt(span.End-1), primary, others)
}
