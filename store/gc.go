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
	"math"

	"github.com/rowkeeper/entitystore/cell"
)

// GCConfig configures a garbage collection pass. Logf, if set, is
// called to report each bucket evicted; the zero value runs silently.
// This mirrors db.GCConfig's optional Logf hook rather than forcing a
// logging library dependency onto every caller.
type GCConfig struct {
	// DropAtLeastPercentage is the fraction (0, 1] of the store's
	// total component rows that a GC pass should reclaim, rounded up
	// to the next whole bucket.
	DropAtLeastPercentage float64

	Logf func(format string, args ...any)
}

func (c GCConfig) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

// GCResult reports what a GC pass evicted.
type GCResult struct {
	DroppedRows  int
	DroppedBytes int
	// DroppedRowIds lists every RowId evicted, for a subsequent
	// ClearMsgMetadata call; GC deliberately leaves msg metadata
	// intact so callers can choose when (or whether) to forget it.
	DroppedRowIds []RowId
}

// GC evicts whole ComponentBuckets, oldest first across every
// component except the clustering component, until at least
// cfg.DropAtLeastPercentage of the store's total component rows (as
// measured before this pass) have been reclaimed. Index bucket entries
// referencing evicted rows are left in place: a later LatestAt/Range
// query simply finds no component data for that RowId, the same way a
// dangling reference to an evicted blockfmt data block would just come
// up empty.
//
// The clustering component is exempt from eviction: it is the
// per-row instance-key column, and a row whose clustering cell has
// been dropped can no longer be sanity-checked or addressed by
// Get/Range at all. total_temporal_component_rows() after a full
// (DropAtLeastPercentage(1.0)) pass therefore settles at the row count
// of the surviving clustering column, not zero.
func (s *Store) GC(cfg GCConfig) GCResult {
	total := s.TotalTemporalComponentRows()
	if total == 0 || cfg.DropAtLeastPercentage <= 0 {
		return GCResult{}
	}
	target := int(math.Ceil(float64(total) * cfg.DropAtLeastPercentage))

	var result GCResult
	seenRows := make(map[RowId]bool)
	for result.DroppedRows < target {
		name, ok := oldestComponent(s.components, s.cfg.Clustering)
		if !ok {
			break
		}
		cs := s.components[name]
		ids := cs.oldestBucketRowIDs()
		rows, bytes := cs.DropOldest()
		if rows == 0 {
			delete(s.components, name)
			continue
		}
		result.DroppedRows += rows
		result.DroppedBytes += bytes
		for _, id := range ids {
			if !seenRows[id] {
				seenRows[id] = true
				result.DroppedRowIds = append(result.DroppedRowIds, id)
			}
		}
		cfg.logf("gc: dropped %d rows (%d bytes) from component %q", rows, bytes, name)
	}
	return result
}

// oldestComponent returns the non-clustering component name whose
// oldest surviving bucket has the smallest first RowId, i.e. the
// globally-oldest evictable bucket across every evictable component.
func oldestComponent(components map[cell.ComponentName]*ComponentStore, clustering cell.ComponentName) (cell.ComponentName, bool) {
	var best cell.ComponentName
	var bestID RowId
	found := false
	for name, cs := range components {
		if name == clustering {
			continue
		}
		buckets := cs.Buckets()
		if len(buckets) == 0 || buckets[0].Len() == 0 {
			continue
		}
		id := buckets[0].rowIDs[0]
		if !found || id < bestID {
			found, best, bestID = true, name, id
		}
	}
	return best, found
}

func (cs *ComponentStore) oldestBucketRowIDs() []RowId {
	if len(cs.buckets) == 0 {
		return nil
	}
	return append([]RowId(nil), cs.buckets[0].rowIDs...)
}
