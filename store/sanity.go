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
	"fmt"

	"github.com/rowkeeper/entitystore/cell"
)

// SanityCheck walks the entire store re-verifying every invariant a
// correct Store must maintain. It is meant for tests and debugging
// tools, not the hot insert/query path.
func (s *Store) SanityCheck() error {
	for k, buckets := range s.idx.shards {
		if err := checkIndexShard(k, buckets); err != nil {
			return err
		}
	}
	for name, cs := range s.components {
		if err := checkComponentStore(name, cs); err != nil {
			return err
		}
	}
	if s.cfg.Clustering != "" {
		if err := s.checkClusteringInvariant(); err != nil {
			return err
		}
	}
	return nil
}

func checkIndexShard(k shardKey, buckets []*IndexBucket) error {
	for _, b := range buckets {
		b.sort()
		for i := 1; i < len(b.times); i++ {
			if b.times[i] < b.times[i-1] {
				return &SanityError{k, "index bucket is not sorted by time after sort()"}
			}
			if b.times[i] == b.times[i-1] && b.rowIDs[i] <= b.rowIDs[i-1] {
				return &SanityError{k, "index bucket has non-increasing RowId for a repeated time"}
			}
		}
	}
	return nil
}

func checkComponentStore(name cell.ComponentName, cs *ComponentStore) error {
	var prevMax RowId
	havePrev := false
	for _, b := range cs.buckets {
		for i := 1; i < len(b.rowIDs); i++ {
			if b.rowIDs[i] <= b.rowIDs[i-1] {
				return &SanityError{shardKey{entity: string(name)}, "component bucket RowIds are not strictly increasing"}
			}
		}
		if b.Len() > 0 {
			if havePrev && b.rowIDs[0] <= prevMax {
				return &SanityError{shardKey{entity: string(name)}, "component buckets overlap in RowId range"}
			}
			prevMax = b.rowIDs[len(b.rowIDs)-1]
			havePrev = true
		}
	}
	return nil
}

// checkClusteringInvariant re-validates, for every row that wrote a
// fully-specified (non-splat) clustering cell, that the stored values
// are still strictly increasing -- i.e. that nothing downstream of
// Insert's Validate call has corrupted the clustering column.
func (s *Store) checkClusteringInvariant() error {
	cs := s.components[s.cfg.Clustering]
	if cs == nil {
		return nil
	}
	for _, b := range cs.buckets {
		for i, c := range b.cells {
			if c.Splat() || c.Len() == 0 {
				continue
			}
			row := cell.Row{NumInstances: c.Len(), Cells: []cell.DataCell{c}}
			if err := cell.Validate(row, s.cfg.Clustering); err != nil {
				return &SanityError{
					shardKey{entity: string(s.cfg.Clustering)},
					fmt.Sprintf("row %d: %v", b.rowIDs[i], err),
				}
			}
		}
	}
	return nil
}
