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

// Boundary cases grounded on
// _examples/original_source/crates/re_arrow_store/tests/correctness.rs's
// latest_at_emptiness_edge_cases.
package store

import (
	"testing"

	"github.com/rowkeeper/entitystore/cell"
	"github.com/rowkeeper/entitystore/entity"
	"github.com/rowkeeper/entitystore/ion"
	"github.com/rowkeeper/entitystore/timeline"
)

// One row stamped on two timelines at once (a log line with both a
// wall-clock time and a frame number), so the "wrong timeline
// name/kind" cases exercise a genuinely populated entity rather than
// a different, untouched one.
func TestLatestAtEmptinessEdgeCases(t *testing.T) {
	s := newTestStore()
	logTL := timeline.New("log_time", timeline.Time)
	frameTL := timeline.New("frame_nr", timeline.Sequence)
	r := cell.Row{
		Entity: entity.New("points"),
		Timepoint: map[timeline.Timeline]timeline.TimeInt{
			logTL:   1000,
			frameTL: 40,
		},
		NumInstances: 3,
		Cells:        []cell.DataCell{instances(3), splat(position, ion.Float(1))},
	}
	if _, err := s.Insert(r); err != nil {
		t.Fatal(err)
	}

	notFoundCases := []struct {
		name       string
		entityPath string
		tl         timeline.Timeline
	}{
		{"wrong timeline name", "/points", timeline.New("other", timeline.Sequence)},
		{"wrong timeline kind", "/points", timeline.New("frame_nr", timeline.Time)},
		{"wrong entity", "/cameras", frameTL},
	}
	for _, c := range notFoundCases {
		t.Run(c.name, func(t *testing.T) {
			if _, ok := s.LatestAt(c.entityPath, c.tl, 100, []cell.ComponentName{position}); ok {
				t.Fatalf("%s: expected no shard (None), not Some", c.name)
			}
		})
	}

	t.Run("empty component list", func(t *testing.T) {
		res, ok := s.LatestAt("/points", frameTL, 100, nil)
		if !ok {
			t.Fatal("a populated shard queried with no components must still return Some, not None")
		}
		if len(res.RowIds) != 0 || len(res.Found) != 0 {
			t.Fatalf("expected Some(empty vector), got %+v", res)
		}
	})

	t.Run("all-absent components", func(t *testing.T) {
		res, ok := s.LatestAt("/points", frameTL, 100, []cell.ComponentName{"nonexistent"})
		if !ok {
			t.Fatal("a populated shard with no matching component must still return Some([None]), not None")
		}
		if len(res.Found) != 1 || res.Found[0] {
			t.Fatalf("expected a single None slot, got Found=%v", res.Found)
		}
	})
}

// Scenario S1: a row stamped {log_time=now, frame_nr=40} must resolve
// on either timeline, and a query one tick before the row's frame_nr
// coordinate must see nothing yet.
func TestLatestAtResolvesOnEveryTimepointTimeline(t *testing.T) {
	s := newTestStore()
	logTL := timeline.New("log_time", timeline.Time)
	frameTL := timeline.New("frame_nr", timeline.Sequence)
	r := cell.Row{
		Entity: entity.New("this/that"),
		Timepoint: map[timeline.Timeline]timeline.TimeInt{
			logTL:   5000,
			frameTL: 40,
		},
		NumInstances: 3,
		Cells:        []cell.DataCell{instances(3), splat(position, ion.Float(1))},
	}
	if _, err := s.Insert(r); err != nil {
		t.Fatal(err)
	}

	if res, ok := s.LatestAt("/this/that", frameTL, 39, []cell.ComponentName{position}); ok && res.Found[0] {
		t.Fatal("expected no resolved row one tick before frame_nr=40")
	}
	if res, ok := s.LatestAt("/this/that", frameTL, 40, []cell.ComponentName{position}); !ok || !res.Found[0] {
		t.Fatal("expected the row to resolve at frame_nr=40")
	}
	if res, ok := s.LatestAt("/this/that", logTL, 5000, []cell.ComponentName{position}); !ok || !res.Found[0] {
		t.Fatal("expected the same row to resolve independently on log_time")
	}
}
