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
	"testing"

	"github.com/rowkeeper/entitystore/cell"
	"github.com/rowkeeper/entitystore/entity"
	"github.com/rowkeeper/entitystore/ion"
	"github.com/rowkeeper/entitystore/timeline"
)

const instance cell.ComponentName = "instance"
const position cell.ComponentName = "position"
const color cell.ComponentName = "color"

func newTestStore() *Store {
	return New(DefaultConfig(instance))
}

func row(ent string, t timeline.TimeInt, n int, cells ...cell.DataCell) cell.Row {
	return cell.Row{
		Entity: entity.New(ent),
		Timepoint: map[timeline.Timeline]timeline.TimeInt{
			timeline.New("frame", timeline.Sequence): t,
		},
		NumInstances: n,
		Cells:        cells,
	}
}

func instances(n int) cell.DataCell {
	vs := make([]ion.Datum, n)
	for i := range vs {
		vs[i] = ion.Uint(uint64(i))
	}
	return cell.DataCell{Component: instance, Values: vs}
}

func splat(name cell.ComponentName, v ion.Datum) cell.DataCell {
	return cell.DataCell{Component: name, Values: []ion.Datum{v}}
}

func TestInsertRejectsInvalidRow(t *testing.T) {
	s := newTestStore()
	bad := row("points", 1, 3,
		cell.DataCell{Component: instance, Values: []ion.Datum{ion.Uint(0), ion.Uint(0)}},
	)
	if _, err := s.Insert(bad); err == nil {
		t.Fatal("expected an error for a sparse clustering component")
	}
}

func TestLatestAtReturnsMostRecentPerComponent(t *testing.T) {
	s := newTestStore()
	tl := timeline.New("frame", timeline.Sequence)
	if _, err := s.Insert(row("points", 1, 3, instances(3), splat(position, ion.Float(1)))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(row("points", 5, 3, instances(3), splat(color, ion.Uint(0xff)))); err != nil {
		t.Fatal(err)
	}
	res, ok := s.LatestAt("/points", tl, 10, []cell.ComponentName{position, color})
	if !ok {
		t.Fatal("expected a result")
	}
	if !res.Found[0] {
		t.Fatal("expected position to resolve from the row at time 1")
	}
	if !res.Found[1] {
		t.Fatal("expected color to resolve from the row at time 5")
	}
	if _, ok := res.Cells[position]; !ok {
		t.Fatal("expected position from the row at time 1")
	}
	if _, ok := res.Cells[color]; !ok {
		t.Fatal("expected color from the row at time 5")
	}
}

func TestLatestAtBeforeAnyData(t *testing.T) {
	s := newTestStore()
	tl := timeline.New("frame", timeline.Sequence)
	if _, err := s.Insert(row("points", 5, 3, instances(3), splat(position, ion.Float(1)))); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.LatestAt("/points", tl, 1, []cell.ComponentName{position}); ok {
		t.Fatal("expected no result before the first write")
	}
}

func TestRangeJoinsLatestNonPrimary(t *testing.T) {
	s := newTestStore()
	tl := timeline.New("frame", timeline.Sequence)
	mustInsert := func(r cell.Row) {
		if _, err := s.Insert(r); err != nil {
			t.Fatal(err)
		}
	}
	mustInsert(row("points", 1, 3, instances(3), splat(color, ion.Uint(1))))
	mustInsert(row("points", 2, 3, instances(3), splat(position, ion.Float(2))))
	// same-row update: both position and color change together at t=3
	mustInsert(row("points", 3, 3, instances(3), splat(position, ion.Float(3)), splat(color, ion.Uint(3))))
	mustInsert(row("points", 4, 3, instances(3), splat(position, ion.Float(4))))

	rows := s.Range("/points", tl, 2, 4, position, []cell.ComponentName{color})
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// at t=2 color should be carried over from t=1
	if c, ok := rows[0].Cells[color]; !ok {
		t.Fatal("expected carried-over color at t=2")
	} else if v, _ := c.Values[0].Uint(); v != 1 {
		t.Fatalf("color at t=2 = %d, want 1", v)
	}
	// at t=3, the same-row color update must be visible immediately
	if c, ok := rows[1].Cells[color]; !ok {
		t.Fatal("expected color at t=3")
	} else if v, _ := c.Values[0].Uint(); v != 3 {
		t.Fatalf("color at t=3 = %d, want 3 (tie-break must prefer the same-row update)", v)
	}
	// at t=4, color is still carried over from t=3
	if c, ok := rows[2].Cells[color]; !ok {
		t.Fatal("expected carried-over color at t=4")
	} else if v, _ := c.Values[0].Uint(); v != 3 {
		t.Fatalf("color at t=4 = %d, want 3", v)
	}
}

func TestSanityCheckPassesOnFreshStore(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 20; i++ {
		if _, err := s.Insert(row("points", timeline.TimeInt(i), 2, instances(2), splat(position, ion.Float(float64(i))))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SanityCheck(); err != nil {
		t.Fatalf("unexpected sanity error: %v", err)
	}
}

func TestGCEvictsOldestRowsFirst(t *testing.T) {
	cfg := DefaultConfig(instance)
	cfg.RowsPerComponentBucket = 4
	s := New(cfg)
	for i := 0; i < 16; i++ {
		if _, err := s.Insert(row("points", timeline.TimeInt(i), 2, instances(2), splat(position, ion.Float(float64(i))))); err != nil {
			t.Fatal(err)
		}
	}
	before := s.TotalTemporalComponentRows()
	res := s.GC(GCConfig{DropAtLeastPercentage: 0.5})
	if res.DroppedRows < before/2 {
		t.Fatalf("dropped %d rows, want at least half of %d", res.DroppedRows, before)
	}
	after := s.TotalTemporalComponentRows()
	if after != before-res.DroppedRows {
		t.Fatalf("row accounting mismatch: before=%d dropped=%d after=%d", before, res.DroppedRows, after)
	}
	// the oldest RowIds must be the ones reported dropped.
	for _, id := range res.DroppedRowIds {
		if id > RowId(res.DroppedRows) {
			t.Fatalf("dropped RowId %d is not among the oldest", id)
		}
	}
	if err := s.SanityCheck(); err != nil {
		t.Fatalf("unexpected sanity error after GC: %v", err)
	}
}

func TestMsgMetadataTwoStepProtocol(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert(row("points", 1, 2, instances(2), splat(position, ion.Float(1))))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.GetMsgMetadata(id); !ok {
		t.Fatal("expected metadata right after insert")
	}
	s.GC(GCConfig{DropAtLeastPercentage: 1})
	if _, ok := s.GetMsgMetadata(id); !ok {
		t.Fatal("GC must not clear msg metadata on its own")
	}
	s.ClearMsgMetadata([]RowId{id})
	if _, ok := s.GetMsgMetadata(id); ok {
		t.Fatal("ClearMsgMetadata should have forgotten the row")
	}
}
