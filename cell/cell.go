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

// Package cell implements the Data Cell and Row types: the smallest
// unit of storage (one component's values for one row) and the
// validated bundle of cells an inserter hands to the store.
package cell

import (
	"github.com/rowkeeper/entitystore/entity"
	"github.com/rowkeeper/entitystore/ion"
	"github.com/rowkeeper/entitystore/timeline"
)

// ComponentName identifies a column, e.g. "position", "color", "instance".
type ComponentName string

// DataCell holds one row's contribution to a single component column.
//
// Len() == 0 means the component is entirely absent from the row.
// Len() == 1 is a "splatted" cell: the single value applies to every
// instance in the row. Len() == NumInstances is the fully-specified
// case: one value per instance, in instance order.
type DataCell struct {
	Component ComponentName
	Values    []ion.Datum
}

// Splat reports whether c holds a single value broadcast to every
// instance rather than one value per instance.
func (c DataCell) Splat() bool { return len(c.Values) == 1 }

// Len returns the number of stored values (0, 1, or NumInstances).
func (c DataCell) Len() int { return len(c.Values) }

// At returns the value for the given instance index, expanding a
// splatted cell as needed. ok is false if the component has no value
// for that instance (either c is empty, or instance is out of range).
func (c DataCell) At(instance int) (v ion.Datum, ok bool) {
	switch {
	case len(c.Values) == 0:
		return ion.Datum{}, false
	case c.Splat():
		return c.Values[0], true
	case instance < 0 || instance >= len(c.Values):
		return ion.Datum{}, false
	default:
		return c.Values[instance], true
	}
}

// Clone deep-copies c so that mutations to the returned cell (or its
// Datum blobs) do not alias the original.
func (c DataCell) Clone() DataCell {
	out := DataCell{Component: c.Component}
	if c.Values != nil {
		out.Values = make([]ion.Datum, len(c.Values))
		for i, v := range c.Values {
			out.Values[i] = v.Clone()
		}
	}
	return out
}

// Row is one insertion: a set of component cells for a single entity,
// positioned at a coordinate on each of one or more timelines
// simultaneously (e.g. a log line stamped with both wall-clock time
// and a frame number resolves on either axis).
type Row struct {
	Entity       entity.Path
	Timepoint    map[timeline.Timeline]timeline.TimeInt
	NumInstances int
	Cells        []DataCell
}

// Cell returns the cell for the named component, if present.
func (r Row) Cell(name ComponentName) (DataCell, bool) {
	for _, c := range r.Cells {
		if c.Component == name {
			return c, true
		}
	}
	return DataCell{}, false
}
