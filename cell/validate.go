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

package cell

import (
	"errors"
	"fmt"

	"github.com/rowkeeper/entitystore/entity"
	"github.com/rowkeeper/entitystore/ion"
)

// Sentinel causes, classified the coarse way so callers can
// errors.Is(err, cell.ErrInvalidClusteringComponent) without parsing
// messages.
var (
	// ErrSparseClusteringComponent means the clustering component was
	// given a number of values other than NumInstances without being
	// splatted.
	ErrSparseClusteringComponent = errors.New("clustering component is sparse: must be absent, splatted, or fully specified")
	// ErrInvalidClusteringComponent means the clustering component's
	// values are not strictly sorted, or contain a duplicate.
	ErrInvalidClusteringComponent = errors.New("clustering component values must be strictly increasing")
	// ErrMismatchedInstances means a non-clustering cell's length is
	// neither 0, 1 (splat), nor NumInstances.
	ErrMismatchedInstances = errors.New("component cell length does not match row instance count")
)

// WriteError reports why a Row failed validation.
type WriteError struct {
	Entity    entity.Path
	Component ComponentName
	Cause     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("row for entity %s, component %q: %v", e.Entity, e.Component, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// Validate checks r against the invariants every stored row must
// satisfy:
//
//   - the clustering component (the instance-key column), if present
//     and not splatted, must have exactly NumInstances values, sorted
//     strictly ascending with no duplicates;
//   - every other cell must have length 0 (absent), 1 (splatted), or
//     NumInstances (fully specified).
func Validate(r Row, clustering ComponentName) error {
	var clusterCell *DataCell
	for i := range r.Cells {
		if r.Cells[i].Component == clustering {
			clusterCell = &r.Cells[i]
			break
		}
	}
	if clusterCell != nil && !clusterCell.Splat() {
		if clusterCell.Len() != r.NumInstances {
			return &WriteError{r.Entity, clustering, ErrSparseClusteringComponent}
		}
		if err := checkStrictlyIncreasing(clusterCell.Values); err != nil {
			return &WriteError{r.Entity, clustering, err}
		}
	}
	for i := range r.Cells {
		c := &r.Cells[i]
		if c.Component == clustering {
			continue
		}
		if n := c.Len(); n != 0 && n != 1 && n != r.NumInstances {
			return &WriteError{r.Entity, c.Component, ErrMismatchedInstances}
		}
	}
	return nil
}

func checkStrictlyIncreasing(vs []ion.Datum) error {
	for i := 1; i < len(vs); i++ {
		cmp, ok := compareNumeric(vs[i-1], vs[i])
		if !ok || cmp >= 0 {
			return ErrInvalidClusteringComponent
		}
	}
	return nil
}

// compareNumeric orders two numeric Datums (clustering components are
// instance keys: Int, Uint, or Float). ok is false if either value is
// not numeric.
func compareNumeric(a, b ion.Datum) (cmp int, ok bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

func asFloat(d ion.Datum) (float64, bool) {
	if v, ok := d.Int(); ok {
		return float64(v), true
	}
	if v, ok := d.Uint(); ok {
		return float64(v), true
	}
	if v, ok := d.Float(); ok {
		return v, true
	}
	return 0, false
}
