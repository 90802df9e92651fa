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

// Package timeline implements the named, typed axes a Row is ordered
// along: either a monotonic integer sequence or a nanosecond-precision
// wall clock.
package timeline

import (
	"math"
	"strconv"

	"github.com/rowkeeper/entitystore/date"
)

// Kind distinguishes the two flavors of timeline coordinate.
type Kind int

const (
	// Sequence is a caller-assigned monotonic counter (frame number,
	// log line number, ...).
	Sequence Kind = iota
	// Time is a nanosecond-precision wall-clock coordinate.
	Time
)

func (k Kind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// TimeInt is a single coordinate value along a Timeline. For a Time-kind
// timeline it is a nanosecond Unix timestamp; for a Sequence-kind
// timeline it is the raw counter value.
type TimeInt int64

// Min and Max bound the representable range of a TimeInt and are used
// as the open ends of an unbounded latest_at/range query.
const (
	Min TimeInt = math.MinInt64
	Max TimeInt = math.MaxInt64
)

// Timeline names one axis a Row can be ordered along.
type Timeline struct {
	Name string
	Kind Kind
}

// New constructs a Timeline.
func New(name string, kind Kind) Timeline {
	return Timeline{Name: name, Kind: kind}
}

func (t Timeline) String() string { return t.Name }

// Equal returns whether t and o name the same axis (both the name and
// the kind must match; a "log_time" Time timeline is distinct from a
// "log_time" Sequence timeline).
func (t Timeline) Equal(o Timeline) bool {
	return t.Name == o.Name && t.Kind == o.Kind
}

// Format renders v the way t's Kind dictates: as an RFC3339-ish
// timestamp for a Time timeline, or as a plain integer for a Sequence
// timeline.
func (t Timeline) Format(v TimeInt) string {
	if t.Kind == Time {
		return date.Unix(0, int64(v)).String()
	}
	return strconv.FormatInt(int64(v), 10)
}
