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

package ion

import (
	"fmt"
	"math"

	"github.com/rowkeeper/entitystore/date"
)

// Type tags the dynamic type held by a Datum.
type Type int

const (
	InvalidType Type = iota
	NullType
	BoolType
	IntType
	UintType
	FloatType
	StringType
	BlobType
	TimestampType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case UintType:
		return "uint"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	case BlobType:
		return "blob"
	case TimestampType:
		return "timestamp"
	default:
		return "invalid"
	}
}

// Datum represents a single typed value occupying one slot of a
// component column. It plays the same role an arrow scalar or an ion
// value would: a small closed set of primitive types tagged with a
// discriminant, copyable by value.
type Datum struct {
	typ Type
	i   int64
	u   uint64
	f   float64
	s   string
	b   []byte
	t   date.Time
}

// Empty is the zero value of a Datum (distinct from Null).
var Empty = Datum{}

// Null is the untyped null datum: a present-but-empty slot.
var Null = Datum{typ: NullType}

func (d Datum) Clone() Datum {
	out := d
	if d.b != nil {
		out.b = append([]byte(nil), d.b...)
	}
	return out
}

// Type returns the dynamic type of d.
func (d Datum) Type() Type { return d.typ }

// Empty returns whether d is the zero Datum.
func (d Datum) Empty() bool { return d.typ == InvalidType }

// Null returns whether d holds the null value.
func (d Datum) Null() bool { return d.typ == NullType }

func Bool(b bool) Datum {
	v := int64(0)
	if b {
		v = 1
	}
	return Datum{typ: BoolType, i: v}
}

func (d Datum) Bool() (bool, bool) {
	if d.typ != BoolType {
		return false, false
	}
	return d.i != 0, true
}

func Int(i int64) Datum {
	return Datum{typ: IntType, i: i}
}

func (d Datum) Int() (int64, bool) {
	if d.typ != IntType {
		return 0, false
	}
	return d.i, true
}

func Uint(u uint64) Datum {
	return Datum{typ: UintType, u: u}
}

func (d Datum) Uint() (uint64, bool) {
	if d.typ != UintType {
		return 0, false
	}
	return d.u, true
}

func Float(f float64) Datum {
	return Datum{typ: FloatType, f: f}
}

func (d Datum) Float() (float64, bool) {
	if d.typ != FloatType {
		return 0, false
	}
	return d.f, true
}

func String(s string) Datum {
	return Datum{typ: StringType, s: s}
}

func (d Datum) String() (string, bool) {
	if d.typ != StringType {
		return "", false
	}
	return d.s, true
}

func Blob(b []byte) Datum {
	return Datum{typ: BlobType, b: b}
}

func (d Datum) Blob() ([]byte, bool) {
	if d.typ != BlobType {
		return nil, false
	}
	return d.b, true
}

func Timestamp(t date.Time) Datum {
	return Datum{typ: TimestampType, t: t}
}

func (d Datum) Timestamp() (date.Time, bool) {
	if d.typ != TimestampType {
		return date.Time{}, false
	}
	return d.t, true
}

// Equal returns whether d and x hold semantically equivalent values.
// Numeric types compare across representations (an Int and a Uint
// holding the same magnitude are equal), mirroring the permissive
// numeric equivalence an ion reader would apply.
func (d Datum) Equal(x Datum) bool {
	switch d.typ {
	case NullType:
		return x.Null()
	case BoolType:
		b, _ := d.Bool()
		b2, ok := x.Bool()
		return ok && b == b2
	case IntType:
		switch x.typ {
		case IntType:
			return d.i == x.i
		case UintType:
			return d.i >= 0 && uint64(d.i) == x.u
		case FloatType:
			return float64(d.i) == x.f
		}
		return false
	case UintType:
		switch x.typ {
		case UintType:
			return d.u == x.u
		case IntType:
			return x.i >= 0 && d.u == uint64(x.i)
		case FloatType:
			return float64(d.u) == x.f
		}
		return false
	case FloatType:
		switch x.typ {
		case FloatType:
			return d.f == x.f || (math.IsNaN(d.f) && math.IsNaN(x.f))
		case IntType:
			return d.f == float64(x.i)
		case UintType:
			return d.f == float64(x.u)
		}
		return false
	case StringType:
		s2, ok := x.String()
		return ok && d.s == s2
	case BlobType:
		b2, ok := x.Blob()
		return ok && string(d.b) == string(b2)
	case TimestampType:
		t2, ok := x.Timestamp()
		return ok && d.t.Equal(t2)
	}
	return false
}

// Equal returns whether a and b are semantically equivalent.
func Equal(a, b Datum) bool {
	return a.Equal(b)
}

// Size estimates the in-memory footprint of d in bytes, for the byte
// accounting a component bucket uses to decide when to roll over.
func (d Datum) Size() int {
	const scalar = 16 // typ + widest fixed field, rounded
	switch d.typ {
	case StringType:
		return scalar + len(d.s)
	case BlobType:
		return scalar + len(d.b)
	default:
		return scalar
	}
}

func (d Datum) GoString() string {
	switch d.typ {
	case NullType:
		return "ion.Null"
	case BoolType:
		b, _ := d.Bool()
		return fmt.Sprintf("ion.Bool(%v)", b)
	case IntType:
		return fmt.Sprintf("ion.Int(%d)", d.i)
	case UintType:
		return fmt.Sprintf("ion.Uint(%d)", d.u)
	case FloatType:
		return fmt.Sprintf("ion.Float(%v)", d.f)
	case StringType:
		return fmt.Sprintf("ion.String(%q)", d.s)
	case BlobType:
		return fmt.Sprintf("ion.Blob(%x)", d.b)
	case TimestampType:
		return fmt.Sprintf("ion.Timestamp(%s)", d.t)
	default:
		return "ion.Empty"
	}
}
