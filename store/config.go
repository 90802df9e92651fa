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
	"os"

	"github.com/rowkeeper/entitystore/cell"
	"sigs.k8s.io/yaml"
)

// DefaultRowsPerIndexBucket bounds how many (time, RowId) pairs an
// IndexBucket accumulates before a new one is started, the same role
// blockfmt's per-block row cap plays for a packed data block.
const DefaultRowsPerIndexBucket = 4096

// DefaultRowsPerComponentBucket and DefaultBytesPerComponentBucket
// bound a ComponentBucket the same way, on whichever threshold hits
// first.
const (
	DefaultRowsPerComponentBucket  = 4096
	DefaultBytesPerComponentBucket = 4 << 20
)

// Config configures a Store's bucketing and eviction behavior. The
// zero value is usable: a zero RowsPerComponentBucket starts a new
// ComponentBucket for every insert, and every other threshold's zero
// value disables that threshold (unbounded bucket growth).
type Config struct {
	// Clustering names the component treated as the per-row instance
	// key: its values must be dense, sorted, and unique within a row.
	Clustering cell.ComponentName `json:"clustering"`

	// RowsPerIndexBucket caps how many rows an IndexBucket holds
	// before a new bucket is started. 0 means unbounded.
	RowsPerIndexBucket int `json:"rowsPerIndexBucket,omitempty"`

	// RowsPerComponentBucket and BytesPerComponentBucket cap a
	// ComponentBucket the same way. A RowsPerComponentBucket of 0
	// starts a new bucket for every insert (one row per bucket, the
	// finest GC granularity); a BytesPerComponentBucket of 0 disables
	// the byte threshold.
	RowsPerComponentBucket  int `json:"rowsPerComponentBucket,omitempty"`
	BytesPerComponentBucket int `json:"bytesPerComponentBucket,omitempty"`
}

// DefaultConfig returns a Config using the package's default bucket
// thresholds, with clustering as the clustering component.
func DefaultConfig(clustering cell.ComponentName) Config {
	return Config{
		Clustering:              clustering,
		RowsPerIndexBucket:      DefaultRowsPerIndexBucket,
		RowsPerComponentBucket:  DefaultRowsPerComponentBucket,
		BytesPerComponentBucket: DefaultBytesPerComponentBucket,
	}
}

// LoadConfig reads a Config from a YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// MarshalYAML renders c as YAML, for writing out a config a Store was
// constructed with.
func (c Config) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
