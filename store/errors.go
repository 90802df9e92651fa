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

import "fmt"

// SanityError reports an invariant SanityCheck found broken. A Store
// that produces one is corrupt; SanityCheck is meant to be run from
// tests and debugging tools, not on a hot path.
type SanityError struct {
	Shard   shardKey
	Problem string
}

func (e *SanityError) Error() string {
	return fmt.Sprintf("shard %s/%s: %s", e.Shard.entity, e.Shard.timeline, e.Problem)
}
