/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

package plume

import (
	"context"
	"time"

	"github.com/ctessum/requestcache"
)

// DefaultDayCacheSize is the number of daily bundles each field keeps
// resident. The day being stepped is always the most recently used entry,
// so it is never the one evicted.
const DefaultDayCacheSize = 3

// dayCache holds recently used daily bundles for one archive. Loads for
// the same day are deduplicated: concurrent requests share one in-flight
// load, and a failed load leaves no cache entry behind, so the next
// request retries. Eviction is least-recently-used.
type dayCache struct {
	cache *requestcache.Cache
}

// newDayCache creates a cache of up to size days, loading missing days
// with load. The returned bundles are shared; callers must treat them as
// read-only.
func newDayCache(size int, load func(ctx context.Context, date time.Time) (interface{}, error)) *dayCache {
	if size <= 0 {
		size = DefaultDayCacheSize
	}
	return &dayCache{
		cache: requestcache.NewCache(
			func(ctx context.Context, request interface{}) (interface{}, error) {
				return load(ctx, request.(time.Time))
			},
			1, // one loader; steps are single-threaded at the I/O layer
			requestcache.Deduplicate(),
			requestcache.Memory(size),
		),
	}
}

// day returns the bundle for date, loading it if absent. The date also
// becomes the most recently used entry, pinning it against eviction until
// another day is activated.
func (c *dayCache) day(ctx context.Context, date time.Time) (interface{}, error) {
	req := c.cache.NewRequest(ctx, date, dateKey(date))
	return req.Result()
}
