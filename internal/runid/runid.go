// Package runid generates the per-invocation identifier attached to every
// log line of a load run, so one run's output can be filtered out of shared
// sinks.
package runid

import (
	crand "crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = ulid.Monotonic(crand.Reader, 0)

// New returns a fresh run identifier. IDs generated by one process sort in
// creation order.
func New() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
