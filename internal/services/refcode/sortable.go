package refcode

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for machine references.
const (
	PrefixLedger  = "LED"
	PrefixFunding = "FND"
)

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// Sortable returns PREFIX-<ULID>. These references tag operations that no
// person has to read back, so they trade brevity for time ordering and
// need no collision check.
func Sortable(prefix string) string {
	ulidMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy)
	ulidMu.Unlock()
	return prefix + "-" + id.String()
}
