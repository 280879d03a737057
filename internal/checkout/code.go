package checkout

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Order codes are human-readable references for support tickets, not
// identifiers. Collisions are tolerated because the uuid primary key
// stays authoritative; the code column only carries a unique index to
// surface the (unlikely) clash at insert time.
func newOrderCode(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%08d-%03d", prefix, at.UnixMilli()%100000000, rand.IntN(1000))
}

func newMasterOrderCode(at time.Time) string { return newOrderCode("ORD", at) }

func newSubOrderCode(at time.Time) string { return newOrderCode("SUB", at) }
