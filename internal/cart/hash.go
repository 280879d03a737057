package cart

import (
	"strconv"
	"time"

	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

// activityField marks the last mutation time inside the cart hash,
// next to the variant quantity fields.
const activityField = "lastActivity"

func encodeActivity(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// DecodeHash splits a raw cart hash into the quantity map and the
// activity marker. Unparseable fields are dropped rather than
// failing the whole cart.
func DecodeHash(fields map[string]string) (types.QuantityMap, time.Time) {
	items := types.QuantityMap{}
	var lastActivity time.Time
	for field, raw := range fields {
		if field == activityField {
			if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
				lastActivity = time.Unix(unix, 0)
			}
			continue
		}
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			continue
		}
		items[field] = qty
	}
	return items, lastActivity
}
