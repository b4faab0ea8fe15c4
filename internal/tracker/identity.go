package tracker

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// StateReader is the subset of domain.StateStore identity resolution needs.
type StateReader interface {
	Get(key string) string
	SetDurable(key, value string)
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GetOrCreateClientID resolves the stable visitor identifier. Precedence:
// an existing analytics cookie, a previously generated id from durable
// storage, then a freshly generated id which is persisted. Repeated calls
// in the same client lifetime return the same value; an id is never
// regenerated while either source still holds one.
func GetOrCreateClientID(analyticsCookie string, store StateReader) string {
	if id := clientIDFromAnalyticsCookie(analyticsCookie); id != "" {
		return id
	}

	if id := store.Get(StorageKeyClientID); id != "" {
		return id
	}

	id := "cid_" + randomBase36(11) + strconv.FormatInt(time.Now().UnixMilli(), 10)
	store.SetDurable(StorageKeyClientID, id)
	return id
}

// clientIDFromAnalyticsCookie parses the dot-delimited analytics cookie
// and joins fields 3 and 4. Malformed cookies (fewer than 4 segments or
// empty segments) fall through to the storage path.
func clientIDFromAnalyticsCookie(value string) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, ".")
	if len(parts) < 4 || parts[2] == "" || parts[3] == "" {
		return ""
	}
	return parts[2] + "." + parts[3]
}

func randomBase36(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36Alphabet[rand.IntN(len(base36Alphabet))])
	}
	return b.String()
}
