// Package idempotency derives and validates the keys that scope duplicate
// sync-job suppression. Everything here is a pure function; the Job Ledger
// owns how keys are consumed.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rosterhub/syncledger/internal/domain"
)

// MaxKeyLen is the maximum length of any idempotency key.
const MaxKeyLen = 255

var (
	// generatedKeyRe matches machine-derived keys:
	// sync-{owner}-{YYYY-MM-DD}-{source}-{8 hex digest}
	generatedKeyRe = regexp.MustCompile(`^sync-[\w-]+-\d{4}-\d{2}-\d{2}-[\w-]+-[0-9a-f]{8}$`)

	// customKeyRe matches caller-supplied keys: 8-255 word chars or hyphens.
	customKeyRe = regexp.MustCompile(`^[\w-]{8,255}$`)
)

// Derive builds the deterministic key for one logical sync intent on one
// calendar day. Entity types are sorted before hashing so the set
// {users, classes} produces the same key regardless of input order.
func Derive(owner string, source domain.SyncSource, entityTypes []domain.EntityType, day time.Time) string {
	sorted := make([]string, len(entityTypes))
	for i, et := range entityTypes {
		sorted[i] = string(et)
	}
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	digest := hex.EncodeToString(sum[:])[:8]

	return fmt.Sprintf("sync-%s-%s-%s-%s", owner, day.Format("2006-01-02"), source, digest)
}

// WithSuffix appends a high-resolution timestamp to a key whose original
// form has been consumed by a terminal job, yielding a fresh unique key.
func WithSuffix(key string, now time.Time) string {
	return fmt.Sprintf("%s-%d", key, now.UnixNano())
}

// IsValid reports whether a caller-supplied key is acceptable: non-empty,
// at most MaxKeyLen characters, and shaped like either a generated key or
// a loose custom key.
func IsValid(key string) bool {
	if key == "" || len(key) > MaxKeyLen {
		return false
	}
	return generatedKeyRe.MatchString(key) || customKeyRe.MatchString(key)
}
