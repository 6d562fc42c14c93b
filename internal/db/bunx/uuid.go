package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUIDv7 string for primary keys.
//
// Panics only if the entropy source fails, in which case no ID can be minted anyway.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
