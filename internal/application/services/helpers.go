package services

import (
	"crypto/sha256"
	"fmt"
	"time"
)

func ComputeHash(v interface{}) string {
	data := fmt.Sprintf("%+v", v)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// now is the single clock of the package. Timestamps are truncated to the
// microsecond precision postgres stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
