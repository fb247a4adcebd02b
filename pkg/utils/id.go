package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed random identifier, e.g. "bid_4f9d...".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
