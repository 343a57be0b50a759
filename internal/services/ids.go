package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns "<prefix>_<millis base36>_<8 random hex>". The timestamp keeps
// ids roughly sortable, the random suffix keeps them unique within a millisecond.
func NewID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + suffix
}
