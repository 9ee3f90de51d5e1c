package outline

import (
	"strings"

	"github.com/gosimple/unidecode"
)

// SanitizeTitle transliterates a chapter title to plain ASCII. PDF outline
// strings with characters outside the portable subset render as garbage in
// some viewers, so titles are normalized before being written. The mapping
// is deterministic and idempotent: ASCII input passes through unchanged.
func SanitizeTitle(title string) string {
	return strings.TrimSpace(unidecode.Unidecode(title))
}
