package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	nonSlugChars = regexp.MustCompile("[^a-z0-9-]")
	hyphenRuns   = regexp.MustCompile("-+")
)

// Slugify converts a string to a URL-friendly slug
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GenerateInvoiceNo suggests an invoice number such as INV-202610-3F9A12BC.
// Numbers are not guaranteed unique; callers may overwrite them.
func GenerateInvoiceNo(prefix string, now time.Time) string {
	return prefix + now.Format("200601") + "-" + strings.ToUpper(uuid.New().String()[:8])
}
