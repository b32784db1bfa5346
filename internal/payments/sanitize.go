package payments

import (
	"regexp"
	"strings"
)

// Patterns for executable markup stripped from metadata before it is
// forwarded to the payment provider. The provider escapes on its own end;
// this is defense in depth for anything that later renders the metadata.
var (
	scriptTagRe  = regexp.MustCompile(`(?is)<\s*/?\s*script[^>]*>`)
	eventAttrRe  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	dangerousURI = regexp.MustCompile(`(?i)(javascript|vbscript)\s*:|data\s*:\s*text/html`)
)

// SanitizeMetadata returns a copy of the metadata map with executable markup
// stripped from every string value. Keys are preserved as-is.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	clean := make(map[string]string, len(metadata))
	for key, value := range metadata {
		clean[key] = sanitizeValue(value)
	}
	return clean
}

func sanitizeValue(value string) string {
	value = scriptTagRe.ReplaceAllString(value, "")
	value = eventAttrRe.ReplaceAllString(value, "")
	value = dangerousURI.ReplaceAllString(value, "")
	return strings.TrimSpace(value)
}
