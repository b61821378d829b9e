// Package phone formats store phone numbers.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "AZ"

var separators = regexp.MustCompile(`\s*[,;/|]\s*|\n`)

// NormalizeE164 formats one number to E.164. Input that does not parse as a
// valid number comes back trimmed but otherwise unchanged.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizeList formats a listing that may hold several numbers separated by
// commas, semicolons, slashes or newlines. Results are joined with ", ".
func NormalizeList(input, region string) string {
	var out []string
	for _, part := range separators.Split(input, -1) {
		if n := NormalizeE164(part, region); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ", ")
}
