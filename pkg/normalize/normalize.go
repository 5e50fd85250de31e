// Package normalize maps raw Shopify API payloads, REST JSON and GraphQL
// edge/node JSON, onto the canonical records in pkg/domain/model. All
// functions are pure: raw bytes in, canonical record or error out, no I/O.
// Scheme-specific parsing stays here so the aggregation engine only ever sees
// canonical types.
package normalize

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Money coerces an API money string to a decimal at the normalization
// boundary; money is never carried as a string past this point. Empty input
// is zero.
func Money(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse money %q", raw)
	}
	return value, nil
}

// Enum lowers a provider enum value into the canonical lowercase snake_case
// vocabulary. GraphQL enums arrive as SCREAMING_SNAKE ("PARTIALLY_REFUNDED"),
// REST ones already lowercase.
func Enum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse timestamp %q", raw)
	}
	return ts, nil
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	ts, err := parseTime(*raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// splitTags turns the REST comma-separated tag string into a set-like slice.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
