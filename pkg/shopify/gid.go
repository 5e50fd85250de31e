package shopify

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumericID resolves a Shopify GraphQL global ID such as
// "gid://shopify/Order/998877" to its bare numeric id ("998877") by taking
// the substring after the final slash. Plain numeric input passes through.
func NumericID(gid string) string {
	idx := strings.LastIndex(gid, "/")
	if idx < 0 {
		return gid
	}
	return gid[idx+1:]
}

// ParseNumericID resolves a global ID and parses it as int64.
func ParseNumericID(gid string) (int64, error) {
	raw := NumericID(gid)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse global id %q", gid)
	}
	return id, nil
}
