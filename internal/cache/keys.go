package cache

import (
	"strconv"
	"strings"
)

// PrefixRecord namespaces parsed file records
const PrefixRecord = "record"

// RecordKey builds the cache key of a parsed record: the parser schema
// version plus the sha256 of the file content
func RecordKey(schema int, contentHash string) string {
	return PrefixRecord + ":v" + strconv.Itoa(schema) + ":" + strings.ToLower(contentHash)
}
