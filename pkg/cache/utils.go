package cache

import (
	"fmt"
	"strings"
)

// GenerateKeyWithParams creates a cache key with multiple parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, param := range params {
		fmt.Fprintf(&sb, ":%v", param)
	}
	return sb.String()
}

// BuildPattern creates a glob pattern matching every key under prefix.
func BuildPattern(prefix string) string {
	return fmt.Sprintf("%s*", prefix)
}
