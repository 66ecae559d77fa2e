// Package shellutil provides safe shell string construction primitives for
// the profile snippets and subprocess commands foxglove emits.
package shellutil

import "strings"

// Quote wraps a value in single quotes, escaping any embedded single quotes
// for safe use in shell commands (POSIX sh-compatible).
func Quote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// PSQuote wraps a value in single quotes for PowerShell, where an embedded
// single quote is escaped by doubling it.
func PSQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
