package templating

import "strings"

// ShellEscape makes a value safe to substitute between single quotes
func ShellEscape(value string) string {
	return strings.ReplaceAll(value, "'", `'"'"'`)
}
