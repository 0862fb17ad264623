package assessment

import (
	"regexp"
	"strings"
)

// fieldPattern matches "As_ppb", "Hg_ug_L" and the legacy "As (ppb)".
// The symbol is an upper-case letter optionally followed by a lower-case one.
var fieldPattern = regexp.MustCompile(`^([A-Z][a-z]?)(?:_(.+)|\s*\(\s*([^()]+?)\s*\))$`)

// ParseFieldName splits a measurement field name into an element symbol and
// the raw unit token. ok is false for names that do not follow the
// symbol-unit pattern, such as "pH" or "Total Hardness".
func ParseFieldName(name string) (symbol, unitToken string, ok bool) {
	m := fieldPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return "", "", false
	}
	unitToken = m[2]
	if unitToken == "" {
		unitToken = m[3]
	}
	return m[1], unitToken, true
}
