package healthrules

import (
	"fmt"
	"strings"
)

// RiskTier is an ordered severity level. Higher values are more severe.
type RiskTier int

const (
	// TierUnknown is the zero value and never appears in a valid rule set.
	TierUnknown RiskTier = iota
	Safe
	ElevatedRisk
	HighRisk
	SevereRisk
)

var tierNames = map[RiskTier]string{
	Safe:         "Safe",
	ElevatedRisk: "Elevated Risk",
	HighRisk:     "High Risk",
	SevereRisk:   "Severe Risk",
}

// AllTiers returns every valid tier in ascending severity.
func AllTiers() []RiskTier {
	return []RiskTier{Safe, ElevatedRisk, HighRisk, SevereRisk}
}

// String returns the display name used in rule files and responses.
func (t RiskTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RiskTier(%d)", int(t))
}

// Valid reports whether t is one of the four defined tiers.
func (t RiskTier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// ParseRiskTier parses a tier display name. Matching ignores case and
// treats underscores as spaces, so "high_risk" and "High Risk" are equal.
func ParseRiskTier(s string) (RiskTier, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for tier, name := range tierNames {
		if strings.ToLower(name) == norm {
			return tier, nil
		}
	}
	return TierUnknown, fmt.Errorf("unknown risk tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid risk tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RiskTier) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MaxTier returns the more severe of a and b.
func MaxTier(a, b RiskTier) RiskTier {
	if b > a {
		return b
	}
	return a
}
