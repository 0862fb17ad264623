// Package units converts raw element readings into the canonical unit each
// element's thresholds are expressed in.
package units

import (
	"math"
	"strings"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Unit names as they appear in rule documents.
const (
	MilligramsPerLitre = "mg/L"
	MicrogramsPerLitre = "µg/L"
	PartsPerMillion    = "ppm"
	PartsPerBillion    = "ppb"
)

// unitTokens maps field-name suffix spellings to unit names. Keys are
// lower-cased with the Greek mu folded to the micro sign.
var unitTokens = map[string]string{
	"ppm":  PartsPerMillion,
	"ppb":  PartsPerBillion,
	"mg/l": MilligramsPerLitre,
	"mg_l": MilligramsPerLitre,
	"mgl":  MilligramsPerLitre,
	"µg/l": MicrogramsPerLitre,
	"µg_l": MicrogramsPerLitre,
	"ug/l": MicrogramsPerLitre,
	"ug_l": MicrogramsPerLitre,
	"ugl":  MicrogramsPerLitre,
}

// CanonicalUnit maps a field suffix such as "ppb", "mg_L" or "ug/L" to the
// unit name used in rule documents.
func CanonicalUnit(token string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(token))
	key = strings.ReplaceAll(key, "μ", "µ")
	u, ok := unitTokens[key]
	return u, ok
}

// Normalizer converts readings using the conversions of one rule store.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	store *healthrules.Store
}

// NewNormalizer creates a normalizer bound to store.
func NewNormalizer(store *healthrules.Store) *Normalizer {
	return &Normalizer{store: store}
}

// Normalize converts raw, measured in sourceUnit, to symbol's canonical unit.
// When the element declares accepted units, sourceUnit must be one of them
// or the canonical unit itself.
func (n *Normalizer) Normalize(symbol string, raw float64, sourceUnit string) (float64, error) {
	def, conv, err := n.resolve(symbol, sourceUnit)
	if err != nil {
		return 0, err
	}
	if !validReading(raw) {
		return 0, &InvalidMeasurementError{Element: def.Symbol, Value: raw}
	}
	return conv.Apply(raw), nil
}

// Denormalize converts a canonical concentration back to targetUnit.
func (n *Normalizer) Denormalize(symbol string, canonical float64, targetUnit string) (float64, error) {
	def, conv, err := n.resolve(symbol, targetUnit)
	if err != nil {
		return 0, err
	}
	if !validReading(canonical) {
		return 0, &InvalidMeasurementError{Element: def.Symbol, Value: canonical}
	}
	return conv.Invert(canonical), nil
}

func (n *Normalizer) resolve(symbol, unit string) (*healthrules.ElementDefinition, healthrules.UnitConversion, error) {
	def, ok := n.store.Lookup(symbol)
	if !ok {
		return nil, healthrules.UnitConversion{}, &UnknownElementError{Element: symbol}
	}

	if len(def.AcceptedUnits) > 0 && !def.Accepts(unit) {
		return def, healthrules.UnitConversion{}, &UnsupportedUnitError{Element: symbol, Unit: unit, Target: def.Unit}
	}

	conv, ok := n.store.Conversion(unit, def.Unit)
	if !ok {
		return def, healthrules.UnitConversion{}, &UnsupportedUnitError{Element: symbol, Unit: unit, Target: def.Unit}
	}
	return def, conv, nil
}

func validReading(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
