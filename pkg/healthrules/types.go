package healthrules

import "math"

// RuleDocument is the on-disk form of a rule set. It is accepted as YAML or JSON.
type RuleDocument struct {
	// Version is a free-form label echoed in evaluation results.
	Version string `yaml:"version" json:"version"`

	// UnitConversions lists multiplicative factors between unit names.
	UnitConversions []ConversionSpec `yaml:"unit_conversions" json:"unit_conversions" validate:"dive"`

	// HeavyMetals lists the elements the engine can evaluate, in display order.
	HeavyMetals []ElementSpec `yaml:"heavy_metals" json:"heavy_metals" validate:"required,min=1,dive"`
}

// ConversionSpec declares that a value in From multiplied by Factor is the
// same quantity expressed in To.
type ConversionSpec struct {
	From   string  `yaml:"from" json:"from" validate:"required"`
	To     string  `yaml:"to" json:"to" validate:"required"`
	Factor float64 `yaml:"factor" json:"factor" validate:"gt=0"`
}

// ElementSpec is the rule entry for a single element.
type ElementSpec struct {
	Symbol           string     `yaml:"symbol" json:"symbol" validate:"required,alpha,max=3"`
	Name             string     `yaml:"name" json:"name" validate:"required"`
	Unit             string     `yaml:"unit" json:"unit" validate:"required"`
	PermissibleLimit float64    `yaml:"permissible_limit" json:"permissible_limit" validate:"gt=0"`
	AcceptedUnits    []string   `yaml:"accepted_units" json:"accepted_units" validate:"dive,required"`
	RiskLevels       []TierSpec `yaml:"risk_levels" json:"risk_levels" validate:"required,min=1,dive"`
}

// TierSpec is one concentration band. A nil MaxValue means the band is
// unbounded above and is only valid on the last band.
type TierSpec struct {
	Level         RiskTier `yaml:"level" json:"level" validate:"required"`
	MinValue      float64  `yaml:"min_value" json:"min_value" validate:"gte=0"`
	MaxValue      *float64 `yaml:"max_value,omitempty" json:"max_value,omitempty"`
	Diseases      []string `yaml:"diseases" json:"diseases"`
	HealthEffects []string `yaml:"health_effects" json:"health_effects"`
	Symptoms      []string `yaml:"symptoms" json:"symptoms"`
}

// ElementDefinition is the validated, read-only rule for one element.
// Values handed out by a Store must not be modified.
type ElementDefinition struct {
	Symbol           string
	Name             string
	Unit             string
	PermissibleLimit float64
	AcceptedUnits    []string
	Tiers            []TierBand
}

// TierBand covers canonical concentrations in [Min, Max).
// The last band of every element has Max == +Inf.
type TierBand struct {
	Tier          RiskTier
	Min           float64
	Max           float64
	Diseases      []string
	HealthEffects []string
	Symptoms      []string
}

// Contains reports whether v falls inside the band.
func (b TierBand) Contains(v float64) bool {
	return v >= b.Min && v < b.Max
}

// Boundaries returns the interior band edges in ascending order.
func (d *ElementDefinition) Boundaries() []float64 {
	if len(d.Tiers) < 2 {
		return nil
	}
	out := make([]float64, 0, len(d.Tiers)-1)
	for _, b := range d.Tiers[1:] {
		out = append(out, b.Min)
	}
	return out
}

// Accepts reports whether unit is a declared input unit for the element.
// The canonical unit is always accepted.
func (d *ElementDefinition) Accepts(unit string) bool {
	if unit == d.Unit {
		return true
	}
	for _, u := range d.AcceptedUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// UnitConversion is a validated conversion factor.
type UnitConversion struct {
	From   string
	To     string
	Factor float64

	// divisor is set when 1/Factor is a whole number. Dividing by it keeps
	// values such as 10 ppb landing exactly on 0.01 mg/L.
	divisor float64
}

func newUnitConversion(from, to string, factor float64) UnitConversion {
	c := UnitConversion{From: from, To: to, Factor: factor}
	if factor > 0 && factor < 1 {
		inv := math.Round(1 / factor)
		if math.Abs(inv*factor-1) < 1e-12 {
			c.divisor = inv
		}
	}
	return c
}

// Apply converts v from c.From to c.To.
func (c UnitConversion) Apply(v float64) float64 {
	if c.divisor != 0 {
		return v / c.divisor
	}
	return v * c.Factor
}

// Invert converts v from c.To back to c.From.
func (c UnitConversion) Invert(v float64) float64 {
	if c.divisor != 0 {
		return v * c.divisor
	}
	return v / c.Factor
}
