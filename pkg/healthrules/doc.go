// Package healthrules loads and validates the heavy-metal rule set used to
// classify water samples.
//
// A rule document lists, per element, a canonical unit, a permissible limit
// and an ordered set of concentration bands. Each band maps a half-open
// range [min, max) of canonical concentrations to a RiskTier and the
// diseases, health effects and symptoms associated with it. The document
// also carries the unit conversion table used to normalize raw readings.
//
// Documents are YAML (JSON is accepted too):
//
//	version: "2024.1"
//	unit_conversions:
//	  - {from: ppb, to: mg/L, factor: 0.001}
//	heavy_metals:
//	  - symbol: As
//	    name: Arsenic
//	    unit: mg/L
//	    permissible_limit: 0.01
//	    accepted_units: [ppb]
//	    risk_levels:
//	      - {level: Safe, min_value: 0, max_value: 0.01}
//	      - {level: Elevated Risk, min_value: 0.01}
//
// Loading fails with a *RuleLoadError listing every problem found. A Store
// is immutable once built. Hot reload builds a new Store and swaps it in.
package healthrules
