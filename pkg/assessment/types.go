package assessment

import (
	"sort"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Location is descriptive sample metadata. It is echoed back unchanged and
// never influences classification. Nil fields were absent from the sample.
type Location struct {
	Name      *string
	State     *string
	District  *string
	Latitude  *float64
	Longitude *float64
	Year      *int
}

// Label returns the location name, or "" when the sample has none.
func (l Location) Label() string {
	if l.Name == nil {
		return ""
	}
	return *l.Name
}

// SampleInput is one water sample. Measurements is keyed by field name,
// e.g. "As_ppb", "Fe_ppm", "Hg_ug_L" or the legacy "As (ppb)". Keys that do
// not name a known element are ignored.
type SampleInput struct {
	Location     Location
	Measurements map[string]float64
}

// IssueReason classifies why a field was not used.
type IssueReason string

const (
	IssueUnsupportedUnit    IssueReason = "unsupported_unit"
	IssueInvalidMeasurement IssueReason = "invalid_measurement"
	IssueDuplicate          IssueReason = "duplicate"
	IssueInvalidValue       IssueReason = "invalid_value"
)

// FieldIssue describes a field that named a known element but was skipped.
type FieldIssue struct {
	Field   string
	Element string
	Reason  IssueReason
	Message string
}

// Classification is the band selected for one canonical concentration.
type Classification struct {
	Tier          healthrules.RiskTier
	Band          int
	Diseases      []string
	HealthEffects []string
	Symptoms      []string
}

// ElementResult is the outcome for one evaluated element.
type ElementResult struct {
	Element          string
	Name             string
	Concentration    float64
	Unit             string
	PermissibleLimit float64
	RiskLevel        healthrules.RiskTier
	Diseases         []string
	HealthEffects    []string
	Symptoms         []string

	// SourceField, SourceValue and SourceUnit record the input the
	// concentration was derived from.
	SourceField string
	SourceValue float64
	SourceUnit  string
}

// AboveLimit reports whether the concentration exceeds the permissible limit.
func (r ElementResult) AboveLimit() bool {
	return r.PermissibleLimit > 0 && r.Concentration > r.PermissibleLimit
}

// EvaluationResult is the full assessment of one sample.
type EvaluationResult struct {
	Location       Location
	OverallRisk    healthrules.RiskTier
	ElementsTested int
	Results        map[string]ElementResult
	Summary        Summary
	SkippedFields  []FieldIssue
	RulesVersion   string
}

// Elements returns the evaluated element symbols in lexical order.
func (r *EvaluationResult) Elements() []string {
	out := make([]string, 0, len(r.Results))
	for sym := range r.Results {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Summary holds aggregate statistics over an evaluation.
type Summary struct {
	RiskLevelCounts               map[string]int
	ElementsAbovePermissibleLimit []LimitExceedance
	TotalElementsTested           int
}

// LimitExceedance describes one element above its permissible limit.
type LimitExceedance struct {
	Element         string
	Concentration   float64
	Limit           float64
	TimesAboveLimit float64
}
