package types

import (
	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// EvaluateResponse is the body of a successful POST /evaluate. Key names
// follow the established client contract.
type EvaluateResponse struct {
	Location       *string                    `json:"Location"`
	State          *string                    `json:"State"`
	District       *string                    `json:"District"`
	Year           *int                       `json:"Year"`
	Coordinates    Coordinates                `json:"Coordinates"`
	OverallRisk    string                     `json:"Overall_Risk"`
	ElementsTested int                        `json:"Elements_Tested"`
	Results        map[string]ElementResponse `json:"Results"`
	Summary        SummaryResponse            `json:"Summary"`
	SkippedFields  []SkippedField             `json:"skipped_fields"`
	RulesVersion   string                     `json:"rules_version,omitempty"`
}

// Coordinates echoes the sample position.
type Coordinates struct {
	Latitude  *float64 `json:"Latitude"`
	Longitude *float64 `json:"Longitude"`
}

// ElementResponse is the result for one element.
type ElementResponse struct {
	Name             string   `json:"Name"`
	Concentration    float64  `json:"Concentration"`
	Unit             string   `json:"Unit"`
	PermissibleLimit float64  `json:"Permissible_Limit"`
	RiskLevel        string   `json:"Risk Level"`
	Diseases         []string `json:"Diseases"`
	HealthEffects    []string `json:"Health Effects"`
	Symptoms         []string `json:"Symptoms"`
}

// SummaryResponse holds aggregate statistics.
type SummaryResponse struct {
	RiskLevelCounts               map[string]int    `json:"Risk_Level_Counts"`
	ElementsAbovePermissibleLimit []LimitExceedance `json:"Elements_Above_Permissible_Limit"`
	TotalElementsTested           int               `json:"Total_Elements_Tested"`
}

// LimitExceedance is one element above its permissible limit.
type LimitExceedance struct {
	Element         string  `json:"element"`
	Concentration   float64 `json:"concentration"`
	Limit           float64 `json:"limit"`
	TimesAboveLimit float64 `json:"times_above_limit"`
}

// SkippedField is a measurement that named a known element but was not
// used.
type SkippedField struct {
	Field   string `json:"field"`
	Element string `json:"element,omitempty"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// NewEvaluateResponse converts an engine result to its wire form.
func NewEvaluateResponse(r *assessment.EvaluationResult) *EvaluateResponse {
	resp := &EvaluateResponse{
		Location:       r.Location.Name,
		State:          r.Location.State,
		District:       r.Location.District,
		Year:           r.Location.Year,
		Coordinates:    Coordinates{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude},
		OverallRisk:    r.OverallRisk.String(),
		ElementsTested: r.ElementsTested,
		Results:        make(map[string]ElementResponse, len(r.Results)),
		Summary:        NewSummaryResponse(r.Summary),
		SkippedFields:  NewSkippedFields(r.SkippedFields),
		RulesVersion:   r.RulesVersion,
	}

	for sym, er := range r.Results {
		resp.Results[sym] = ElementResponse{
			Name:             er.Name,
			Concentration:    er.Concentration,
			Unit:             er.Unit,
			PermissibleLimit: er.PermissibleLimit,
			RiskLevel:        er.RiskLevel.String(),
			Diseases:         orEmpty(er.Diseases),
			HealthEffects:    orEmpty(er.HealthEffects),
			Symptoms:         orEmpty(er.Symptoms),
		}
	}
	return resp
}

// NewSummaryResponse converts summary statistics to their wire form.
func NewSummaryResponse(s assessment.Summary) SummaryResponse {
	out := SummaryResponse{
		RiskLevelCounts:               s.RiskLevelCounts,
		ElementsAbovePermissibleLimit: make([]LimitExceedance, 0, len(s.ElementsAbovePermissibleLimit)),
		TotalElementsTested:           s.TotalElementsTested,
	}
	if out.RiskLevelCounts == nil {
		out.RiskLevelCounts = map[string]int{}
	}
	for _, e := range s.ElementsAbovePermissibleLimit {
		out.ElementsAbovePermissibleLimit = append(out.ElementsAbovePermissibleLimit, LimitExceedance(e))
	}
	return out
}

// NewSkippedFields converts field issues to their wire form. The result is
// never nil so it encodes as [].
func NewSkippedFields(issues []assessment.FieldIssue) []SkippedField {
	out := make([]SkippedField, 0, len(issues))
	for _, is := range issues {
		out = append(out, SkippedField{
			Field:   is.Field,
			Element: is.Element,
			Reason:  string(is.Reason),
			Message: is.Message,
		})
	}
	return out
}

// ElementInfo describes one supported element in GET /elements.
type ElementInfo struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Unit             string   `json:"unit"`
	PermissibleLimit float64  `json:"permissible_limit"`
	AcceptedUnits    []string `json:"accepted_units"`
	RiskLevels       []string `json:"risk_levels"`
}

// ElementsResponse is the body of GET /elements.
type ElementsResponse struct {
	SupportedElements []ElementInfo `json:"supported_elements"`
	Count             int           `json:"count"`
	RulesVersion      string        `json:"rules_version"`
}

// NewElementsResponse lists the elements of store in rule-file order.
func NewElementsResponse(store *healthrules.Store) *ElementsResponse {
	defs := store.Elements()
	resp := &ElementsResponse{
		SupportedElements: make([]ElementInfo, 0, len(defs)),
		Count:             len(defs),
		RulesVersion:      store.Version(),
	}
	for _, d := range defs {
		tiers := make([]string, 0, len(d.Tiers))
		for _, b := range d.Tiers {
			tiers = append(tiers, b.Tier.String())
		}
		resp.SupportedElements = append(resp.SupportedElements, ElementInfo{
			Symbol:           d.Symbol,
			Name:             d.Name,
			Unit:             d.Unit,
			PermissibleLimit: d.PermissibleLimit,
			AcceptedUnits:    orEmpty(d.AcceptedUnits),
			RiskLevels:       tiers,
		})
	}
	return resp
}

// HealthCheckResponse is the body of GET /health-check.
type HealthCheckResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	EngineLoaded bool   `json:"engine_loaded"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
