package assessment

import "math"

// Summarize counts results per tier and lists elements above their
// permissible limit, in lexical element order. TimesAboveLimit is rounded to
// two decimal places.
func Summarize(result *EvaluationResult) Summary {
	s := Summary{
		RiskLevelCounts:               make(map[string]int),
		ElementsAbovePermissibleLimit: []LimitExceedance{},
		TotalElementsTested:           len(result.Results),
	}

	for _, sym := range result.Elements() {
		r := result.Results[sym]
		s.RiskLevelCounts[r.RiskLevel.String()]++

		if r.AboveLimit() {
			s.ElementsAbovePermissibleLimit = append(s.ElementsAbovePermissibleLimit, LimitExceedance{
				Element:         sym,
				Concentration:   r.Concentration,
				Limit:           r.PermissibleLimit,
				TimesAboveLimit: math.Round(r.Concentration/r.PermissibleLimit*100) / 100,
			})
		}
	}
	return s
}
