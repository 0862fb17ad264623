package assessment

import (
	"slices"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Classify maps a canonical concentration to the band [Min, Max) containing
// it. A value equal to a boundary belongs to the higher band. Values past
// every band fall into the last one. The returned slices are copies.
func Classify(def *healthrules.ElementDefinition, value float64) Classification {
	idx := len(def.Tiers) - 1
	for i, band := range def.Tiers {
		if value < band.Max {
			idx = i
			break
		}
	}

	band := def.Tiers[idx]
	return Classification{
		Tier:          band.Tier,
		Band:          idx,
		Diseases:      cloneOrEmpty(band.Diseases),
		HealthEffects: cloneOrEmpty(band.HealthEffects),
		Symptoms:      cloneOrEmpty(band.Symptoms),
	}
}

// Aggregate returns the most severe tier among results. The result does not
// depend on the order of results.
func Aggregate(results []ElementResult) (healthrules.RiskTier, error) {
	if len(results) == 0 {
		return healthrules.TierUnknown, &NoElementsEvaluatedError{}
	}

	overall := results[0].RiskLevel
	for _, r := range results[1:] {
		overall = healthrules.MaxTier(overall, r.RiskLevel)
	}
	return overall, nil
}

func cloneOrEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return slices.Clone(s)
}
