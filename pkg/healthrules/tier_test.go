package healthrules

import (
	"encoding/json"
	"testing"
)

func TestRiskTier_Order(t *testing.T) {
	tiers := AllTiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i] <= tiers[i-1] {
			t.Errorf("%s should be more severe than %s", tiers[i], tiers[i-1])
		}
	}
	if TierUnknown.Valid() {
		t.Error("TierUnknown.Valid() = true, want false")
	}
}

func TestParseRiskTier(t *testing.T) {
	tests := []struct {
		in      string
		want    RiskTier
		wantErr bool
	}{
		{"Safe", Safe, false},
		{"Elevated Risk", ElevatedRisk, false},
		{"high risk", HighRisk, false},
		{"SEVERE_RISK", SevereRisk, false},
		{" Safe ", Safe, false},
		{"Moderate", TierUnknown, true},
		{"", TierUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRiskTier(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRiskTier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRiskTier(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRiskTier_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]RiskTier{"overall": HighRisk})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"overall":"High Risk"}` {
		t.Errorf("json.Marshal = %s", data)
	}

	var back map[string]RiskTier
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["overall"] != HighRisk {
		t.Errorf("round trip = %v, want High Risk", back["overall"])
	}

	if _, err := json.Marshal(TierUnknown); err == nil {
		t.Error("marshaling TierUnknown should fail")
	}
}

func TestMaxTier(t *testing.T) {
	if got := MaxTier(Safe, SevereRisk); got != SevereRisk {
		t.Errorf("MaxTier(Safe, Severe) = %v", got)
	}
	if got := MaxTier(HighRisk, ElevatedRisk); got != HighRisk {
		t.Errorf("MaxTier(High, Elevated) = %v", got)
	}
}
