package assessment

import "testing"

func TestParseFieldName(t *testing.T) {
	tests := []struct {
		field  string
		symbol string
		unit   string
		ok     bool
	}{
		{"As_ppb", "As", "ppb", true},
		{"Fe_ppm", "Fe", "ppm", true},
		{"Hg_ug_L", "Hg", "ug_L", true},
		{"U_ppb", "U", "ppb", true},
		{"As (ppb)", "As", "ppb", true},
		{"Fe (ppm)", "Fe", "ppm", true},
		{"Cl (mg/L)", "Cl", "mg/L", true},
		{"Pb( mg/L )", "Pb", "mg/L", true},
		{"pH", "", "", false},
		{"Total Hardness", "", "", false},
		{"Total_Hardness", "", "", false},
		{"EC (µS/cm at", "", "", false},
		{"CO3", "", "", false},
		{"Fe", "", "", false},
		{"As_", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			sym, unit, ok := ParseFieldName(tt.field)
			if sym != tt.symbol || unit != tt.unit || ok != tt.ok {
				t.Errorf("ParseFieldName(%q) = %q, %q, %v; want %q, %q, %v",
					tt.field, sym, unit, ok, tt.symbol, tt.unit, tt.ok)
			}
		})
	}
}
