package healthrules

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
)

func TestDefault(t *testing.T) {
	store, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	want := []string{"As", "Fe", "U", "Pb", "Cd", "Cr", "Hg"}
	got := store.SupportedElements()
	if len(got) != len(want) {
		t.Fatalf("SupportedElements() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedElements()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if store.Origin() != EmbeddedOrigin {
		t.Errorf("Origin() = %q, want %q", store.Origin(), EmbeddedOrigin)
	}

	again, _ := Default()
	if again != store {
		t.Error("Default() should return the same store on every call")
	}
}

func TestDefault_EveryElementHasFourTiers(t *testing.T) {
	store, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	for _, def := range store.Elements() {
		if len(def.Tiers) != 4 {
			t.Errorf("%s: %d tiers, want 4", def.Symbol, len(def.Tiers))
			continue
		}
		for i, tier := range AllTiers() {
			if def.Tiers[i].Tier != tier {
				t.Errorf("%s: tier[%d] = %s, want %s", def.Symbol, i, def.Tiers[i].Tier, tier)
			}
		}
		if def.PermissibleLimit != def.Tiers[0].Max {
			t.Errorf("%s: limit %v != Safe upper bound %v", def.Symbol, def.PermissibleLimit, def.Tiers[0].Max)
		}
		for _, u := range def.AcceptedUnits {
			if _, ok := store.Factor(u, def.Unit); !ok {
				t.Errorf("%s: no factor %s -> %s", def.Symbol, u, def.Unit)
			}
		}
	}
}

func TestStore_Lookup(t *testing.T) {
	store, _ := Default()

	tests := []struct {
		symbol string
		want   bool
	}{
		{"As", true},
		{"Hg", true},
		{"as", false},
		{"Xx", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			_, ok := store.Lookup(tt.symbol)
			if ok != tt.want {
				t.Errorf("Lookup(%q) ok = %v, want %v", tt.symbol, ok, tt.want)
			}
		})
	}
}

func TestStore_Factor(t *testing.T) {
	store, _ := Default()

	tests := []struct {
		from, to string
		want     float64
		ok       bool
	}{
		{"ppm", "mg/L", 1, true},
		{"ppb", "mg/L", 0.001, true},
		{"µg/L", "mg/L", 0.001, true},
		{"mg/L", "mg/L", 1, true},
		{"furlong", "furlong", 1, true},
		{"mg/L", "ppb", 0, false},
		{"grain", "mg/L", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got, ok := store.Factor(tt.from, tt.to)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Factor(%q, %q) = %v, %v; want %v, %v", tt.from, tt.to, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestUnitConversion_ExactDecimalScaling(t *testing.T) {
	c := newUnitConversion("ppb", "mg/L", 0.001)

	tests := []struct {
		in   float64
		want float64
	}{
		{10, 0.01},
		{15, 0.015},
		{50, 0.05},
		{3, 0.003},
		{6, 0.006},
	}

	for _, tt := range tests {
		if got := c.Apply(tt.in); got != tt.want {
			t.Errorf("Apply(%v) = %v, want exactly %v", tt.in, got, tt.want)
		}
	}

	if got := c.Invert(0.05); math.Abs(got-50) > 1e-9 {
		t.Errorf("Invert(0.05) = %v, want 50", got)
	}

	odd := newUnitConversion("x", "y", 0.3)
	if got := odd.Apply(2); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("Apply with non-reciprocal factor = %v, want 0.6", got)
	}
}

func TestStore_DocumentMarshalsToJSON(t *testing.T) {
	store, _ := Default()

	data, err := json.Marshal(store.Document())
	if err != nil {
		t.Fatalf("json.Marshal(Document()) error = %v", err)
	}

	roundTrip, err := LoadBytes(data, "dump")
	if err != nil {
		t.Fatalf("dumped document does not reload: %v", err)
	}
	if roundTrip.Len() != store.Len() {
		t.Errorf("reloaded Len() = %d, want %d", roundTrip.Len(), store.Len())
	}
}

func TestStore_ConcurrentReads(t *testing.T) {
	store, _ := Default()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, sym := range store.SupportedElements() {
				if _, ok := store.Lookup(sym); !ok {
					t.Errorf("Lookup(%q) failed", sym)
				}
			}
		}()
	}
	wg.Wait()
}
