package healthrules

import (
	"math"
	"slices"
)

// Store is an immutable, validated rule set. It is safe for concurrent use
// without locking; replacing rules means building a new Store.
type Store struct {
	doc         RuleDocument
	origin      string
	checksum    string
	elements    []ElementDefinition
	index       map[string]int
	conversions []UnitConversion
	byUnits     map[[2]string]UnitConversion
}

func newStore(doc RuleDocument, origin, checksum string) *Store {
	s := &Store{
		doc:         doc,
		origin:      origin,
		checksum:    checksum,
		elements:    make([]ElementDefinition, 0, len(doc.HeavyMetals)),
		index:       make(map[string]int, len(doc.HeavyMetals)),
		conversions: make([]UnitConversion, 0, len(doc.UnitConversions)),
		byUnits:     make(map[[2]string]UnitConversion, len(doc.UnitConversions)),
	}

	for _, c := range doc.UnitConversions {
		uc := newUnitConversion(c.From, c.To, c.Factor)
		s.conversions = append(s.conversions, uc)
		s.byUnits[[2]string{c.From, c.To}] = uc
	}

	for _, el := range doc.HeavyMetals {
		def := ElementDefinition{
			Symbol:           el.Symbol,
			Name:             el.Name,
			Unit:             el.Unit,
			PermissibleLimit: el.PermissibleLimit,
			AcceptedUnits:    slices.Clone(el.AcceptedUnits),
			Tiers:            make([]TierBand, 0, len(el.RiskLevels)),
		}
		for _, lv := range el.RiskLevels {
			upper := math.Inf(1)
			if lv.MaxValue != nil {
				upper = *lv.MaxValue
			}
			def.Tiers = append(def.Tiers, TierBand{
				Tier:          lv.Level,
				Min:           lv.MinValue,
				Max:           upper,
				Diseases:      slices.Clone(lv.Diseases),
				HealthEffects: slices.Clone(lv.HealthEffects),
				Symptoms:      slices.Clone(lv.Symptoms),
			})
		}
		s.index[el.Symbol] = len(s.elements)
		s.elements = append(s.elements, def)
	}

	return s
}

// Lookup returns the definition for symbol. Symbols are case sensitive.
// The returned definition must be treated as read-only.
func (s *Store) Lookup(symbol string) (*ElementDefinition, bool) {
	i, ok := s.index[symbol]
	if !ok {
		return nil, false
	}
	return &s.elements[i], true
}

// SupportedElements returns the element symbols in document order.
func (s *Store) SupportedElements() []string {
	out := make([]string, len(s.elements))
	for i := range s.elements {
		out[i] = s.elements[i].Symbol
	}
	return out
}

// Elements returns a copy of every element definition in document order.
func (s *Store) Elements() []ElementDefinition {
	return slices.Clone(s.elements)
}

// Conversions returns the registered unit conversions.
func (s *Store) Conversions() []UnitConversion {
	return slices.Clone(s.conversions)
}

// Conversion returns the conversion from one unit to another. Converting a
// unit to itself always succeeds with factor 1.
func (s *Store) Conversion(from, to string) (UnitConversion, bool) {
	if from == to {
		return newUnitConversion(from, to, 1), true
	}
	c, ok := s.byUnits[[2]string{from, to}]
	return c, ok
}

// Factor returns the multiplicative factor from one unit to another.
func (s *Store) Factor(from, to string) (float64, bool) {
	c, ok := s.Conversion(from, to)
	if !ok {
		return 0, false
	}
	return c.Factor, true
}

// Document returns the parsed rule document for display. It shares memory
// with the store and must not be modified.
func (s *Store) Document() RuleDocument {
	return s.doc
}

// Version returns the document's version label.
func (s *Store) Version() string {
	return s.doc.Version
}

// Checksum returns the hex sha256 of the source bytes.
func (s *Store) Checksum() string {
	return s.checksum
}

// Origin returns the path the store was loaded from, or "embedded".
func (s *Store) Origin() string {
	return s.origin
}

// Len returns the number of elements.
func (s *Store) Len() int {
	return len(s.elements)
}
