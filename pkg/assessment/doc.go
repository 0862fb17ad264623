// Package assessment classifies heavy-metal readings in a water sample and
// aggregates them into an overall health risk.
//
// Evaluation runs in four steps:
//
//  1. Field names such as "As_ppb" or "Fe (ppm)" are split into an element
//     symbol and a unit. Fields that do not name a known element are ignored.
//  2. Each reading is converted to the element's canonical unit.
//  3. The canonical value is matched to a concentration band. Boundary values
//     belong to the higher band.
//  4. The overall risk is the most severe tier among evaluated elements.
//
// The engine is pure with respect to its inputs: the same sample and rule set
// always produce the same result, regardless of field order or whether
// classification ran in parallel.
package assessment
