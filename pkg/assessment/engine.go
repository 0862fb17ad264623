package assessment

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"waterwatch-hq/healthimpact/pkg/healthrules"
	"waterwatch-hq/healthimpact/pkg/units"
)

var tracer = otel.Tracer("waterwatch-hq/healthimpact/pkg/assessment")

// Engine evaluates water samples against the active rule store.
//
// The store sits behind an atomic pointer. Each Evaluate call reads it once,
// so a concurrent SwapRules never mixes two rule sets in one result.
type Engine struct {
	rules  atomic.Pointer[healthrules.Store]
	config *EngineConfig
	logger *slog.Logger
}

// NewEngine creates an engine bound to store.
func NewEngine(store *healthrules.Store, config *EngineConfig, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, ErrNoRules
	}
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config: config,
		logger: logger.With("component", "assessment.engine"),
	}
	e.rules.Store(store)
	return e, nil
}

// Rules returns the active rule store.
func (e *Engine) Rules() *healthrules.Store {
	return e.rules.Load()
}

// SwapRules replaces the active rule store. Evaluations already running
// finish with the store they started with. A nil store is ignored.
func (e *Engine) SwapRules(store *healthrules.Store) {
	if store == nil {
		return
	}
	old := e.rules.Swap(store)
	e.logger.Info("rule store swapped",
		"old_version", old.Version(),
		"new_version", store.Version(),
		"elements", store.Len(),
	)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() EngineConfig {
	return *e.config
}

// candidate is one input field that names a known element.
type candidate struct {
	field string
	value float64
	token string
	unit  string
	rank  int
}

// selection is the field chosen for an element and its canonical value.
type selection struct {
	def       *healthrules.ElementDefinition
	cand      candidate
	canonical float64
}

// Evaluate classifies every recognised element in input and aggregates the
// overall risk. It fails with *NoElementsEvaluatedError when nothing could be
// evaluated. In strict mode the first unusable field fails the call with a
// *FieldError.
func (e *Engine) Evaluate(ctx context.Context, input SampleInput) (*EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "assessment.Evaluate",
		trace.WithAttributes(attribute.Int("sample.fields", len(input.Measurements))))
	defer span.End()

	out, err := e.evaluate(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("assessment.overall_risk", out.OverallRisk.String()),
		attribute.Int("assessment.elements_tested", out.ElementsTested),
		attribute.Int("assessment.skipped_fields", len(out.SkippedFields)),
		attribute.String("rules.version", out.RulesVersion),
	)
	return out, nil
}

func (e *Engine) evaluate(ctx context.Context, input SampleInput) (*EvaluationResult, error) {
	if n := len(input.Measurements); n > e.config.MaxFields {
		return nil, &TooManyFieldsError{Count: n, Limit: e.config.MaxFields}
	}

	store := e.rules.Load()
	norm := units.NewNormalizer(store)
	groups := collectCandidates(store, input.Measurements)

	var issues []FieldIssue
	selected := make([]selection, 0, len(groups))

	for _, sym := range store.SupportedElements() {
		cands, ok := groups[sym]
		if !ok {
			continue
		}
		def, _ := store.Lookup(sym)

		sel, symIssues, err := e.choose(norm, def, cands)
		if err != nil {
			return nil, err
		}
		issues = append(issues, symIssues...)
		if sel != nil {
			selected = append(selected, *sel)
		}
	}

	slices.SortFunc(issues, func(a, b FieldIssue) int { return cmp.Compare(a.Field, b.Field) })

	if len(selected) == 0 {
		return nil, &NoElementsEvaluatedError{Skipped: issues}
	}

	results, err := e.classifyAll(ctx, selected)
	if err != nil {
		return nil, err
	}

	overall, err := Aggregate(results)
	if err != nil {
		return nil, err
	}

	out := &EvaluationResult{
		Location:       input.Location,
		OverallRisk:    overall,
		ElementsTested: len(results),
		Results:        make(map[string]ElementResult, len(results)),
		SkippedFields:  issues,
		RulesVersion:   store.Version(),
	}
	for _, r := range results {
		out.Results[r.Element] = r
	}
	out.Summary = Summarize(out)

	e.logger.Debug("sample evaluated",
		"location", input.Location.Label(),
		"overall_risk", overall.String(),
		"elements_tested", out.ElementsTested,
		"skipped_fields", len(issues),
		"rules_version", out.RulesVersion,
	)

	return out, nil
}

// collectCandidates groups fields by element symbol. Fields that do not
// parse or name an unknown element are dropped here.
func collectCandidates(store *healthrules.Store, measurements map[string]float64) map[string][]candidate {
	groups := make(map[string][]candidate)

	for field, value := range measurements {
		sym, token, ok := ParseFieldName(field)
		if !ok {
			continue
		}
		def, ok := store.Lookup(sym)
		if !ok {
			continue
		}

		unit, _ := units.CanonicalUnit(token)
		groups[sym] = append(groups[sym], candidate{
			field: field,
			value: value,
			token: token,
			unit:  unit,
			rank:  unitRank(def, unit),
		})
	}

	for sym := range groups {
		slices.SortFunc(groups[sym], func(a, b candidate) int {
			if c := cmp.Compare(a.rank, b.rank); c != 0 {
				return c
			}
			return cmp.Compare(a.field, b.field)
		})
	}
	return groups
}

// unitRank orders duplicate fields: canonical unit first, then the order of
// AcceptedUnits, then any other recognised unit, then unrecognised tokens.
func unitRank(def *healthrules.ElementDefinition, unit string) int {
	if unit == "" {
		return len(def.AcceptedUnits) + 2
	}
	if unit == def.Unit {
		return 0
	}
	if i := slices.Index(def.AcceptedUnits, unit); i >= 0 {
		return i + 1
	}
	return len(def.AcceptedUnits) + 1
}

// choose picks the first candidate that normalizes. Earlier failures become
// issues (or the error in strict mode). Later candidates are duplicates.
func (e *Engine) choose(norm *units.Normalizer, def *healthrules.ElementDefinition, cands []candidate) (*selection, []FieldIssue, error) {
	var issues []FieldIssue
	var chosen *selection

	for _, c := range cands {
		if chosen != nil {
			issues = append(issues, FieldIssue{
				Field:   c.field,
				Element: def.Symbol,
				Reason:  IssueDuplicate,
				Message: fmt.Sprintf("%s already measured by %q", def.Symbol, chosen.cand.field),
			})
			continue
		}

		canonical, err := normalizeCandidate(norm, def, c)
		if err != nil {
			if e.config.FieldPolicy == FieldPolicyStrict {
				return nil, nil, &FieldError{Field: c.field, Cause: err}
			}
			issues = append(issues, FieldIssue{
				Field:   c.field,
				Element: def.Symbol,
				Reason:  issueReason(err),
				Message: err.Error(),
			})
			continue
		}

		chosen = &selection{def: def, cand: c, canonical: canonical}
	}

	return chosen, issues, nil
}

func normalizeCandidate(norm *units.Normalizer, def *healthrules.ElementDefinition, c candidate) (float64, error) {
	if c.unit == "" {
		return 0, &units.UnsupportedUnitError{Element: def.Symbol, Unit: c.token, Target: def.Unit}
	}
	return norm.Normalize(def.Symbol, c.value, c.unit)
}

func issueReason(err error) IssueReason {
	var invalid *units.InvalidMeasurementError
	if errors.As(err, &invalid) {
		return IssueInvalidMeasurement
	}
	return IssueUnsupportedUnit
}

// classifyAll builds element results, fanning out when the selection is at
// least ParallelThreshold long. Output order matches selected.
func (e *Engine) classifyAll(ctx context.Context, selected []selection) ([]ElementResult, error) {
	results := make([]ElementResult, len(selected))

	threshold := e.config.ParallelThreshold
	if threshold <= 0 || len(selected) < threshold {
		for i := range selected {
			results[i] = buildResult(selected[i])
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = buildResult(selected[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func buildResult(sel selection) ElementResult {
	cls := Classify(sel.def, sel.canonical)
	return ElementResult{
		Element:          sel.def.Symbol,
		Name:             sel.def.Name,
		Concentration:    sel.canonical,
		Unit:             sel.def.Unit,
		PermissibleLimit: sel.def.PermissibleLimit,
		RiskLevel:        cls.Tier,
		Diseases:         cls.Diseases,
		HealthEffects:    cls.HealthEffects,
		Symptoms:         cls.Symptoms,
		SourceField:      sel.cand.field,
		SourceValue:      sel.cand.value,
		SourceUnit:       sel.cand.unit,
	}
}
