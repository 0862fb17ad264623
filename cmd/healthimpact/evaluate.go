package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"waterwatch-hq/healthimpact/pkg/api/types"
	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/cli"
	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/healthrules"
	"waterwatch-hq/healthimpact/pkg/healthrules/source"
	"waterwatch-hq/healthimpact/pkg/server"
)

var evaluateFlags struct {
	file    string
	rules   string
	strict  bool
	format  string
	workers int
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate water samples from a JSON file",
	Long: `Evaluate one or more water samples without starting the server.

The input is a JSON object in the same form as the POST /evaluate body, or a
JSON array of such objects. Use "-" to read from standard input.

Examples:
  # Evaluate a single sample
  healthimpact evaluate --file sample.json

  # Evaluate a batch against a specific rule file, as CSV
  healthimpact evaluate --file samples.json --rules rules.yaml --format csv

  # Reject samples with unusable measurements instead of skipping them
  healthimpact evaluate --file samples.json --strict`,
	RunE: evaluateSamples,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "sample file (JSON object or array, - for stdin)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.rules, "rules", "", "health rules file (overrides config)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.strict, "strict", false, "fail samples with unusable measurements")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, csv")
	evaluateCmd.Flags().IntVar(&evaluateFlags.workers, "workers", runtime.GOMAXPROCS(0), "samples evaluated concurrently")
	_ = evaluateCmd.MarkFlagRequired("file")
}

// SampleOutcome is the result of one sample in a batch.
type SampleOutcome struct {
	Index  int                     `json:"index"`
	Result *types.EvaluateResponse `json:"result,omitempty"`
	Error  *types.ErrorDetail      `json:"error,omitempty"`
}

func evaluateSamples(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	if evaluateFlags.file == "" {
		return cli.NewConfigError("file", "--file is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newCLIEngine(commandContext(cmd), cfg, evaluateFlags.rules, evaluateFlags.strict)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), evaluateFlags.file)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	samples, batch, err := splitSamples(data)
	if err != nil {
		return cli.NewInputError(evaluateFlags.file, err)
	}

	progress := cli.ProgressReporter(cli.NopProgress{})
	if verbose && batch {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "samples")
	}

	outcomes, err := evaluateBatch(commandContext(cmd), engine, samples, evaluateFlags.workers, progress)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if err := writeOutcomes(cmd.OutOrStdout(), format, outcomes, batch); err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return cli.NewInputError(evaluateFlags.file,
			fmt.Errorf("%d of %d samples could not be evaluated", failed, len(outcomes)))
	}
	return nil
}

// newCLIEngine builds an engine from the configured rule source. rulesPath
// overrides the configured file and strict forces the strict field policy.
func newCLIEngine(ctx context.Context, cfg *config.Config, rulesPath string, strict bool) (*assessment.Engine, error) {
	if rulesPath == "" {
		rulesPath = cfg.Rules.FilePath
	}
	store, err := source.New(rulesPath).Load(ctx)
	if err != nil {
		return nil, rulesError(rulesPath, err)
	}

	engineCfg := server.EngineConfig(cfg.Engine)
	if strict {
		engineCfg = engineCfg.WithFieldPolicy(assessment.FieldPolicyStrict)
	}
	engine, err := assessment.NewEngine(store, engineCfg, slog.Default())
	if err != nil {
		return nil, cli.NewConfigError("engine", err.Error())
	}
	return engine, nil
}

func rulesError(path string, err error) error {
	var loadErr *healthrules.RuleLoadError
	if errors.As(err, &loadErr) {
		if path == "" {
			path = "built-in rules"
		}
		return cli.NewInputError(path, err)
	}
	return cli.NewCommandError("load rules", err)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// splitSamples accepts a single JSON object or an array of them. batch
// reports whether the input was an array.
func splitSamples(data []byte) (samples []json.RawMessage, batch bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, errors.New("input is empty")
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{trimmed}, false, nil
	}
	if err := json.Unmarshal(trimmed, &samples); err != nil {
		return nil, true, fmt.Errorf("input is not a JSON array of samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, true, errors.New("input array has no samples")
	}
	return samples, true, nil
}

// evaluateBatch evaluates samples on up to workers goroutines. Per-sample
// failures are reported in the outcome; only cancellation aborts the batch.
func evaluateBatch(ctx context.Context, engine *assessment.Engine, samples []json.RawMessage, workers int, progress cli.ProgressReporter) ([]SampleOutcome, error) {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]SampleOutcome, len(samples))
	validate := validator.New()
	var done atomic.Int64

	progress.Start(int64(len(samples)))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, raw := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = evaluateOne(gctx, engine, validate, i, raw)
			progress.Update(done.Add(1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		progress.Error(err)
		return nil, err
	}
	progress.Finish()
	return outcomes, nil
}

func evaluateOne(ctx context.Context, engine *assessment.Engine, validate *validator.Validate, index int, raw []byte) SampleOutcome {
	out := SampleOutcome{Index: index}

	req, err := types.DecodeEvaluateRequest(raw)
	if err == nil {
		err = req.Validate(validate)
	}
	if err != nil {
		var rerr *types.RequestError
		if errors.As(err, &rerr) {
			out.Error = &types.ErrorDetail{Message: rerr.Message, Type: types.ErrorTypeInvalidRequest, Param: rerr.Param, Code: rerr.Code}
		} else {
			out.Error = &types.ErrorDetail{Message: err.Error(), Type: types.ErrorTypeInvalidRequest, Code: types.CodeInvalidJSON}
		}
		return out
	}

	invalid := req.InvalidIssues(engine.Rules())
	if len(invalid) > 0 && engine.Config().FieldPolicy == assessment.FieldPolicyStrict {
		out.Error = &types.ErrorDetail{Message: invalid[0].Message, Type: types.ErrorTypeUnprocessable, Param: invalid[0].Field, Code: types.CodeInvalidValue}
		return out
	}

	result, err := engine.Evaluate(ctx, req.Sample())
	if err != nil {
		out.Error = evaluationErrorDetail(err, invalid)
		return out
	}
	result.SkippedFields = types.MergeIssues(result.SkippedFields, invalid)
	out.Result = types.NewEvaluateResponse(result)
	return out
}

func evaluationErrorDetail(err error, invalid []assessment.FieldIssue) *types.ErrorDetail {
	var (
		noneErr  *assessment.NoElementsEvaluatedError
		fieldErr *assessment.FieldError
	)
	switch {
	case errors.As(err, &noneErr):
		return &types.ErrorDetail{
			Message:       "no recognised element measurements could be evaluated",
			Type:          types.ErrorTypeUnprocessable,
			Code:          types.CodeNoElementsEvaluated,
			SkippedFields: types.NewSkippedFields(types.MergeIssues(noneErr.Skipped, invalid)),
		}
	case errors.As(err, &fieldErr):
		return &types.ErrorDetail{Message: fieldErr.Cause.Error(), Type: types.ErrorTypeUnprocessable, Param: fieldErr.Field, Code: types.FieldErrorCode(err)}
	default:
		return &types.ErrorDetail{Message: err.Error(), Type: types.ErrorTypeServerError, Code: types.CodeInternalError}
	}
}

func writeOutcomes(w io.Writer, format cli.OutputFormat, outcomes []SampleOutcome, batch bool) error {
	if format == cli.FormatJSON {
		f := cli.NewFormatter(format)
		if !batch {
			if o := outcomes[0]; o.Result != nil {
				return f.FormatTo(w, o.Result)
			}
			return f.FormatTo(w, types.ErrorResponse{Error: *outcomes[0].Error})
		}
		return f.FormatTo(w, outcomes)
	}
	return cli.NewFormatter(format).FormatTo(w, outcomeTable(outcomes))
}

func outcomeTable(outcomes []SampleOutcome) *cli.Table {
	t := &cli.Table{Headers: []string{"index", "location", "overall_risk", "elements_tested", "above_limit", "skipped", "error"}}
	for _, o := range outcomes {
		idx := strconv.Itoa(o.Index)
		if o.Error != nil {
			msg := o.Error.Message
			if o.Error.Code != "" {
				msg = o.Error.Code + ": " + msg
			}
			t.AddRow(idx, "", "", "0", "", strconv.Itoa(len(o.Error.SkippedFields)), msg)
			continue
		}
		r := o.Result
		location := ""
		if r.Location != nil {
			location = *r.Location
		}
		above := make([]string, 0, len(r.Summary.ElementsAbovePermissibleLimit))
		for _, e := range r.Summary.ElementsAbovePermissibleLimit {
			above = append(above, e.Element)
		}
		t.AddRow(idx, location, r.OverallRisk, strconv.Itoa(r.ElementsTested),
			joinOrDash(above), strconv.Itoa(len(r.SkippedFields)), "")
	}
	return t
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, " ")
}
