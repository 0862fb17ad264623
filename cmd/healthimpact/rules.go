package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"waterwatch-hq/healthimpact/pkg/cli"
	"waterwatch-hq/healthimpact/pkg/healthrules"
	"waterwatch-hq/healthimpact/pkg/healthrules/source"
	"waterwatch-hq/healthimpact/pkg/units"
)

var rulesFlags struct {
	file           string
	validateFormat string
	elementsFormat string
	dumpFormat     string
	from           string
	to             string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate health rule documents",
	Long: `Inspect and validate health rule documents.

Without --file the rule set compiled into the binary is used.`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rule document",
	Long: `Parse a rule document and check every element for complete,
contiguous risk bands and a consistent unit conversion table.

Examples:
  healthimpact rules validate --file rules.yaml
  healthimpact rules validate --file rules.yaml --format json`,
	RunE: validateRules,
}

var rulesElementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "List the elements a rule document can evaluate",
	RunE:  listElements,
}

var rulesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the normalized rule document",
	Long: `Print the rule document as the engine sees it, as YAML (default) or
JSON. Useful for exporting the built-in rules as a starting point:

  healthimpact rules dump > rules.yaml`,
	RunE: dumpRules,
}

var rulesConvertCmd = &cobra.Command{
	Use:   "convert <element> <value>",
	Short: "Convert a reading between units",
	Long: `Convert a reading for an element between units using the rule
document's conversion table. --to defaults to the element's canonical unit.

Examples:
  healthimpact rules convert As 12 --from ppb
  healthimpact rules convert Pb 0.02 --from mg/L --to ppb`,
	Args: cobra.ExactArgs(2),
	RunE: convertReading,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd, rulesElementsCmd, rulesDumpCmd, rulesConvertCmd)

	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.file, "file", "f", "", "rule document (built-in rules when empty)")
	rulesValidateCmd.Flags().StringVar(&rulesFlags.validateFormat, "format", "text", "output format: text, json")
	rulesElementsCmd.Flags().StringVar(&rulesFlags.elementsFormat, "format", "text", "output format: text, json, csv")
	rulesDumpCmd.Flags().StringVar(&rulesFlags.dumpFormat, "format", "yaml", "output format: yaml, json")
	rulesConvertCmd.Flags().StringVar(&rulesFlags.from, "from", "", "unit of the reading (required)")
	rulesConvertCmd.Flags().StringVar(&rulesFlags.to, "to", "", "target unit (canonical unit when empty)")
	_ = rulesConvertCmd.MarkFlagRequired("from")
}

// RulesReport summarizes a validation run.
type RulesReport struct {
	Origin      string   `json:"origin"`
	Valid       bool     `json:"valid"`
	Version     string   `json:"version,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	Elements    int      `json:"elements"`
	Conversions int      `json:"conversions"`
	Errors      []string `json:"errors,omitempty"`
}

func loadRules(cmd *cobra.Command) (*healthrules.Store, error) {
	store, err := source.New(rulesFlags.file).Load(commandContext(cmd))
	if err != nil {
		return nil, rulesError(rulesFlags.file, err)
	}
	return store, nil
}

func validateRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(rulesFlags.validateFormat)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "rules validate supports text or json")
	}

	report := RulesReport{Origin: describeRules(rulesFlags.file)}
	store, loadErr := source.New(rulesFlags.file).Load(commandContext(cmd))
	if loadErr != nil {
		report.Errors = ruleErrorLines(loadErr)
	} else {
		report.Valid = true
		report.Version = store.Version()
		report.Checksum = store.Checksum()
		report.Elements = store.Len()
		report.Conversions = len(store.Conversions())
	}

	w := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(w, report); err != nil {
			return err
		}
	} else {
		writeReport(w, report)
	}

	if loadErr != nil {
		return rulesError(rulesFlags.file, loadErr)
	}
	return nil
}

func writeReport(w io.Writer, r RulesReport) {
	if !r.Valid {
		fmt.Fprintf(w, "✗ %s: %d problem(s)\n", r.Origin, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
		return
	}
	fmt.Fprintf(w, "✓ %s is valid\n", r.Origin)
	fmt.Fprintf(w, "  version:     %s\n", r.Version)
	fmt.Fprintf(w, "  elements:    %d\n", r.Elements)
	fmt.Fprintf(w, "  conversions: %d\n", r.Conversions)
	fmt.Fprintf(w, "  checksum:    %s\n", r.Checksum)
}

// ruleErrorLines flattens a load error into one line per problem.
func ruleErrorLines(err error) []string {
	var loadErr *healthrules.RuleLoadError
	if !errors.As(err, &loadErr) || len(loadErr.Errors) == 0 {
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(loadErr.Errors))
	for _, fe := range loadErr.Errors {
		lines = append(lines, fe.Error())
	}
	return lines
}

func describeRules(path string) string {
	if path == "" {
		return "built-in rules"
	}
	return path
}

func listElements(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(rulesFlags.elementsFormat)
	if err != nil {
		return err
	}
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	t := &cli.Table{Headers: []string{"symbol", "name", "unit", "permissible_limit", "accepted_units", "risk_levels"}}
	for _, d := range store.Elements() {
		tiers := make([]string, 0, len(d.Tiers))
		for _, b := range d.Tiers {
			tiers = append(tiers, b.Tier.String())
		}
		t.AddRow(d.Symbol, d.Name, d.Unit,
			strconv.FormatFloat(d.PermissibleLimit, 'g', -1, 64),
			strings.Join(d.AcceptedUnits, " "),
			strings.Join(tiers, ", "))
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), t)
}

func dumpRules(cmd *cobra.Command, args []string) error {
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}
	doc := store.Document()
	w := cmd.OutOrStdout()

	switch strings.ToLower(rulesFlags.dumpFormat) {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return cli.NewCommandError("rules dump", err)
		}
		return enc.Close()
	case "json":
		return cli.NewFormatter(cli.FormatJSON).FormatTo(w, doc)
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unsupported dump format %q (use yaml or json)", rulesFlags.dumpFormat))
	}
}

func convertReading(cmd *cobra.Command, args []string) error {
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	symbol := args[0]
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return cli.NewConfigError("value", fmt.Sprintf("%q is not a number", args[1]))
	}
	from := unitName(rulesFlags.from)

	norm := units.NewNormalizer(store)
	canonical, err := norm.Normalize(symbol, value, from)
	if err != nil {
		return cli.NewCommandError("rules convert", err)
	}

	def, _ := store.Lookup(symbol)
	to := def.Unit
	out := canonical
	if rulesFlags.to != "" {
		to = unitName(rulesFlags.to)
		if out, err = norm.Denormalize(symbol, canonical, to); err != nil {
			return cli.NewCommandError("rules convert", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s = %s %s\n",
		def.Symbol,
		strconv.FormatFloat(value, 'g', -1, 64), from,
		strconv.FormatFloat(out, 'g', -1, 64), to)
	return nil
}

// unitName accepts field-suffix spellings such as "ug_L" as well as the
// unit names used in rule documents.
func unitName(token string) string {
	if u, ok := units.CanonicalUnit(token); ok {
		return u
	}
	return token
}
