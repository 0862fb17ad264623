package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"waterwatch-hq/healthimpact/pkg/catalog"
	"waterwatch-hq/healthimpact/pkg/cli"
	"waterwatch-hq/healthimpact/pkg/server"
)

var catalogFlags struct {
	db        string
	file      string
	overwrite bool
	format    string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the element chemistry catalog",
	Long: `Manage the element chemistry catalog served under /api/elements.

The catalog database comes from the configuration file; --db points the
command at another SQLite file.`,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import catalog entries from a JSON file",
	Long: `Import a JSON array of catalog entries. Entries whose name already
exists are skipped unless --overwrite is set.

Examples:
  healthimpact catalog import --file elements.json
  healthimpact catalog import --file elements.json --db data/catalog.db --overwrite`,
	RunE: importCatalog,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE:  listCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)

	catalogCmd.PersistentFlags().StringVar(&catalogFlags.db, "db", "", "SQLite catalog path (overrides config)")
	catalogImportCmd.Flags().StringVarP(&catalogFlags.file, "file", "f", "", "JSON file with catalog entries (required)")
	catalogImportCmd.Flags().BoolVar(&catalogFlags.overwrite, "overwrite", false, "replace entries that already exist")
	catalogListCmd.Flags().StringVar(&catalogFlags.format, "format", "text", "output format: text, json, csv")
	_ = catalogImportCmd.MarkFlagRequired("file")
}

// openCatalogStore opens the catalog backend named by config and flags.
func openCatalogStore() (catalog.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catCfg := cfg.Catalog
	if catalogFlags.db != "" {
		catCfg.Backend = "sqlite"
		catCfg.SQLite.Path = catalogFlags.db
	}
	if catCfg.Backend == "memory" {
		return nil, cli.NewConfigError("catalog.backend", "the memory backend does not persist; use sqlite or pass --db")
	}
	store, err := server.OpenCatalog(catCfg, slog.Default())
	if err != nil {
		return nil, cli.NewCommandError("catalog", err)
	}
	return store, nil
}

func importCatalog(cmd *cobra.Command, args []string) error {
	if catalogFlags.file == "" {
		return cli.NewConfigError("file", "--file is required")
	}
	store, err := openCatalogStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := catalog.ImportFile(commandContext(cmd), store, catalogFlags.file, catalogFlags.overwrite)
	if err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			return cli.NewInputError(catalogFlags.file, err)
		}
		return cli.NewCommandError("catalog import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s: %d created, %d updated, %d skipped\n",
		catalogFlags.file, res.Created, res.Updated, res.Skipped)
	return nil
}

func listCatalog(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(catalogFlags.format)
	if err != nil {
		return err
	}
	store, err := openCatalogStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("catalog list", err)
	}

	w := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if entries == nil {
			entries = []*catalog.Element{}
		}
		return cli.NewFormatter(format).FormatTo(w, entries)
	}

	t := &cli.Table{Headers: []string{"element", "compounds_found", "heavy_metal_reactions", "environment_reactions", "updated_at"}}
	for _, e := range entries {
		t.AddRow(e.Element,
			strings.Join(e.CompoundsFound, "; "),
			fmt.Sprint(len(e.ReactionsWithHeavyMetals)),
			fmt.Sprint(len(e.ReactionsWithEnvironment)),
			e.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return cli.NewFormatter(format).FormatTo(w, t)
}
