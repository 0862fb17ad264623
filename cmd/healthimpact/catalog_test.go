package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"waterwatch-hq/healthimpact/pkg/catalog"
	"waterwatch-hq/healthimpact/pkg/cli"
)

const catalogJSON = `[
  {"element": "Mercury (Hg)", "reactions_with_heavy_metals": ["Amalgamates with Au and Ag"], "reactions_with_environment": ["Methylated by sediment bacteria"], "compounds_found": ["HgS", "CH3Hg+"]},
  {"element": "Cadmium (Cd)", "reactions_with_heavy_metals": ["Substitutes Zn"], "reactions_with_environment": ["Mobile in acidic soil"], "compounds_found": ["CdS"]}
]`

func setCatalogFlags(t *testing.T, db, file, format string, overwrite bool) {
	t.Helper()
	orig := catalogFlags
	catalogFlags.db = db
	catalogFlags.file = file
	catalogFlags.format = format
	catalogFlags.overwrite = overwrite
	t.Cleanup(func() { catalogFlags = orig })
	useConfig(t, "")
}

func TestCatalogImportAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	seed := writeFile(t, "elements.json", catalogJSON)

	setCatalogFlags(t, db, seed, "text", false)
	cmd, out := newTestCmd(t)
	if err := importCatalog(cmd, nil); err != nil {
		t.Fatalf("importCatalog() error = %v", err)
	}
	if !strings.Contains(out.String(), "2 created, 0 updated, 0 skipped") {
		t.Errorf("import summary = %q", out)
	}

	// A second import skips what is already there.
	cmd, out = newTestCmd(t)
	if err := importCatalog(cmd, nil); err != nil {
		t.Fatalf("second importCatalog() error = %v", err)
	}
	if !strings.Contains(out.String(), "0 created, 0 updated, 2 skipped") {
		t.Errorf("second import summary = %q", out)
	}

	catalogFlags.overwrite = true
	cmd, out = newTestCmd(t)
	if err := importCatalog(cmd, nil); err != nil {
		t.Fatalf("overwrite importCatalog() error = %v", err)
	}
	if !strings.Contains(out.String(), "2 updated") {
		t.Errorf("overwrite summary = %q", out)
	}

	catalogFlags.format = "json"
	cmd, out = newTestCmd(t)
	if err := listCatalog(cmd, nil); err != nil {
		t.Fatalf("listCatalog() error = %v", err)
	}
	var entries []catalog.Element
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "" {
			t.Errorf("entry %q has no ID", e.Element)
		}
	}
}

func TestCatalogList_EmptyText(t *testing.T) {
	setCatalogFlags(t, filepath.Join(t.TempDir(), "empty.db"), "", "text", false)
	cmd, out := newTestCmd(t)

	if err := listCatalog(cmd, nil); err != nil {
		t.Fatalf("listCatalog() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != strings.TrimSpace("element  compounds_found  heavy_metal_reactions  environment_reactions  updated_at") {
		t.Errorf("empty list output = %q", out)
	}
}

func TestCatalogImport_Invalid(t *testing.T) {
	bad := `[{"element": "", "reactions_with_heavy_metals": [], "reactions_with_environment": [], "compounds_found": []}]`
	setCatalogFlags(t, filepath.Join(t.TempDir(), "c.db"), writeFile(t, "bad.json", bad), "text", false)
	cmd, _ := newTestCmd(t)

	if err := importCatalog(cmd, nil); cli.ExitCode(err) != cli.ExitInvalidInput {
		t.Errorf("importCatalog() error = %v, want input error", err)
	}
}

func TestCatalog_MemoryBackendRejected(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "catalog:\n  backend: memory\n")
	setCatalogFlags(t, "", "", "text", false)
	useConfig(t, cfg)
	cmd, _ := newTestCmd(t)

	if err := listCatalog(cmd, nil); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("listCatalog() error = %v, want config error", err)
	}
}
