package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// Import reads a JSON array of entries from r into store. Existing names are
// updated when overwrite is set and skipped otherwise. The import stops at
// the first invalid entry.
func Import(ctx context.Context, store Storage, r io.Reader, overwrite bool) (ImportResult, error) {
	var res ImportResult

	var entries []*Element
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return res, fmt.Errorf("decode catalog entries: %w", err)
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := Validate(e); err != nil {
			return res, fmt.Errorf("entry %d: %w", i, err)
		}

		_, err := store.Create(ctx, e)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, ErrAlreadyExists) && overwrite:
			if _, err := store.Update(ctx, e.Element, Update{
				ReactionsWithHeavyMetals: e.ReactionsWithHeavyMetals,
				ReactionsWithEnvironment: e.ReactionsWithEnvironment,
				CompoundsFound:           e.CompoundsFound,
			}); err != nil {
				return res, fmt.Errorf("entry %d: %w", i, err)
			}
			res.Updated++
		case errors.Is(err, ErrAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return res, nil
}

// ImportFile is Import over the file at path.
func ImportFile(ctx context.Context, store Storage, path string, overwrite bool) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()
	return Import(ctx, store, f, overwrite)
}
