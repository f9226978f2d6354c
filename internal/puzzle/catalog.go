// internal/puzzle/catalog.go
//
// Puzzle catalog: the row target words and the canonical hint list.
//
// Sources (per list):
//   1. If a file path is configured, load one entry per line from it.
//   2. Otherwise fall back to the embedded defaults in assets/.
//
// Constraints:
//   • Row words are ASCII letters only, normalized to uppercase; invalid lines are skipped.
//   • Blank lines and lines starting with '#' are ignored in both lists.
//   • At least one row is required; an empty hint list is allowed (hints are then exhausted).

package puzzle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rosebud/assets"
)

// Catalog is the loaded puzzle definition.
type Catalog struct {
	Rows  []string // target words, play order
	Hints []string // canonical hint messages, dispense order
}

// ErrNoRows is returned when no valid row word could be loaded.
var ErrNoRows = errors.New("puzzle: rows list is empty")

// Load builds a catalog from the given files, using embedded defaults for
// any path that is empty.
func Load(rowsPath, hintsPath string) (*Catalog, error) {
	var (
		rawRows, hintList []string
		err               error
	)

	if rowsPath != "" {
		rawRows, err = readLinesFile(rowsPath)
	} else {
		rawRows, err = assets.RowsList()
	}
	if err != nil {
		return nil, fmt.Errorf("puzzle: load rows: %w", err)
	}

	if hintsPath != "" {
		hintList, err = readLinesFile(hintsPath)
	} else {
		hintList, err = assets.HintsList()
	}
	if err != nil {
		return nil, fmt.Errorf("puzzle: load hints: %w", err)
	}

	c := &Catalog{Rows: normalizeRows(rawRows), Hints: hintList}
	if len(c.Rows) == 0 {
		return nil, ErrNoRows
	}
	return c, nil
}

// readLinesFile loads the trimmed, non-empty, non-comment lines of a file.
func readLinesFile(path string) ([]string, error) {
	return assets.ReadLines(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// normalizeRows uppercases row words and drops anything that is not letters.
func normalizeRows(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		w := strings.ToUpper(strings.TrimSpace(line))
		if w == "" || !isAlpha(w) {
			log.Warn().Str("row", line).Msg("skipping invalid row word")
			continue
		}
		out = append(out, w)
	}
	return out
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Stats returns counts of loaded entries: (rows, hints).
func (c *Catalog) Stats() (rowsCount int, hintsCount int) {
	return len(c.Rows), len(c.Hints)
}
