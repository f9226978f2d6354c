package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed rows.txt hints.txt
var FS embed.FS

// ReadLines returns the trimmed, non-empty, non-comment lines of name in fsys.
// Lines starting with '#' are comments.
func ReadLines(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// RowsList returns the default row target words, one per row, in play order.
func RowsList() ([]string, error) {
	return ReadLines(FS, "rows.txt")
}

// HintsList returns the default canonical hint messages in dispense order.
func HintsList() ([]string, error) {
	return ReadLines(FS, "hints.txt")
}
