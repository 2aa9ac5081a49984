// internal/colornames/names.go
//
// Named-color lookup for guess feedback ("that was closest to teal").
//
// Responsibilities:
//   - Load the name → RGB table from an environment-provided file or
//     fall back to the embedded CSS-named-color defaults.
//   - Supply Nearest, which finds the closest named color to an RGB
//     triple by squared channel distance.
//
// Environment variables:
//   COLOR_NAMES_FILE=/path/to/names.txt   (lines of "<name> <#rrggbb>")
//
// Initialization is run once (sync.Once); an empty table is an error.

package colornames

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/huehunt/go-server/assets"
)

type named struct {
	name    string
	r, g, b uint8
}

var (
	initOnce   sync.Once
	table      []named
	initialErr error
)

// Init loads the color-name table exactly once.
// Returns an error if the table ends up empty.
func Init() error {
	initOnce.Do(func() {
		var lines []string
		if path := os.Getenv("COLOR_NAMES_FILE"); path != "" {
			var err error
			lines, err = readNameFile(path)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			var err error
			lines, err = assets.ColorNamesList()
			if err != nil {
				initialErr = err
				return
			}
		}
		for _, line := range lines {
			if n, ok := parseLine(line); ok {
				table = append(table, n)
			}
		}
		if len(table) == 0 {
			initialErr = errors.New("colornames: name table is empty")
		}
	})
	return initialErr
}

// Nearest returns the name of the closest table entry to (r,g,b) and
// the squared RGB distance to it. Returns ("", 0) if Init has not
// populated the table.
func Nearest(r, g, b uint8) (string, int) {
	best, bestDist := "", -1
	for _, n := range table {
		d := sq(int(r)-int(n.r)) + sq(int(g)-int(n.g)) + sq(int(b)-int(n.b))
		if bestDist < 0 || d < bestDist {
			best, bestDist = n.name, d
		}
	}
	if bestDist < 0 {
		return "", 0
	}
	return best, bestDist
}

// Count returns the number of loaded names.
func Count() int { return len(table) }

// readNameFile loads one "name #rrggbb" pair per line from a file,
// skipping blanks and comment lines.
func readNameFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(strings.ToLower(sc.Text()))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// parseLine reads "name #rrggbb" into a table entry.
func parseLine(line string) (named, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "#") || len(fields[1]) != 7 {
		return named{}, false
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(fields[1], "#%02x%02x%02x", &r, &g, &b); err != nil {
		return named{}, false
	}
	return named{name: fields[0], r: r, g: g, b: b}, true
}

func sq(x int) int { return x * x }
