// Package census turns Census Bureau tables and TIGER/Line features into the
// population inputs of the census grid.
package census

import (
	"encoding/csv"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/table"
)

// blockGroupColumn matches an ACS estimate column header, e.g.
// "Block Group 1; Census Tract 4001; Los Angeles County; California!!Estimate".
var blockGroupColumn = regexp.MustCompile(`^Block Group (\d+); Census Tract (\d+); ([\w\s]+) County; ([\w\s]+)!!Estimate`)

// BlockGroup is the population estimate of one block group.
type BlockGroup struct {
	Key        string // tract + block group padded to two digits
	Tract      string
	Group      string
	County     string
	State      string
	Population int
}

// ParseBlockGroups reads an ACS block-group table: estimate columns sit at
// every other position starting at index 1, and the estimate is taken from
// the first data row. Values that are not plain digits once thousands
// separators are removed count as zero. Later columns with a repeated key
// overwrite earlier ones in place.
func ParseBlockGroups(r io.Reader) ([]BlockGroup, error) {
	rows, err := table.ReadCSV(r, table.CSVOptions{LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrap(err, "census: read block group table")
	}
	if len(rows) == 0 {
		return nil, eris.New("census: block group table is empty")
	}

	header := rows[0]
	var first []string
	if len(rows) > 1 {
		first = rows[1]
	}

	var out []BlockGroup
	index := make(map[string]int)
	for i := 1; i < len(header); i += 2 {
		m := blockGroupColumn.FindStringSubmatch(header[i])
		if m == nil {
			continue
		}

		var raw string
		if i < len(first) {
			raw = first[i]
		}
		bg := BlockGroup{
			Key:        m[2] + zeroPad(m[1], 2),
			Tract:      m[2],
			Group:      m[1],
			County:     strings.TrimSpace(m[3]),
			State:      strings.TrimSpace(m[4]),
			Population: parseEstimate(raw),
		}

		if at, ok := index[bg.Key]; ok {
			out[at] = bg
			continue
		}
		index[bg.Key] = len(out)
		out = append(out, bg)
	}

	zap.L().Debug("census: parsed block groups", zap.Int("count", len(out)))
	return out, nil
}

// WriteBlockGroups writes the Tract_Block_Group,Population table to path,
// replacing any existing file.
func WriteBlockGroups(path string, groups []BlockGroup) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "census: create %s", path)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"Tract_Block_Group", "Population"})
	for _, g := range groups {
		_ = w.Write([]string{g.Key, strconv.Itoa(g.Population)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "census: write %s", path)
	}
	return eris.Wrapf(f.Close(), "census: close %s", path)
}

func parseEstimate(raw string) int {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
