package feature

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
)

// FinalTableName is the file the classifier consumes.
const FinalTableName = "feature.txt"

var (
	BufferSize = 4096 * 8
)

// Path is the declared on-disk location of a materialized feature.
func Path(outdir string, name Name) string {
	return filepath.Join(outdir, string(name)+".txt")
}

// ParseCell reads one numeric value; NA and empty cells are missing (NaN).
func ParseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return math.NaN(), nil
	}

	return strconv.ParseFloat(s, 64)
}

// FormatCell writes values in shortest round-trip form, and NaN as NA.
func FormatCell(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadPairs reads a headerless, whitespace-delimited two-column (sample ID,
// value) table, as produced by the external feature tools. Blank lines are
// skipped; anything else that is not exactly two fields is an error.
func ReadPairs(r io.Reader, name Name, source string) (*Table, error) {
	t := NewTable(source, name)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, BufferSize), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		cols := strings.Fields(scanner.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) != 2 {
			return nil, fmt.Errorf("%w: %s line %d: expected 2 columns (sample, %s), found %d", segmm.ErrExternalTool, source, lineNo, name, len(cols))
		}

		v, err := strconv.ParseFloat(cols[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: sample %s has a non-numeric %s value %q", segmm.ErrExternalTool, source, lineNo, cols[0], name, cols[1])
		}
		t.Rows = append(t.Rows, Row{SampleID: cols[0], Values: []float64{v}})
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", source, err))
	}

	return t, nil
}

// ReadPairsFile reads a two-column table from disk.
func ReadPairsFile(path string, name Name) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return ReadPairs(f, name, path)
}

// WritePairs writes the first column of a table as (sample ID, value) lines.
func WritePairs(w io.Writer, t *Table) error {
	if len(t.Columns) != 1 {
		return fmt.Errorf("%s: a two-column file holds exactly one feature, found %v", t.Source, t.Columns)
	}

	bw := bufio.NewWriterSize(w, BufferSize)
	for _, r := range t.Rows {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", r.SampleID, FormatCell(r.Values[0])); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteWide writes a tab-delimited table with a sampleid header.
func WriteWide(w io.Writer, t *Table) error {
	bw := bufio.NewWriterSize(w, BufferSize)

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, SampleIDColumn)
	for _, c := range t.Columns {
		header = append(header, string(c))
	}
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return err
	}

	cells := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		cells[0] = r.SampleID
		for i, v := range r.Values {
			cells[i+1] = FormatCell(v)
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFileAtomic writes through a temporary file in the destination
// directory and renames it into place, so path either holds the complete
// output or does not exist.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return pfx.Err(err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pfx.Err(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return pfx.Err(err)
	}

	return nil
}
