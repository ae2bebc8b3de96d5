package reference

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
)

// Read parses a headered reference table. Tab is the expected delimiter but
// comma and whitespace delimited files are accepted. The result is sorted by
// sample ID and keeps the header's column order.
func Read(r io.Reader, source string) (*feature.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", source, err))
	}

	records, err := split(data, segmm.DetermineHeaderDelimiter(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", segmm.ErrConfiguration, source, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: reference table is empty", segmm.ErrConfiguration, source)
	}

	columns, err := ParseHeader(records[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	t := feature.NewTable(source, columns...)
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records[1:] {
		lineNo := i + 2
		if len(rec) != len(columns)+1 {
			return nil, fmt.Errorf("%w: %s line %d: expected %d columns, found %d", segmm.ErrConfiguration, source, lineNo, len(columns)+1, len(rec))
		}

		id := strings.TrimSpace(rec[0])
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s line %d: sample %s appears more than once", segmm.ErrConfiguration, source, lineNo, id)
		}
		seen[id] = struct{}{}

		values := make([]float64, len(columns))
		for j, cell := range rec[1:] {
			v, err := feature.ParseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: sample %s has a non-numeric %s value %q", segmm.ErrConfiguration, source, lineNo, id, columns[j], cell)
			}
			values[j] = v
		}

		if err := t.Append(id, values...); err != nil {
			return nil, err
		}
	}

	t.SortRows()

	return t, nil
}

// ReadFile reads a reference table from a local or gs:// path. A missing file
// is a configuration problem, not an I/O one.
func ReadFile(ctx context.Context, path string, client *storage.Client) (*feature.Table, error) {
	exists, err := segmm.Exists(ctx, path, client)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: reference table %s does not exist", segmm.ErrConfiguration, path)
	}

	rc, err := segmm.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc, path)
}

func split(data []byte, delim rune) ([][]string, error) {
	if delim != '\t' && delim != ',' {
		// Runs of spaces separate a single field boundary
		out := make([][]string, 0)
		for _, line := range strings.Split(string(data), "\n") {
			if fields := strings.Fields(line); len(fields) > 0 {
				out = append(out, fields)
			}
		}
		return out, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	return cr.ReadAll()
}
