package source

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
	"github.com/gocarina/gocsv"
)

// ReadManifest reads a headerless list of (sample ID, alignment path) pairs.
// Columns may be separated by tabs, commas or runs of spaces.
func ReadManifest(ctx context.Context, path string, client *storage.Client) ([]Sample, error) {
	rc, err := segmm.Open(ctx, path, client)
	if err != nil {
		return nil, fmt.Errorf("%w: alignment manifest %s: %v", segmm.ErrConfiguration, path, err)
	}
	defer rc.Close()

	return ParseManifest(rc, path)
}

func ParseManifest(r io.Reader, source string) ([]Sample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", source, err))
	}

	delim := segmm.DetermineHeaderDelimiter(data)
	if delim != '\t' && delim != ',' {
		data = normalizeWhitespace(data)
		delim = '\t'
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.TrimLeadingSpace = true

	samples := []Sample{}
	if err := gocsv.UnmarshalCSVWithoutHeaders(cr, &samples); err != nil {
		return nil, fmt.Errorf("%w: alignment manifest %s: %v", segmm.ErrConfiguration, source, err)
	}

	seen := make(map[string]struct{}, len(samples))
	for i, s := range samples {
		if s.ID == "" || s.Path == "" {
			return nil, fmt.Errorf("%w: alignment manifest %s line %d: expected a sample ID and a path", segmm.ErrConfiguration, source, i+1)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: alignment manifest %s: sample %s is listed more than once", segmm.ErrConfiguration, source, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	return samples, nil
}

func normalizeWhitespace(data []byte) []byte {
	var buf bytes.Buffer
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		buf.WriteString(strings.Join(fields, "\t"))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}
