package segmm

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Tab is assumed when nothing
// can be detected, since every table this tool writes is tab-delimited.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}

// DetermineHeaderDelimiter looks only at the first line of data, which is
// enough for small headered tables and avoids being misled by sample IDs.
func DetermineHeaderDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	line = bytes.TrimRight(line, "\r")

	switch {
	case bytes.IndexByte(line, '\t') >= 0:
		return '\t'
	case bytes.IndexByte(line, ',') >= 0:
		return ','
	case bytes.IndexByte(bytes.TrimSpace(line), ' ') >= 0:
		return ' '
	}

	return DetermineDelimiter(bytes.NewReader(data))
}
