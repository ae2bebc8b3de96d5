package feature

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/segmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	for _, v := range Canonical {
		n, err := ParseName(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, n)
	}

	_, err := ParseName("foo")
	assert.True(t, errors.Is(err, segmm.ErrConfiguration))

	// Names are case sensitive, like the header they come from
	_, err = ParseName("xh")
	assert.Error(t, err)
}

func TestSortCanonical(t *testing.T) {
	got := SortCanonical([]Name{SRY, Ymap, XH, XYratio, Xmap})
	assert.Equal(t, Canonical, got)
}

func TestReadPairs(t *testing.T) {
	in := "S2\t0.3\n\nS1 0.1\n"
	tab, err := ReadPairs(strings.NewReader(in), XH, "XH.txt")
	require.NoError(t, err)

	assert.Equal(t, []Name{XH}, tab.Columns)
	assert.Equal(t, []string{"S2", "S1"}, tab.SampleIDs())

	// Arrival order is preserved, so it is not sorted yet
	assert.Error(t, tab.CheckSorted())
	tab.SortRows()
	assert.NoError(t, tab.CheckSorted())

	row, ok := tab.Lookup("S2")
	require.True(t, ok)
	assert.Equal(t, 0.3, row.Values[0])
}

func TestReadPairsRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"S1\t0.1\textra\n",
		"S1\n",
		"S1\tabc\n",
	} {
		_, err := ReadPairs(strings.NewReader(in), Xmap, "Xmap.txt")
		assert.True(t, errors.Is(err, segmm.ErrExternalTool), "input %q", in)
	}
}

func TestCheckSortedDuplicates(t *testing.T) {
	tab := NewTable("dup", XH)
	require.NoError(t, tab.Append("S1", 0.1))
	require.NoError(t, tab.Append("S1", 0.2))

	err := tab.CheckSorted()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S1")
}

func TestWriteWide(t *testing.T) {
	tab := NewTable("test", Xmap, XH)
	require.NoError(t, tab.Append("S1", 0.9, 0.1))
	require.NoError(t, tab.Append("S2", 0.8, math.NaN()))

	var buf bytes.Buffer
	require.NoError(t, WriteWide(&buf, tab.Canonicalize()))

	assert.Equal(t, "sampleid\tXH\tXmap\nS1\t0.1\t0.9\nS2\tNA\t0.8\n", buf.String())
}

func TestWritePairsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tab := NewTable("test", SRY)
	require.NoError(t, tab.Append("A", 0))
	require.NoError(t, tab.Append("B", 12.5))

	path := Path(dir, SRY)
	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error { return WritePairs(w, tab) }))

	got, err := ReadPairsFile(path, SRY)
	require.NoError(t, err)
	assert.Equal(t, tab.Rows, got.Rows)

	// No temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "SRY.txt", filepath.Base(path))
}

func TestWriteFileAtomicFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FinalTableName)

	err := WriteFileAtomic(path, func(w io.Writer) error { return errors.New("boom") })
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummarize(t *testing.T) {
	tab := NewTable("test", XH)
	for i, v := range []float64{0.1, 0.3, math.NaN(), 0.5} {
		require.NoError(t, tab.Append(string(rune('A'+i)), v))
	}

	sums, err := Summarize(tab)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 3, sums[0].N)
	assert.InDelta(t, 0.3, sums[0].Mean, 1e-12)
	assert.InDelta(t, 0.3, sums[0].Median, 1e-12)
	assert.Equal(t, 0.1, sums[0].Min)
	assert.Equal(t, 0.5, sums[0].Max)
	assert.InDelta(t, 0.2, sums[0].SD, 1e-12)
}
