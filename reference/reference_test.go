package reference

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	cases := []struct {
		Fields   []string
		Expected []feature.Name
		Err      bool
	}{
		{[]string{"sampleid", "XH", "SRY"}, []feature.Name{feature.XH, feature.SRY}, false},
		{[]string{"sampleid", "SRY", "XYratio", "Xmap"}, []feature.Name{feature.SRY, feature.XYratio, feature.Xmap}, false},
		{[]string{"sampleid", "foo"}, nil, true},
		{[]string{"sampleid"}, nil, true},
		{[]string{"sampleid", "XH"}, nil, true},
		{[]string{"sample", "XH", "SRY"}, nil, true},
		{[]string{"sampleid", "XH", "XH"}, nil, true},
		{nil, nil, true},
	}

	for _, cs := range cases {
		got, err := ParseHeader(cs.Fields)
		if cs.Err {
			require.Error(t, err, "%v", cs.Fields)
			assert.True(t, errors.Is(err, segmm.ErrConfiguration), "%v", cs.Fields)
			continue
		}
		require.NoError(t, err, "%v", cs.Fields)
		assert.Equal(t, cs.Expected, got)
	}
}

func TestParseHeaderNamesColumn(t *testing.T) {
	_, err := ParseHeader([]string{"sampleid", "foo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foo")
}

func TestRequired(t *testing.T) {
	assert.Equal(t,
		[]feature.Name{feature.XH, feature.Xmap, feature.Ymap, feature.SRY},
		Required([]feature.Name{feature.SRY, feature.XYratio, feature.XH}))

	assert.Equal(t,
		[]feature.Name{feature.Xmap, feature.Ymap},
		Required([]feature.Name{feature.Ymap, feature.XYratio, feature.Xmap}))

	assert.Equal(t,
		[]feature.Name{feature.XH, feature.SRY},
		Required([]feature.Name{feature.SRY, feature.XH}))
}

func TestRead(t *testing.T) {
	for _, delim := range []string{"\t", ",", "  "} {
		input := strings.Join([]string{
			strings.Join([]string{"sampleid", "SRY", "XH"}, delim),
			strings.Join([]string{"R2", "3", "0.1"}, delim),
			strings.Join([]string{"R1", "NA", "0.2"}, delim),
		}, "\n") + "\n"

		tab, err := Read(strings.NewReader(input), "ref.txt")
		require.NoError(t, err, "delimiter %q", delim)

		assert.Equal(t, []feature.Name{feature.SRY, feature.XH}, tab.Columns)
		assert.Equal(t, []string{"R1", "R2"}, tab.SampleIDs())
		assert.True(t, math.IsNaN(tab.Rows[0].Values[0]))
		assert.Equal(t, 0.2, tab.Rows[0].Values[1])
	}
}

func TestReadRejects(t *testing.T) {
	cases := []string{
		"",
		"sampleid\tfoo\n",
		"sampleid\tXH\tSRY\nR1\t0.1\n",
		"sampleid\tXH\tSRY\nR1\t0.1\tabc\n",
		"sampleid\tXH\tSRY\nR1\t0.1\t1\nR1\t0.2\t2\n",
	}

	for _, input := range cases {
		_, err := Read(strings.NewReader(input), "ref.txt")
		require.Error(t, err, "%q", input)
		assert.True(t, errors.Is(err, segmm.ErrConfiguration), "%q", input)
	}
}

func pairs(t *testing.T, name feature.Name, kv ...interface{}) *feature.Table {
	tab := feature.NewTable(string(name), name)
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, tab.Append(kv[i].(string), kv[i+1].(float64)))
	}

	return tab
}

func TestMergeRescale(t *testing.T) {
	ref := feature.NewTable("ref", feature.SRY, feature.XYratio)
	require.NoError(t, ref.Append("R1", 4, 2))

	backfill := []*feature.Table{
		pairs(t, feature.SRY, "N1", 10.0, "R1", 99.0),
		pairs(t, feature.Xmap, "N1", 0.4, "R1", 0.4),
		pairs(t, feature.Ymap, "N1", 0.2, "R1", 0.2),
	}

	res, err := Merger{}.Merge(ref, backfill)
	require.NoError(t, err)

	tab := res.Table
	assert.Equal(t, []feature.Name{feature.XYratio, feature.SRY}, tab.Columns)
	require.Equal(t, []string{"N1", "R1"}, tab.SampleIDs())

	// New row: XYratio = 0.4 / 0.2, SRY = 10 / 2
	assert.InDelta(t, 2.0, tab.Rows[0].Values[0], 1e-12)
	assert.InDelta(t, 5.0, tab.Rows[0].Values[1], 1e-12)

	// Reference values win and are not rescaled
	assert.Equal(t, []float64{2, 4}, tab.Rows[1].Values)

	assert.Equal(t, []string{"N1"}, res.Added)
	assert.Equal(t, []string{"R1"}, res.Existing)

	// The reference itself is untouched
	assert.Equal(t, []float64{4, 2}, ref.Rows[0].Values)
}

func TestMergeRescaleReference(t *testing.T) {
	ref := feature.NewTable("ref", feature.SRY, feature.XYratio)
	require.NoError(t, ref.Append("R1", 4, 2))
	require.NoError(t, ref.Append("R2", 4, math.NaN()))

	res, err := Merger{RescaleReference: true}.Merge(ref, nil)
	require.NoError(t, err)

	assert.Equal(t, 2.0, res.Table.Rows[0].Values[1])
	assert.Equal(t, 4.0, res.Table.Rows[1].Values[1])
}

func TestMergeZeroXYratio(t *testing.T) {
	ref := feature.NewTable("ref", feature.SRY, feature.XYratio)
	require.NoError(t, ref.Append("R1", 4, 0))

	_, err := Merger{RescaleReference: true}.Merge(ref, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, segmm.ErrComputation))
	assert.Contains(t, err.Error(), "R1")
}

func TestMergeWithoutRescale(t *testing.T) {
	ref := feature.NewTable("ref", feature.XH, feature.SRY)
	require.NoError(t, ref.Append("R1", 0.1, 4))

	res, err := Merger{}.Merge(ref, []*feature.Table{
		pairs(t, feature.XH, "N1", 0.3, "N2", 0.4),
		pairs(t, feature.SRY, "N1", 10.0),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"N1", "R1"}, res.Table.SampleIDs())
	assert.Equal(t, []float64{0.3, 10}, res.Table.Rows[0].Values)
	assert.Equal(t, []string{"N2"}, res.Dropped)
}
