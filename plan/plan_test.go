package plan

import (
	"errors"
	"testing"

	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	all := []feature.Name{feature.XH, feature.Xmap, feature.Ymap, feature.XYratio, feature.SRY}

	for _, v := range []struct {
		Modality   Modality
		Chromosome Chromosome
		SRY        bool
		Features   []feature.Name
		Derive     bool
	}{
		{WGS, NoChromosome, false, all, true},
		{WES, ChromosomeY, false, all, true},
		{WGS, ChromosomeX, true, all, true},
		{TGS, ChromosomeX, false, []feature.Name{feature.XH, feature.Xmap}, false},
		{TGS, ChromosomeY, true, []feature.Name{feature.Ymap, feature.SRY}, false},
		{TGS, ChromosomeXY, false, []feature.Name{feature.XH, feature.Xmap, feature.Ymap, feature.XYratio}, true},
		{TGS, ChromosomeXY, true, all, true},
	} {
		p, err := New(v.Modality, v.Chromosome, v.SRY)
		require.NoError(t, err, "%+v", v)
		assert.Equal(t, v.Features, p.Features, "%+v", v)
		assert.Equal(t, v.Derive, p.DeriveXYratio, "%+v", v)
		assert.GreaterOrEqual(t, len(p.Features), MinFeatures)
	}
}

func TestNewRejects(t *testing.T) {
	for _, v := range []struct {
		Modality   Modality
		Chromosome Chromosome
		SRY        bool
	}{
		{TGS, NoChromosome, true},
		{TGS, ChromosomeX, true},
		{TGS, ChromosomeY, false},
		{TGS, Chromosome("z"), false},
		{Modality(""), ChromosomeXY, true},
	} {
		_, err := New(v.Modality, v.Chromosome, v.SRY)
		assert.True(t, errors.Is(err, segmm.ErrConfiguration), "%+v", v)
	}
}

func TestFetched(t *testing.T) {
	p, err := New(WGS, NoChromosome, false)
	require.NoError(t, err)
	assert.Equal(t, []feature.Name{feature.XH, feature.Xmap, feature.Ymap, feature.SRY}, p.Fetched())

	p, err = New(TGS, ChromosomeY, true)
	require.NoError(t, err)
	assert.Equal(t, []feature.Name{feature.Ymap, feature.SRY}, p.Fetched())

	// An XYratio that is supplied rather than derived is fetched as-is
	supplied := Plan{Features: []feature.Name{feature.XYratio, feature.SRY}}
	assert.Equal(t, []feature.Name{feature.XYratio, feature.SRY}, supplied.Fetched())
}

func TestParse(t *testing.T) {
	m, err := ParseModality("wgs")
	require.NoError(t, err)
	assert.Equal(t, WGS, m)

	_, err = ParseModality("RNA")
	assert.True(t, errors.Is(err, segmm.ErrConfiguration))

	c, err := ParseChromosome("XY")
	require.NoError(t, err)
	assert.Equal(t, ChromosomeXY, c)

	c, err = ParseChromosome("")
	require.NoError(t, err)
	assert.Equal(t, NoChromosome, c)

	_, err = ParseChromosome("w")
	assert.Error(t, err)
}
