package genotype

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/bgen"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alleles(s string) []Allele {
	out := make([]Allele, 0)
	for _, a := range strings.Fields(s) {
		out = append(out, Allele(a))
	}

	return out
}

func TestHeterozygosity(t *testing.T) {
	for _, v := range []struct {
		Name     string
		Alleles  string
		Expected float64
	}{
		{"all het", "A C G T", 1.0},
		{"all hom", "A A G G", 0.0},
		{"half", "A C G G", 0.5},
		{"missing ignored", "A C 0 0 G G 0 T", 0.5},
		{"all missing", "0 0 0 A C 0", 0.0},
		{"no markers", "", 0.0},
		{"one of three", "A G C C T T", 1.0 / 3.0},
	} {
		ratio, err := Heterozygosity(Record{SampleID: "S", Alleles: alleles(v.Alleles)})
		require.NoError(t, err, v.Name)
		assert.InDelta(t, v.Expected, ratio, 1e-12, v.Name)
		assert.GreaterOrEqual(t, ratio, 0.0)
		assert.LessOrEqual(t, ratio, 1.0)
	}
}

func TestCount(t *testing.T) {
	c, err := Count(Record{SampleID: "S", Alleles: alleles("A C 0 0 G G 0 T")})
	require.NoError(t, err)
	assert.Equal(t, Counts{Heterozygous: 1, Homozygous: 1, Missing: 2}, c)
	assert.Equal(t, 2, c.Called())
}

func TestHeterozygosityOddAlleles(t *testing.T) {
	_, err := Heterozygosity(Record{SampleID: "S9", Alleles: alleles("A C G")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, segmm.ErrComputation))
	assert.Contains(t, err.Error(), "S9")
}

func TestTable(t *testing.T) {
	r := FromRecords(
		Record{SampleID: "S3", Alleles: alleles("A C")},
		Record{SampleID: "S1", Alleles: alleles("0 0")},
		Record{SampleID: "S2", Alleles: alleles("A A A C")},
	)

	tab, err := Table(context.Background(), r, nil, 2)
	require.NoError(t, err)

	assert.Equal(t, []feature.Name{feature.XH}, tab.Columns)
	assert.Equal(t, []string{"S1", "S2", "S3"}, tab.SampleIDs())
	assert.Equal(t, []float64{0.0}, tab.Rows[0].Values)
	assert.Equal(t, []float64{0.5}, tab.Rows[1].Values)
	assert.Equal(t, []float64{1.0}, tab.Rows[2].Values)
}

func TestTableKeep(t *testing.T) {
	r := FromRecords(
		Record{SampleID: "S1", Alleles: alleles("A C")},
		Record{SampleID: "S2", Alleles: alleles("A C G")},
	)

	// S2 is malformed but not requested
	tab, err := Table(context.Background(), r, map[string]bool{"S1": true}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, tab.SampleIDs())
}

func TestTableDuplicateSample(t *testing.T) {
	r := FromRecords(
		Record{SampleID: "S1", Alleles: alleles("A C")},
		Record{SampleID: "S1", Alleles: alleles("A A")},
	)

	_, err := Table(context.Background(), r, nil, 1)
	assert.Error(t, err)
}

func TestPED(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plink.X.ped.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = io.WriteString(gz, "S1 S1 0 0 1 -9 A A C T 0 0\nS2 S2 0 0 2 -9 A G C C G G\n")
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	ped, err := OpenPED(context.Background(), path, nil)
	require.NoError(t, err)
	defer ped.Close()

	tab, err := Table(context.Background(), ped, nil, 1)
	require.NoError(t, err)

	require.Equal(t, []string{"S1", "S2"}, tab.SampleIDs())
	assert.InDelta(t, 0.5, tab.Rows[0].Values[0], 1e-12)
	assert.InDelta(t, 1.0/3.0, tab.Rows[1].Values[0], 1e-12)
}

func TestPEDShortLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ped")
	require.NoError(t, os.WriteFile(path, []byte("S1 S1 0 0\n"), 0644))

	ped, err := OpenPED(context.Background(), path, nil)
	require.NoError(t, err)
	defer ped.Close()

	_, err = ped.Read()
	assert.True(t, errors.Is(err, segmm.ErrComputation))
}

const testVCF = `##fileformat=VCFv4.2
##contig=<ID=X,length=156040895>
##contig=<ID=1,length=249250621>
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
1	100	rs1	A	G	.	PASS	.	GT	0/1	0/1
X	200	rs2	C	T	.	PASS	.	GT	0/1	1/1
X	300	rs3	G	A	.	PASS	.	GT	./.	0/0
X	400	rs4	T	C	.	PASS	.	GT	1	0/1
`

func TestVCF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vcf")
	require.NoError(t, os.WriteFile(path, []byte(testVCF), 0644))

	r, err := OpenVCF(context.Background(), path, nil)
	require.NoError(t, err)
	defer r.Close()

	tab, err := Table(context.Background(), r, nil, 2)
	require.NoError(t, err)

	require.Equal(t, []string{"S1", "S2"}, tab.SampleIDs())
	// S1: het, missing, haploid => 1 of 2 called
	assert.InDelta(t, 0.5, tab.Rows[0].Values[0], 1e-12)
	// S2: hom, hom, het => 1 of 3
	assert.InDelta(t, 1.0/3.0, tab.Rows[1].Values[0], 1e-12)
}

func TestHardCall(t *testing.T) {
	for _, v := range []struct {
		Probs  []float64
		Phased bool
		A, B   Allele
	}{
		{[]float64{0.95, 0.05, 0}, false, "1", "1"},
		{[]float64{0.02, 0.97, 0.01}, false, "1", "2"},
		{[]float64{0, 0.01, 0.99}, false, "2", "2"},
		{[]float64{0.5, 0.4, 0.1}, false, MissingAllele, MissingAllele},
		{[]float64{1, 0, 0, 1}, true, "1", "2"},
		{[]float64{0, 1}, false, "2", "2"},
	} {
		a, b := HardCall(&bgen.SampleProbability{Ploidy: 2, Probabilities: v.Probs}, v.Phased, DefaultHardCallThreshold)
		assert.Equal(t, v.A, a, "%+v", v)
		assert.Equal(t, v.B, b, "%+v", v)
	}

	a, b := HardCall(&bgen.SampleProbability{Missing: true}, false, DefaultHardCallThreshold)
	assert.Equal(t, MissingAllele, a)
	assert.Equal(t, MissingAllele, b)
}

func TestReadOxfordSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sample")
	require.NoError(t, os.WriteFile(path, []byte("ID_1 ID_2 missing sex\n0 0 0 D\nS1 S1 0 1\nS2 S2 0 2\n"), 0644))

	ids, err := ReadOxfordSamples(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, ids)
}

func TestInputValidate(t *testing.T) {
	assert.True(t, Input{}.Empty())
	assert.NoError(t, Input{PED: "x.ped"}.Validate())

	err := Input{VCF: "x.vcf", PED: "x.ped"}.Validate()
	assert.True(t, errors.Is(err, segmm.ErrConfiguration))

	err = Input{BGEN: "x.bgen"}.Validate()
	assert.True(t, errors.Is(err, segmm.ErrConfiguration))

	_, err = Input{}.Open(context.Background(), nil)
	assert.True(t, errors.Is(err, segmm.ErrConfiguration))
}

func TestAddBGENVariant(t *testing.T) {
	p := newPivot([]string{"S2", "S1"})
	hom := bgen.SampleProbability{Ploidy: 2, Probabilities: []float64{0.99, 0.01, 0}}
	het := bgen.SampleProbability{Ploidy: 2, Probabilities: []float64{0, 0.98, 0.02}}

	cases := []struct {
		Variant bgen.Variant
		Used    bool
	}{
		{bgen.Variant{RSID: "x1", Chromosome: "X", NAlleles: 2, SampleProbabilities: []bgen.SampleProbability{het, hom}}, true},
		{bgen.Variant{RSID: "x2", Chromosome: "chrX", NAlleles: 2, SampleProbabilities: []bgen.SampleProbability{hom, hom}}, true},
		{bgen.Variant{RSID: "a1", Chromosome: "01", NAlleles: 2, SampleProbabilities: []bgen.SampleProbability{het, het}}, false},
		{bgen.Variant{RSID: "x3", Chromosome: "X", NAlleles: 3, SampleProbabilities: []bgen.SampleProbability{het, het}}, false},
	}

	for _, cs := range cases {
		v := cs.Variant
		used, err := p.addBGENVariant(&v, DefaultHardCallThreshold)
		require.NoError(t, err, v.RSID)
		assert.Equal(t, cs.Used, used, v.RSID)
	}

	tab, err := Table(context.Background(), FromRecords(p.records()...), nil, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"S1", "S2"}, tab.SampleIDs())
	assert.Equal(t, []float64{0}, tab.Rows[0].Values)
	assert.Equal(t, []float64{0.5}, tab.Rows[1].Values)

	_, err = p.addBGENVariant(&bgen.Variant{RSID: "x4", Chromosome: "X", NAlleles: 2, SampleProbabilities: []bgen.SampleProbability{het}}, DefaultHardCallThreshold)
	assert.True(t, errors.Is(err, segmm.ErrComputation))
}
