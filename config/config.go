// Package config gathers the tool paths and run parameters. Values come from
// defaults, then SEGMM_* environment variables, then an optional TOML file;
// command line flags are applied last by the binaries.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/carbocation/segmm"
	"github.com/carbocation/segmm/source"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. SEGMM_THREADS.
const EnvPrefix = "segmm"

type Config struct {
	Samtools         string `toml:"samtools" envconfig:"SAMTOOLS" default:"samtools"`
	Mosdepth         string `toml:"mosdepth" envconfig:"MOSDEPTH" default:"mosdepth"`
	Rscript          string `toml:"rscript" envconfig:"RSCRIPT" default:"Rscript"`
	ClassifierScript string `toml:"classifier_script" envconfig:"CLASSIFIER_SCRIPT" default:"seGMM.r"`

	Threads         int    `toml:"threads" envconfig:"THREADS" default:"1"`
	MosdepthThreads int    `toml:"mosdepth_threads" envconfig:"MOSDEPTH_THREADS" default:"4"`
	Quality         int    `toml:"quality" envconfig:"QUALITY" default:"30"`
	Genome          string `toml:"genome" envconfig:"GENOME" default:"hg19"`
	AlignmentFormat string `toml:"alignment_format" envconfig:"ALIGNMENT_FORMAT" default:"BAM"`
	ReferenceFASTA  string `toml:"reference_fasta" envconfig:"REFERENCE_FASTA"`
	FlagstatLine    string `toml:"flagstat_line" envconfig:"FLAGSTAT_LINE" default:"properly paired"`

	// UncertainThreshold is handed to the classifier, which flags samples
	// whose posterior falls within it.
	UncertainThreshold float64 `toml:"uncertain_threshold" envconfig:"UNCERTAIN_THRESHOLD" default:"0.1"`

	// HardCallThreshold is the minimum genotype probability for a BGEN call.
	HardCallThreshold float64 `toml:"hard_call_threshold" envconfig:"HARD_CALL_THRESHOLD" default:"0.9"`

	RescaleReference bool `toml:"rescale_reference" envconfig:"RESCALE_REFERENCE"`

	BigQuery BigQuery `toml:"bigquery" envconfig:"BIGQUERY"`
}

// BigQuery names the optional export destination. Export is off unless Table
// is set.
type BigQuery struct {
	Project string `toml:"project" envconfig:"PROJECT"`
	Dataset string `toml:"dataset" envconfig:"DATASET"`
	Table   string `toml:"table" envconfig:"TABLE"`
}

func (b BigQuery) Enabled() bool {
	return b.Table != ""
}

// Load builds a Config from defaults and the environment, then overlays the
// TOML file at path if path is non-empty.
func Load(path string) (Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: environment: %v", segmm.ErrConfiguration, err)
	}

	if path != "" {
		if _, err := toml.DecodeFile(segmm.ExpandHome(path), &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", segmm.ErrConfiguration, path, err)
		}
	}

	cfg.ReferenceFASTA = segmm.ExpandHome(cfg.ReferenceFASTA)
	cfg.ClassifierScript = segmm.ExpandHome(cfg.ClassifierScript)

	return cfg, nil
}

// Validate checks the values that do not depend on which features run.
func (c Config) Validate() error {
	known := false
	for _, g := range source.Genomes {
		if c.Genome == g {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w: genome %q is not one of %v", segmm.ErrConfiguration, c.Genome, source.Genomes)
	}

	format, err := source.ParseFormat(c.AlignmentFormat)
	if err != nil {
		return err
	}
	if format == source.CRAM && c.ReferenceFASTA == "" {
		return fmt.Errorf("%w: CRAM input requires a reference FASTA", segmm.ErrConfiguration)
	}

	if c.UncertainThreshold < 0 || c.UncertainThreshold > 1 {
		return fmt.Errorf("%w: uncertain threshold %v is outside [0,1]", segmm.ErrConfiguration, c.UncertainThreshold)
	}
	if c.HardCallThreshold < 0 || c.HardCallThreshold > 1 {
		return fmt.Errorf("%w: hard-call threshold %v is outside [0,1]", segmm.ErrConfiguration, c.HardCallThreshold)
	}
	if c.Threads < 1 {
		return fmt.Errorf("%w: threads must be at least 1, got %d", segmm.ErrConfiguration, c.Threads)
	}
	if c.Quality < 0 {
		return fmt.Errorf("%w: mapping quality must not be negative, got %d", segmm.ErrConfiguration, c.Quality)
	}
	if c.BigQuery.Enabled() && (c.BigQuery.Project == "" || c.BigQuery.Dataset == "") {
		return fmt.Errorf("%w: BigQuery export needs a project and dataset as well as a table", segmm.ErrConfiguration)
	}

	return nil
}

// Alignment describes how the external tools read alignment files.
func (c Config) Alignment() (source.Alignment, error) {
	format, err := source.ParseFormat(c.AlignmentFormat)
	if err != nil {
		return source.Alignment{}, err
	}

	return source.Alignment{Format: format, FASTA: c.ReferenceFASTA, Quality: c.Quality}, nil
}
