// segmm collects the sex-inference features for a set of samples, writes
// them to <output>/feature.txt, and hands that table to the classifier.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/segmm/bqexport"
	"github.com/carbocation/segmm/classify"
	"github.com/carbocation/segmm/compileinfo"
	"github.com/carbocation/segmm/config"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/genotype"
	"github.com/carbocation/segmm/pipeline"
	"github.com/carbocation/segmm/plan"
	"github.com/carbocation/segmm/reference"
	"github.com/carbocation/segmm/source"
)

func main() {
	var (
		configPath     string
		geno           genotype.Input
		manifest       string
		modality       string
		chromosome     string
		outdir         string
		sry            bool
		referencePath  string
		skipClassify   bool
		bigqueryTarget string
	)

	flag.StringVar(&configPath, "config", "", "Optional TOML file with tool paths and defaults. Flags override it.")
	flag.StringVar(&geno.VCF, "vcf", "", "VCF with X chromosome genotypes (local or gs://). Tabix indexed files are queried by region.")
	flag.StringVar(&geno.BGEN, "bgen", "", "BGEN with X chromosome genotypes. Requires -sample.")
	flag.StringVar(&geno.Sample, "sample", "", "Oxford .sample file for -bgen.")
	flag.StringVar(&geno.PED, "ped", "", "PLINK PED file with X chromosome genotypes.")
	flag.StringVar(&manifest, "input", "", "Headerless file of sample ID and BAM/CRAM path pairs.")
	flag.StringVar(&modality, "type", "", "Sequencing method: WGS, WES or TGS.")
	flag.StringVar(&chromosome, "chromosome", "", "For TGS data, the sex chromosomes covered: x, y or xy.")
	flag.StringVar(&outdir, "output", "", "Directory for the feature files and the classifier output.")
	flag.BoolVar(&sry, "sry", false, "For TGS data, also use the depth over the SRY gene.")
	flag.StringVar(&referencePath, "reference-additional", "", "Existing feature table to which new samples are added. Its header chooses the features.")
	flag.BoolVar(&skipClassify, "skip-classify", false, "Stop after writing feature.txt.")
	flag.StringVar(&bigqueryTarget, "bigquery", "", "Optional project.dataset.table to which the final features are uploaded.")

	// These default to the configuration and only override it when set
	alignmentFormat := flag.String("alignment-format", "", "BAM or CRAM. (Default from configuration: BAM)")
	referenceFASTA := flag.String("reference-fasta", "", "Reference FASTA, required for CRAM input.")
	genome := flag.String("genome", "", "Genome build of the alignments, hg19 or hg38. (Default from configuration: hg19)")
	threshold := flag.Float64("uncertain-threshold", 0, "Classifier posterior threshold for uncertain calls. (Default from configuration: 0.1)")
	threads := flag.Int("threads", 0, "Samples processed at once. (Default from configuration: 1)")
	quality := flag.Int("quality", 0, "Minimum mapping quality of counted reads. (Default from configuration: 30)")
	rescaleReference := flag.Bool("rescale-reference", false, "Also rescale SRY by XYratio for rows already in the reference table.")
	flag.Parse()

	compileinfo.PrintToStdErr()

	if outdir == "" {
		flag.PrintDefaults()
		log.Fatalln("Please pass -output")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalln(err)
	}

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
		switch f.Name {
		case "alignment-format":
			cfg.AlignmentFormat = *alignmentFormat
		case "reference-fasta":
			cfg.ReferenceFASTA = *referenceFASTA
		case "genome":
			cfg.Genome = *genome
		case "uncertain-threshold":
			cfg.UncertainThreshold = *threshold
		case "threads":
			cfg.Threads = *threads
		case "quality":
			cfg.Quality = *quality
		case "rescale-reference":
			cfg.RescaleReference = *rescaleReference
		case "bigquery":
			parts := strings.SplitN(bigqueryTarget, ".", 3)
			if len(parts) != 3 {
				log.Fatalf("-bigquery must look like project.dataset.table, got %q\n", bigqueryTarget)
			}
			cfg.BigQuery = config.BigQuery{Project: parts[0], Dataset: parts[1], Table: parts[2]}
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	geno.HardCallThreshold = cfg.HardCallThreshold
	if err := geno.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()

	var client *storage.Client
	if anyGS(geno.VCF, geno.PED, manifest, referencePath) {
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	chrom, err := plan.ParseChromosome(chromosome)
	if err != nil {
		log.Fatalln(err)
	}

	var req pipeline.Request
	if referencePath != "" {
		if ignored := referenceModeIgnored(setFlags); len(ignored) > 0 {
			log.Printf("Ignoring %s: the header of %s chooses the features\n", strings.Join(ignored, " and "), referencePath)
		}
		req, err = pipeline.NewRequest(nil, chrom, referencePath)
	} else {
		var mod plan.Modality
		mod, err = plan.ParseModality(modality)
		if err != nil {
			log.Fatalln(err)
		}

		var p plan.Plan
		p, err = plan.New(mod, chrom, sry)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("Using features %v\n", p.Features)

		req, err = pipeline.NewRequest(&p, chrom, "")
	}
	if err != nil {
		log.Fatalln(err)
	}

	var samples []source.Sample
	if manifest != "" {
		samples, err = source.ReadManifest(ctx, manifest, client)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("Read %d samples from %s\n", len(samples), manifest)
	}

	sources, err := buildSources(cfg, geno, samples != nil, outdir, client)
	if err != nil {
		log.Fatalln(err)
	}

	p := &pipeline.Pipeline{
		Outdir:        outdir,
		Sources:       sources,
		Samples:       samples,
		Merger:        reference.Merger{RescaleReference: cfg.RescaleReference},
		StorageClient: client,
	}

	out, err := p.Run(ctx, req)
	if err != nil {
		log.Fatalln(err)
	}

	if cfg.BigQuery.Enabled() {
		bq, err := bqexport.Connect(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
		if err != nil {
			log.Fatalln(err)
		}
		defer bq.Close()

		if err := bq.Export(out.Table); err != nil {
			log.Fatalln(err)
		}
	}

	if skipClassify {
		log.Printf("Skipping classification; features are in %s\n", out.Path)
		return
	}

	handoff := classify.Handoff{FeaturePath: out.Path, Threshold: cfg.UncertainThreshold}
	if err := classify.Run(ctx, source.ExecRunner{}, cfg.Rscript, cfg.ClassifierScript, handoff, outdir); err != nil {
		log.Fatalln(err)
	}
}

// buildSources wires a source for every feature the inputs can produce. The
// pipeline rejects a plan that needs a feature missing from this map.
func buildSources(cfg config.Config, geno genotype.Input, haveAlignments bool, outdir string, client *storage.Client) (map[feature.Name]source.Source, error) {
	out := make(map[feature.Name]source.Source)

	if !geno.Empty() {
		out[feature.XH] = &source.Heterozygosity{
			Open: func(ctx context.Context) (genotype.Reader, error) {
				return geno.Open(ctx, client)
			},
			Workers: cfg.Threads,
		}
	}

	if !haveAlignments {
		return out, nil
	}

	alignment, err := cfg.Alignment()
	if err != nil {
		return nil, err
	}
	if err := alignment.Validate(); err != nil {
		return nil, err
	}

	runner := source.ExecRunner{}
	counter := &source.ReadCounter{
		Outdir:       outdir,
		Samtools:     cfg.Samtools,
		Alignment:    alignment,
		FlagstatLine: cfg.FlagstatLine,
		Threads:      cfg.Threads,
		Runner:       runner,
	}

	out[feature.Xmap] = source.XMappingRate(counter)
	out[feature.Ymap] = source.YMappingRate(counter)
	out[feature.SRY] = &source.SRYDepth{
		Outdir:          outdir,
		Mosdepth:        cfg.Mosdepth,
		Genome:          cfg.Genome,
		Alignment:       alignment,
		MosdepthThreads: cfg.MosdepthThreads,
		Workers:         cfg.Threads,
		Runner:          runner,
	}

	return out, nil
}

func anyGS(paths ...string) bool {
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			return true
		}
	}

	return false
}

// referenceModeIgnored lists the set flags that pick features, which have no
// effect when an existing reference table supplies them.
func referenceModeIgnored(set map[string]bool) []string {
	var out []string
	for _, name := range []string{"type", "sry"} {
		if set[name] {
			out = append(out, "-"+name)
		}
	}
	return out
}
