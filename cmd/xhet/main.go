// xhet prints the X chromosome heterozygosity of every sample in a genotype
// file as tab-delimited sample, XH lines sorted by sample.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/segmm/compileinfo"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/genotype"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	defer STDOUT.Flush()

	var in genotype.Input
	var workers int

	flag.StringVar(&in.VCF, "vcf", "", "VCF with X chromosome genotypes (local or gs://).")
	flag.StringVar(&in.BGEN, "bgen", "", "BGEN with X chromosome genotypes.")
	flag.StringVar(&in.Sample, "sample", "", "Oxford .sample file for -bgen.")
	flag.StringVar(&in.PED, "ped", "", "PLINK PED file with X chromosome genotypes.")
	flag.Float64Var(&in.HardCallThreshold, "hardcall", genotype.DefaultHardCallThreshold, "Minimum probability for a BGEN genotype to be called.")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Samples computed at once.")
	flag.Parse()

	compileinfo.PrintToStdErr()

	if in.Empty() {
		flag.PrintDefaults()
		log.Fatalln("Please pass one of -vcf, -bgen or -ped")
	}

	ctx := context.Background()

	var client *storage.Client
	if strings.HasPrefix(in.VCF, "gs://") || strings.HasPrefix(in.PED, "gs://") {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	r, err := in.Open(ctx, client)
	if err != nil {
		log.Fatalln(err)
	}
	defer r.Close()

	t, err := genotype.Table(ctx, r, nil, workers)
	if err != nil {
		log.Fatalln(err)
	}

	if err := feature.WritePairs(STDOUT, t); err != nil {
		log.Fatalln(err)
	}
	log.Printf("Computed heterozygosity for %d samples\n", len(t.Rows))
}
