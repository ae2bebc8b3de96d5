// featurejoin merges sorted two-column feature files on sample ID and prints
// the samples present in all of them as a feature table.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/carbocation/segmm/compileinfo"
	"github.com/carbocation/segmm/feature"
	"github.com/carbocation/segmm/join"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	defer STDOUT.Flush()

	paths := make(map[feature.Name]*string)
	for _, name := range feature.Canonical {
		if name == feature.XYratio {
			continue
		}
		paths[name] = flag.String(strings.ToLower(string(name)), "", "Sorted two-column (sample, "+string(name)+") file.")
	}
	xyratio := flag.String("xyratio", "", "Sorted two-column (sample, XYratio) file. Cannot be combined with -derive-xyratio.")
	derive := flag.Bool("derive-xyratio", false, "Add XYratio = Xmap / Ymap. Requires -xmap and -ymap.")
	flag.Parse()

	compileinfo.PrintToStdErr()

	paths[feature.XYratio] = xyratio

	tables := make([]*feature.Table, 0, len(paths))
	for _, name := range feature.Canonical {
		path := *paths[name]
		if path == "" {
			continue
		}

		t, err := feature.ReadPairsFile(path, name)
		if err != nil {
			log.Fatalln(err)
		}
		tables = append(tables, t)
	}

	if len(tables) == 0 {
		flag.PrintDefaults()
		log.Fatalln("Please pass at least one feature file")
	}

	res, err := join.Join(tables, join.Options{DeriveXYratio: *derive})
	if err != nil {
		log.Fatalln(err)
	}

	if len(res.Dropped) > 0 {
		log.Printf("Dropped %d sample(s) not present in every file: %s\n", len(res.Dropped), strings.Join(res.Dropped, ", "))
	}

	if err := feature.WriteWide(STDOUT, res.Table); err != nil {
		log.Fatalln(err)
	}
}
