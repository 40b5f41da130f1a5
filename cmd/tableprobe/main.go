// Command tableprobe profiles a CSV or XLSX input: raw and canonical column
// names, inferred types and missing counts. With --json it also prints a
// draft dashboard source entry and numeric rules to paste into a config.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	flag "github.com/spf13/pflag"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/probe"
)

func main() {
	var (
		flagFile  = flag.StringP("file", "f", "", "CSV or XLSX file to profile")
		flagName  = flag.String("name", "", "logical source name; defaults to the file name")
		flagComma = flag.String("comma", ",", "CSV field delimiter (single character)")
		flagSheet = flag.String("sheet", "", "XLSX sheet; defaults to the first")
		flagLimit = flag.Int("limit", 0, "rows to profile; 0 profiles all")
		flagRole  = flag.String("role", config.RoleDimension, "role of the draft source entry: fact|dimension")
		flagJSON  = flag.Bool("json", false, "print the profile and a draft config as JSON instead of CSV lines")
	)
	flag.Parse()

	if *flagFile == "" {
		fmt.Fprintln(os.Stderr, "missing --file")
		flag.Usage()
		os.Exit(2)
	}

	comma := ','
	if *flagComma != "" {
		if r, _ := utf8.DecodeRuneInString(*flagComma); r != utf8.RuneError {
			comma = r
		}
	}
	name := *flagName
	if name == "" {
		base := filepath.Base(*flagFile)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	p, err := probe.Probe(ctx, *flagFile, probe.Options{
		Name:  name,
		Load:  file.Options{Comma: comma, Sheet: *flagSheet},
		Limit: *flagLimit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}

	var out []byte
	if *flagJSON {
		out, err = probe.JSON(p, *flagRole)
	} else {
		out, err = probe.CSV(p)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}
