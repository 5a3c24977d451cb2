package main

import (
	"fmt"
	"os"

	"github.com/anrid/rangeindex/pkg/firehol"
	"github.com/anrid/rangeindex/pkg/ipcheck"
	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	inputFileOrURL := pflag.StringP("input-file", "i", "", "Path or URL to an input file containing IP addresses to check. This can be an uncompressed text file in any format. The program finds all IPs addresses on each line and tests them against all ranges.")
	ipRangesFileOrURL := pflag.String("ip-ranges", "https://raw.githubusercontent.com/jhassine/server-ip-addresses/master/data/datacenters.csv", "Path or URL to a CSV file with IP ranges to test against.")
	importFireHOLFrom := pflag.String("import-firehol", "", "Merge all IP sets found in a local checkout of https://github.com/firehol/blocklist-ipsets into one file named `firehol.ips` (see --firehol-out)")
	fireHOLOut := pflag.String("firehol-out", ".", "Dir to write the merged FireHOL file to")
	fireHOLFile := pflag.StringP("firehol-file", "f", "", "Also check against a merged FireHOL file created with --import-firehol")
	verbose := pflag.Bool("verbose", false, "Verbose output, helps when troubleshooting.")
	showMore := pflag.Bool("more-info", true, "Show additional blocklist info for each IP match.")
	toCSVFile := pflag.String("to-csv-file", "", "Export all matched IPs to the given CSV file (e.g. ./matches.csv)")

	pflag.Parse()

	lg, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	if *importFireHOLFrom != "" {
		out, err := firehol.ImportDir(lg, *importFireHOLFrom, *fireHOLOut)
		if err != nil {
			lg.Fatal("failed to import FireHOL IP sets", zap.Error(err))
		}
		fmt.Printf("Wrote %s\n", out)
		os.Exit(0)
	}

	if *inputFileOrURL == "" || *ipRangesFileOrURL == "" {
		pflag.Usage()
		os.Exit(-1)
	}

	c := ipcheck.NewChecker(lg)

	if _, err := c.LoadRangesCSV(*ipRangesFileOrURL); err != nil {
		lg.Fatal("failed to load IP ranges", zap.Error(err))
	}

	// Check against FireHOL data imported from here: https://github.com/firehol/blocklist-ipsets
	if *fireHOLFile != "" {
		if _, err := c.LoadFireHOL(*fireHOLFile, *showMore); err != nil {
			lg.Fatal("failed to load FireHOL data", zap.Error(err))
		}
	}

	var matches []ipcheck.Match
	sourceColor := color.New(color.FgRed, color.Bold)

	sum, err := c.CheckFileOrURL(*inputFileOrURL, func(m ipcheck.Match) error {
		fmt.Printf("%s  <==  %s | %s - %s\n", m.Line, sourceColor.Sprint(m.Source), m.RangeMin, m.RangeMax)
		matches = append(matches, m)
		return nil
	})
	if err != nil {
		lg.Fatal("failed to check input", zap.Error(err))
	}

	fmt.Printf("\n%s\n", sum)

	if *toCSVFile != "" {
		if err := exportCSV(*toCSVFile, matches); err != nil {
			lg.Fatal("failed to export matches", zap.Error(err))
		}
		lg.Info("exported matches", zap.String("file", *toCSVFile), zap.Int("matches", len(matches)))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func exportCSV(file string, matches []ipcheck.Match) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ipcheck.WriteMatchesCSV(f, matches); err != nil {
		return err
	}
	return f.Close()
}
