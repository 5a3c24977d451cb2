// Package firehol reads IP sets from https://github.com/firehol/blocklist-ipsets
// and indexes them into an interval tree.
package firehol

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anrid/rangeindex/pkg/interval"
	"github.com/anrid/rangeindex/pkg/iputil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MergedFileName is the file ImportDir writes into its output dir.
const MergedFileName = "firehol.ips"

// Country sets are huge and say nothing about abuse.
var excluded = []string{
	"ipdeny_country",
	"ipip_country",
	"ip2location_country",
	"geolite2_country",
}

type IPSet struct {
	Name          string
	Maintainer    string
	MaintainerURL string
	CIDRs         []string
	IPs           []string
}

// Source is the label stored with every range of the set.
func (s *IPSet) Source() string {
	return fmt.Sprintf("%s | %s | %s", s.Name, s.Maintainer, s.MaintainerURL)
}

// Index inserts every CIDR and IP of the set into the tree, labelled with
// label. Single IPs become point intervals.
func (s *IPSet) Index(tree *interval.Tree[string], label string) (int, error) {
	var n int
	for _, entries := range [][]string{s.CIDRs, s.IPs} {
		for _, e := range entries {
			if err := insertRange(tree, e, label); err != nil {
				return n, errors.Wrapf(err, "could not index IP set %s", s.Name)
			}
			n++
		}
	}
	return n, nil
}

// ParseIPSet reads a .ipset or .netset file.
func ParseIPSet(r io.Reader) (*IPSet, error) {
	ips := new(IPSet)
	scanner := bufio.NewScanner(r)
	var cc int

	for scanner.Scan() {
		l := strings.TrimSpace(scanner.Text())

		if l == "#" {
			// Single comment.
			cc++
			continue
		}

		if len(l) < 2 {
			continue
		}

		if l[0:2] == "# " {
			if cc == 1 && ips.Name == "" {
				// Name of IP set.
				ips.Name = l[2:]
			} else if cc == 4 {
				if strings.HasPrefix(l, "# Maintainer URL") {
					ips.MaintainerURL = headerValue(l)
				} else if strings.HasPrefix(l, "# Maintainer") {
					ips.Maintainer = headerValue(l)
				}
			}
			continue
		}

		if l[0] == '#' || len(l) < 7 {
			continue
		}

		// Found IP or CIDR.
		if strings.Contains(l, "/") {
			ips.CIDRs = append(ips.CIDRs, l)
		} else {
			ips.IPs = append(ips.IPs, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read IP set")
	}

	return ips, nil
}

// LoadIPSet reads an IP set from file. The file name is used as the set
// name if the header has none.
func LoadIPSet(file string) (*IPSet, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load IPSet from file: %s", file)
	}
	defer f.Close()

	ips, err := ParseIPSet(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load IPSet from file: %s", file)
	}
	if ips.Name == "" {
		ips.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	return ips, nil
}

// FindIPSets returns every .ipset and .netset file below dir.
func FindIPSets(dir string) (files []string, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if strings.HasSuffix(info.Name(), ".netset") || strings.HasSuffix(info.Name(), ".ipset") {
				files = append(files, path)
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not walk dir: %s", dir)
	}

	return files, nil
}

// ImportDir merges every IP set found below dir, except country sets, into
// one file named MergedFileName in outDir and returns its path.
func ImportDir(lg *zap.Logger, dir, outDir string) (string, error) {
	if lg == nil {
		lg = zap.NewNop()
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create dir %s", outDir)
	}

	files, err := FindIPSets(dir)
	if err != nil {
		return "", err
	}
	lg.Info("found IP sets", zap.String("dir", dir), zap.Int("count", len(files)))

	outFile := filepath.Join(outDir, MergedFileName)
	of, err := os.Create(outFile)
	if err != nil {
		return "", errors.Wrapf(err, "could not create output file: %s", outFile)
	}
	defer of.Close()

	w := bufio.NewWriter(of)

SKIP:
	for _, f := range files {
		for _, ex := range excluded {
			if strings.Contains(f, ex) {
				continue SKIP
			}
		}

		ips, err := LoadIPSet(f)
		if err != nil {
			return "", err
		}

		lg.Debug("loaded IP set",
			zap.String("name", ips.Name),
			zap.Int("cidrs", len(ips.CIDRs)),
			zap.Int("ips", len(ips.IPs)),
		)

		if err := WriteMerged(w, ips); err != nil {
			return "", errors.Wrapf(err, "could not write output file: %s", outFile)
		}
	}

	if err := w.Flush(); err != nil {
		return "", errors.Wrapf(err, "could not write output file: %s", outFile)
	}

	return outFile, nil
}

// WriteMerged appends one IP set to a merged file. Empty sets are skipped.
func WriteMerged(w io.Writer, ips *IPSet) error {
	if len(ips.CIDRs) == 0 && len(ips.IPs) == 0 {
		return nil
	}

	_, err := fmt.Fprintf(w, "# %s (%d CIDRs, %d IPs)\n", ips.Source(), len(ips.CIDRs), len(ips.IPs))
	if err != nil {
		return err
	}

	for _, entries := range [][]string{ips.CIDRs, ips.IPs} {
		for _, e := range entries {
			if _, err := io.WriteString(w, e+"\n"); err != nil {
				return err
			}
		}
	}

	return nil
}

// IndexMerged reads a merged file written by ImportDir into tree. Each range
// is labelled with the set's name, or with the full header line when
// fullSource is set. It returns the number of ranges inserted.
func IndexMerged(r io.Reader, tree *interval.Tree[string], fullSource bool) (int, error) {
	scanner := bufio.NewScanner(r)
	var src string
	var n, lineNumber int

	for scanner.Scan() {
		lineNumber++
		t := strings.TrimSpace(scanner.Text())
		if t == "" {
			continue
		}

		if t[0] == '#' {
			src = strings.TrimSpace(t[1:])
			if !fullSource {
				src = strings.SplitN(src, " | ", 2)[0]
			}
			continue
		}

		if err := insertRange(tree, t, src); err != nil {
			return n, errors.Wrapf(err, "line %d", lineNumber)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "failed to read merged FireHOL file")
	}

	return n, nil
}

func insertRange(tree *interval.Tree[string], ipOrCIDR, label string) error {
	start, end, err := iputil.Range(ipOrCIDR)
	if err != nil {
		return err
	}
	return tree.Insert(float64(start), float64(end), label)
}

func headerValue(l string) string {
	parts := strings.SplitN(l, " : ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
