// Package ipcheck finds IPv4 addresses in arbitrary text and reports every
// known IP range (datacenters, blocklists) each address falls into.
package ipcheck

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/anrid/rangeindex/pkg/firehol"
	"github.com/anrid/rangeindex/pkg/interval"
	"github.com/anrid/rangeindex/pkg/iputil"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ipToken = regexp.MustCompile(`[\d.]+`)
	ipv4    = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// Match is one IP found in the input together with one range containing it.
type Match struct {
	Line     string
	LineNo   int
	IP       string
	RangeMin string
	RangeMax string
	Source   string
}

func (m Match) String() string {
	return fmt.Sprintf("%s - %s | %s", m.RangeMin, m.RangeMax, m.Source)
}

// Summary counts what a Check run saw.
type Summary struct {
	IPsChecked int
	Matches    int
	Dupes      int
	Ranges     int
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"Found %s matches | Checked %s IPs against %s ranges (%s dupes)",
		humanize.Comma(int64(s.Matches)),
		humanize.Comma(int64(s.IPsChecked)),
		humanize.Comma(int64(s.Ranges)),
		humanize.Comma(int64(s.Dupes)),
	)
}

// Checker holds labelled IP ranges in an interval tree.
// It is not safe to load ranges and check concurrently.
type Checker struct {
	lg        *zap.Logger
	ranges    *interval.Tree[string]
	numRanges int
}

func NewChecker(lg *zap.Logger) *Checker {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Checker{
		lg:     lg,
		ranges: interval.New[string](),
	}
}

// NumRanges returns the number of ranges loaded so far.
func (c *Checker) NumRanges() int {
	return c.numRanges
}

// AddRange adds a CIDR or a single IP labelled with source.
func (c *Checker) AddRange(ipOrCIDR, source string) error {
	start, end, err := iputil.Range(ipOrCIDR)
	if err != nil {
		return err
	}

	if err := c.ranges.Insert(float64(start), float64(end), source); err != nil {
		return errors.Wrapf(err, "could not create interval for %s", ipOrCIDR)
	}
	c.numRanges++

	return nil
}

// LoadRangesCSV loads ranges from a CSV file or URL with a header row and
// the CIDR in the first column and the vendor in the fourth.
func (c *Checker) LoadRangesCSV(fileOrURL string) (int, error) {
	c.lg.Debug("reading IP ranges", zap.String("source", fileOrURL))

	rc, err := openFileOrURL(fileOrURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var n int
	err = readCSV(rc, func(recordNumber int, record []string) error {
		if recordNumber == 1 {
			// Skip headers.
			return nil
		}
		if len(record) < 4 {
			return errors.Errorf("record %d has %d fields, want at least 4", recordNumber, len(record))
		}

		if err := c.AddRange(record[0], record[3]); err != nil {
			return err
		}
		n++

		return nil
	})
	if err != nil {
		return n, errors.Wrapf(err, "failed to load IP ranges from %s", fileOrURL)
	}

	c.lg.Debug("loaded IP ranges into interval tree", zap.Int("ranges", n), zap.Int("total", c.numRanges))
	return n, nil
}

// LoadFireHOL loads a merged FireHOL file written by firehol.ImportDir.
// With fullSource each range is labelled with the full set header instead
// of only the set name.
func (c *Checker) LoadFireHOL(file string, fullSource bool) (int, error) {
	c.lg.Debug("loading FireHOL data", zap.String("file", file))

	f, err := os.Open(file)
	if err != nil {
		return 0, errors.Wrapf(err, "could not open FireHOL DB file: %s", file)
	}
	defer f.Close()

	n, err := firehol.IndexMerged(f, c.ranges, fullSource)
	c.numRanges += n
	if err != nil {
		return n, errors.Wrapf(err, "could not load FireHOL DB file: %s", file)
	}

	c.lg.Debug("loaded FireHOL ranges into interval tree", zap.Int("ranges", n), zap.Int("total", c.numRanges))
	return n, nil
}

// Lookup returns every loaded range containing ip.
func (c *Checker) Lookup(ip string) ([]Match, error) {
	n, err := iputil.IP2Long(ip)
	if err != nil {
		return nil, err
	}

	found := c.ranges.FindPoint(float64(n))
	matches := make([]Match, 0, len(found))
	for _, res := range found {
		matches = append(matches, Match{
			IP:       ip,
			RangeMin: iputil.Long2IP(uint32(res.Start)),
			RangeMax: iputil.Long2IP(uint32(res.End)),
			Source:   res.Data,
		})
	}

	return matches, nil
}

// Check scans r line by line, looks up every IPv4 address found and calls
// onMatch for each range it falls into. Strings that look like addresses
// but are not (e.g. 999.1.1.1) are skipped.
func (c *Checker) Check(r io.Reader, onMatch func(Match) error) (Summary, error) {
	sum := Summary{Ranges: c.numRanges}
	seen := make(map[string]bool)

	err := readLines(r, func(lineNumber int, line string) error {
		for _, ip := range FindIPs(line) {
			sum.IPsChecked++
			c.lg.Debug("checking ip", zap.String("ip", ip), zap.Int("line", lineNumber))

			matches, err := c.Lookup(ip)
			if err != nil {
				c.lg.Debug("skipping invalid ip", zap.String("ip", ip), zap.Error(err))
				continue
			}
			if len(matches) == 0 {
				continue
			}

			if seen[ip] {
				sum.Dupes++
			}
			seen[ip] = true

			for _, match := range matches {
				match.Line = line
				match.LineNo = lineNumber
				sum.Matches++

				if onMatch != nil {
					if err := onMatch(match); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})

	return sum, err
}

// FindIPs returns every dotted quad in line. A sentence-ending dot is not
// part of the address.
func FindIPs(line string) []string {
	var ips []string
	for _, tok := range ipToken.FindAllString(line, -1) {
		tok = strings.TrimRight(tok, ".")
		if ipv4.MatchString(tok) {
			ips = append(ips, tok)
		}
	}
	return ips
}

// CheckFileOrURL is Check on a local file or a URL.
func (c *Checker) CheckFileOrURL(fileOrURL string, onMatch func(Match) error) (Summary, error) {
	rc, err := openFileOrURL(fileOrURL)
	if err != nil {
		return Summary{}, err
	}
	defer rc.Close()

	sum, err := c.Check(rc, onMatch)
	if err != nil {
		return sum, errors.Wrapf(err, "failed to check %s", fileOrURL)
	}
	return sum, nil
}

// WriteMatchesCSV writes matches as CSV with a header row.
func WriteMatchesCSV(w io.Writer, matches []Match) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ip", "range_min", "range_max", "source", "line"}); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	for _, m := range matches {
		rec := []string{m.IP, m.RangeMin, m.RangeMax, m.Source, fmt.Sprint(m.LineNo)}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write CSV record")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to write CSV")
}

func readCSV(r io.Reader, forEachRecord func(recordNumber int, record []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var recordNumber int

	for {
		rec, err := cr.Read()
		if err != nil {
			if err != io.EOF {
				return errors.Wrap(err, "failed to read CSV record")
			}
			// We're done.
			return nil
		}

		recordNumber++
		if err := forEachRecord(recordNumber, rec); err != nil {
			return errors.Wrapf(err, "failed to process CSV record %d", recordNumber)
		}
	}
}

func readLines(r io.Reader, forEachLine func(lineNumber int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lineNumber int

	for scanner.Scan() {
		lineNumber++
		if err := forEachLine(lineNumber, scanner.Text()); err != nil {
			return errors.Wrapf(err, "failed to process line %d", lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read line")
	}

	return nil
}

// openFileOrURL opens a local file, or fetches fileOrURL over HTTP(S) when
// it looks like a URL.
func openFileOrURL(fileOrURL string) (io.ReadCloser, error) {
	if !strings.HasPrefix(fileOrURL, "http://") && !strings.HasPrefix(fileOrURL, "https://") {
		f, err := os.Open(fileOrURL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open file: %s", fileOrURL)
		}
		return f, nil
	}

	res, err := http.Get(fileOrURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download data from URL: %s", fileOrURL)
	}

	if res.StatusCode >= 400 {
		res.Body.Close()
		return nil, errors.Errorf("failed to download data from URL: %s - got status code: %d", fileOrURL, res.StatusCode)
	}

	return res.Body, nil
}
