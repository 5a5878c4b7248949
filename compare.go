/*
Copyright © 2018 the Hydro authors.
This file is part of Hydro.

Hydro is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Hydro is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Hydro.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydro

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gonum/floats"
	"github.com/sirupsen/logrus"
)

// DefaultNCCmpOptions are the comparison-tool flags used when the caller
// doesn't specify any: compare data and metadata, compare files even if
// their headers don't match, and suppress per-value output.
var DefaultNCCmpOptions = []string{"--data", "--metadata", "--force", "--quiet"}

// DefaultExcludeVars are accumulated water and runoff variables that are
// expected to differ between otherwise-identical restart files, so they are
// excluded from restart comparisons unless the caller says otherwise.
var DefaultExcludeVars = []string{"ACMELT", "ACSNOW", "SFCRUNOFF", "UDRUNOFF",
	"ACCPRCP", "ACCECAN", "ACCEDIR", "ACCETRAN", "qstrmvolrt"}

// nccmpPath is the name of (or path to) the nccmp executable.
// It is a variable so tests can substitute a stub.
var nccmpPath = "nccmp"

// A CompareResult holds the differences nccmp found between two NetCDF
// files, parsed from the tool's summary output. Each row corresponds to one
// variable the tool reported on. If the tool's output could not be parsed
// as a table, Columns and Rows are empty and Raw holds the unparsed output.
type CompareResult struct {
	// Columns holds the header row of the nccmp summary table.
	Columns []string

	// Rows holds the table body; each row has len(Columns) fields.
	Rows [][]string

	// Raw is the unparsed tool output. It is only set when parsing the
	// output as a table failed.
	Raw []byte
}

// Column returns the values in the named column.
func (r *CompareResult) Column(name string) ([]string, error) {
	for j, c := range r.Columns {
		if c != name {
			continue
		}
		o := make([]string, len(r.Rows))
		for i, row := range r.Rows {
			o[i] = row[j]
		}
		return o, nil
	}
	return nil, fmt.Errorf("hydro: no column %s in comparison result", name)
}

// Float64Column returns the values in the named column, parsed as numbers.
func (r *CompareResult) Float64Column(name string) ([]float64, error) {
	col, err := r.Column(name)
	if err != nil {
		return nil, err
	}
	o := make([]float64, len(col))
	for i, s := range col {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("hydro: parsing comparison column %s: %v", name, err)
		}
		o[i] = v
	}
	return o, nil
}

// ColumnRange returns the minimum and maximum of the named numeric column.
func (r *CompareResult) ColumnRange(name string) (min, max float64, err error) {
	vals, err := r.Float64Column(name)
	if err != nil {
		return 0, 0, err
	}
	if len(vals) == 0 {
		return 0, 0, fmt.Errorf("hydro: comparison column %s is empty", name)
	}
	return floats.Min(vals), floats.Max(vals), nil
}

// CompareNC compares two NetCDF files by running nccmp on them.
// options are the command-line flags passed to the tool; if nil,
// DefaultNCCmpOptions is used. excludeVars, if non-empty, names variables
// to be excluded from the comparison.
//
// If the files are identical under the given criteria (the tool exits
// zero), the returned result is nil. A non-zero exit is not an error; it
// means differences were found, and the tool's summary output is parsed
// into the returned result. If the summary can't be parsed as a table, a
// warning is logged and the result holds the raw output instead. The tool's
// standard error stream is ignored and the tool is never retried.
func CompareNC(candidate, reference string, options, excludeVars []string) (*CompareResult, error) {
	if options == nil {
		options = DefaultNCCmpOptions
	}
	args := make([]string, 0, len(options)+5)
	args = append(args, options...)
	args = append(args, "-S")
	if len(excludeVars) > 0 {
		args = append(args, "-x", strings.Join(excludeVars, ","))
	}
	args = append(args, candidate, reference)

	cmd := exec.Command(nccmpPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil, nil // No differences found.
	}
	if _, ok := err.(*exec.ExitError); !ok {
		return nil, fmt.Errorf("hydro: running %s: %v", nccmpPath, err)
	}
	out := stdout.Bytes()
	result, err := parseCompareTable(out)
	if err != nil {
		logrus.Warnf("hydro: problem parsing %s output as a table, returning raw output: %v", nccmpPath, err)
		return &CompareResult{Raw: out}, nil
	}
	return result, nil
}

// parseCompareTable parses nccmp summary output as a whitespace-delimited
// table with a header row.
func parseCompareTable(out []byte) (*CompareResult, error) {
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("output is empty")
	}
	r := &CompareResult{Columns: strings.Fields(lines[0])}
	for _, l := range lines[1:] {
		row := strings.Fields(l)
		if len(row) != len(r.Columns) {
			return nil, fmt.Errorf("row %q doesn't match header %q", l, lines[0])
		}
		r.Rows = append(r.Rows, row)
	}
	return r, nil
}

// CompareNCFiles compares two sets of NetCDF files element-wise; files are
// matched by name, so candidate and reference files must share file names.
// The reference directory is taken to be the parent directory of the first
// reference file. excludeVars defaults to DefaultExcludeVars when nil;
// options defaults as in CompareNC.
//
// Each candidate file whose name is found in the reference directory
// contributes one entry to the returned slice, in candidate order (the
// entry is nil when the pair is identical). Candidates with no matching
// reference file are skipped with a logged warning, so the returned slice
// may be shorter than candidateFiles.
func CompareNCFiles(candidateFiles, referenceFiles []string, options, excludeVars []string) ([]*CompareResult, error) {
	if excludeVars == nil {
		excludeVars = DefaultExcludeVars
	}
	if len(referenceFiles) == 0 {
		return nil, fmt.Errorf("hydro: comparing file sets: no reference files given")
	}
	refDir := filepath.Dir(referenceFiles[0])
	var out []*CompareResult
	for _, candidate := range candidateFiles {
		reference := filepath.Join(refDir, filepath.Base(candidate))
		if _, err := os.Stat(reference); err != nil {
			logrus.Warnf("hydro: %s not found in %s", candidate, refDir)
			continue
		}
		r, err := CompareNC(candidate, reference, options, excludeVars)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CompareRestarts is a deprecated alias for CompareNCFiles, retained for
// backward compatibility.
var CompareRestarts = CompareNCFiles
