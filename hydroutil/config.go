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

package hydroutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/hydro"
)

// A Manifest describes a batch of candidate-versus-reference run
// comparisons, read from a TOML file.
type Manifest struct {
	// Options and ExcludeVars are defaults applied to every comparison
	// that doesn't override them.
	Options     []string
	ExcludeVars []string

	Comparisons []ManifestComparison
}

// A ManifestComparison pairs one candidate run directory with its
// reference.
type ManifestComparison struct {
	// Name identifies this comparison in output.
	Name string

	CandidateDir string
	ReferenceDir string

	// Pattern is the file name glob selecting the files to compare.
	// It defaults to "*.nc".
	Pattern string

	// Options and ExcludeVars override the manifest-level defaults
	// when non-nil.
	Options     []string
	ExcludeVars []string
}

// LoadManifest reads the comparison manifest at path. Environment variables
// in the directory fields are expanded.
func LoadManifest(path string) (*Manifest, error) {
	m := new(Manifest)
	if _, err := toml.DecodeFile(path, m); err != nil {
		return nil, fmt.Errorf("hydroutil: parsing manifest %s: %v", path, err)
	}
	for i, c := range m.Comparisons {
		m.Comparisons[i].CandidateDir = os.ExpandEnv(c.CandidateDir)
		m.Comparisons[i].ReferenceDir = os.ExpandEnv(c.ReferenceDir)
		if m.Comparisons[i].Pattern == "" {
			m.Comparisons[i].Pattern = "*.nc"
		}
		if m.Comparisons[i].Name == "" {
			m.Comparisons[i].Name = filepath.Base(m.Comparisons[i].CandidateDir)
		}
	}
	return m, nil
}

// Run performs every comparison in the manifest and returns the results
// keyed by comparison name.
func (m *Manifest) Run() (map[string][]*hydro.CompareResult, error) {
	out := make(map[string][]*hydro.CompareResult)
	for _, c := range m.Comparisons {
		options := c.Options
		if options == nil {
			options = m.Options
		}
		excludeVars := c.ExcludeVars
		if excludeVars == nil {
			excludeVars = m.ExcludeVars
		}
		candidates, err := globFiles(c.CandidateDir, c.Pattern)
		if err != nil {
			return nil, err
		}
		references, err := globFiles(c.ReferenceDir, c.Pattern)
		if err != nil {
			return nil, err
		}
		results, err := hydro.CompareNCFiles(candidates, references, options, excludeVars)
		if err != nil {
			return nil, fmt.Errorf("hydroutil: comparison %s: %v", c.Name, err)
		}
		out[c.Name] = results
	}
	return out, nil
}

// globFiles returns the sorted files in dir matching pattern.
func globFiles(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("hydroutil: globbing %s: %v", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("hydroutil: no files matching %s in %s", pattern, dir)
	}
	sort.Strings(files)
	return files, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file's directory exists and
// expands any environment variables in its path.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("hydroutil: you need to specify an output file")
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("hydroutil: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// parseChunkSpec converts chunk flags of the form "dimension=size" into the
// chunk specification accepted by hydro.OpenForecastDataset.
func parseChunkSpec(specs []string) (map[string]int, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	chunks := make(map[string]int)
	for _, s := range specs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("hydroutil: invalid chunk specification %q; want dimension=size", s)
		}
		size, err := strconv.Atoi(parts[1])
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("hydroutil: invalid chunk size in %q", s)
		}
		chunks[parts[0]] = size
	}
	return chunks, nil
}
