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
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/hydro"
	"github.com/spatialmodel/hydro/namelist"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	if want := "hydro v" + hydro.Version; !strings.Contains(out, want) {
		t.Errorf("got %q; want it to contain %q", out, want)
	}
}

func TestCompareCmd(t *testing.T) {
	stubNCCmp(t)
	cand, ref := comparisonDirs(t)

	out := execute(t, "compare", cand, ref)
	if want := "0 of 1 compared files differ"; !strings.Contains(out, want) {
		t.Errorf("got %q; want it to contain %q", out, want)
	}
}

func TestCompareCmdManifest(t *testing.T) {
	stubNCCmp(t)
	cand, ref := comparisonDirs(t)

	dir, err := ioutil.TempDir("", "hydromanifest")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	manifest := filepath.Join(dir, "manifest.toml")
	contents := "[[Comparisons]]\nName = \"croton\"\nCandidateDir = \"" + cand +
		"\"\nReferenceDir = \"" + ref + "\"\n"
	if err := ioutil.WriteFile(manifest, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	Cfg.Set("Compare.Manifest", manifest)
	defer Cfg.Set("Compare.Manifest", "")

	out := execute(t, "compare")
	if !strings.Contains(out, "== croton") {
		t.Errorf("got %q; want the comparison name header", out)
	}
	if want := "0 of 1 compared files differ"; !strings.Contains(out, want) {
		t.Errorf("got %q; want it to contain %q", out, want)
	}
}

func TestNldiffCmd(t *testing.T) {
	dir, err := ioutil.TempDir("", "hydronldiff")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	p1 := filepath.Join(dir, "a.namelist")
	p2 := filepath.Join(dir, "b.namelist")
	if err := ioutil.WriteFile(p1, []byte("&hydro_nlist\n out_dt = 60\n/\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(p2, []byte("&hydro_nlist\n out_dt = 30\n/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "nldiff", p1, p2)
	var d namelist.DiffResult
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("unmarshaling %q: %v", out, err)
	}
	c, ok := d.ValuesChanged["hydro_nlist/out_dt"]
	if !ok {
		t.Fatalf("hydro_nlist/out_dt missing from %+v", d)
	}
	// JSON numbers decode as float64.
	if c.Old != 60.0 || c.New != 30.0 {
		t.Errorf("got %+v; want old 60, new 30", c)
	}
}

// writeForecastFixture writes a one-forecast channel output file for
// exercising the concat command.
func writeForecastFixture(t *testing.T, path string, refTime float64, times, flow []float64) {
	t.Helper()
	timeData := sparse.ZerosDense(len(times))
	copy(timeData.Elements, times)
	refData := sparse.ZerosDense(1)
	refData.Elements[0] = refTime
	flowData := sparse.ZerosDense(len(times))
	copy(flowData.Elements, flow)

	ds := &hydro.ForecastDataset{
		Dims: map[string]int{"time": len(times), "reference_time": 1},
		Vars: map[string]*hydro.Variable{
			"time":           {Dims: []string{"time"}, Data: timeData},
			"reference_time": {Dims: []string{"reference_time"}, Data: refData},
			"streamflow":     {Dims: []string{"time"}, Data: flowData},
		},
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := ds.Write(f); err != nil {
		t.Fatal(err)
	}
}

func TestConcatCmd(t *testing.T) {
	dir, err := ioutil.TempDir("", "hydroconcat")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	f1 := filepath.Join(dir, "f1.nc")
	f2 := filepath.Join(dir, "f2.nc")
	writeForecastFixture(t, f1, 100, []float64{0, 1}, []float64{1, 2})
	writeForecastFixture(t, f2, 200, []float64{0, 1}, []float64{3, 4})
	out := filepath.Join(dir, "combined.nc")

	execute(t, "concat", out, f1, f2)

	ds, err := hydro.OpenForecastDataset([]string{out}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Dims["reference_time"] != 2 || ds.Dims["time"] != 2 {
		t.Errorf("dims: got %v; want reference_time 2, time 2", ds.Dims)
	}
	flow, ok := ds.Vars["streamflow"]
	if !ok {
		t.Fatal("streamflow variable missing from combined file")
	}
	want := []float64{1, 2, 3, 4}
	for i, v := range want {
		if flow.Data.Elements[i] != v {
			t.Errorf("streamflow[%d]: got %g; want %g", i, flow.Data.Elements[i], v)
			break
		}
	}
}

func TestConcatCmdBadArgs(t *testing.T) {
	Root.SetArgs([]string{"concat", "/no/such/dir/out.nc", "in.nc"})
	if err := Root.Execute(); err == nil {
		t.Error("want an error for a missing output directory")
	}
}
