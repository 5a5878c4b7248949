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
	"reflect"
	"testing"
)

func TestRelativizePaths(t *testing.T) {
	run := &Run{
		SimulationDir: "/glade/scratch/run1",
		ChannelRt: TimeSeries{
			"/glade/scratch/run1/201809140100.CHRTOUT_DOMAIN1",
			"/glade/scratch/run1/201809140200.CHRTOUT_DOMAIN1",
		},
		Restarts: TimeSeries{
			"/glade/scratch/run1/RESTART.2018091401_DOMAIN1",
		},
		Outputs: []string{"/glade/scratch/run1/diag_hydro.00000"},
		LogFile: "/glade/scratch/run1/run.log",
		Simulation: &Simulation{
			Domain: &Domain{
				TopDir:         "/glade/work/domains/croton",
				HydroNamelist:  "/glade/work/domains/croton/hydro.namelist",
				HrldasNamelist: "/glade/work/domains/croton/namelist.hrldas",
				ForcingFiles:   []string{"/glade/work/domains/croton/FORCING/2018091401.LDASIN_DOMAIN1"},
				StaticFiles:    []StaticFile{"/glade/work/domains/croton/DOMAIN/Route_Link.nc"},
			},
		},
	}

	got, err := RelativizePaths(run, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != run {
		t.Error("RelativizePaths should return the run it was given")
	}

	if run.SimulationDir != "." {
		t.Errorf("SimulationDir: got %q; want %q", run.SimulationDir, ".")
	}
	wantChannelRt := TimeSeries{
		"201809140100.CHRTOUT_DOMAIN1",
		"201809140200.CHRTOUT_DOMAIN1",
	}
	if !reflect.DeepEqual(run.ChannelRt, wantChannelRt) {
		t.Errorf("ChannelRt: got %v; want %v", run.ChannelRt, wantChannelRt)
	}
	if want := (TimeSeries{"RESTART.2018091401_DOMAIN1"}); !reflect.DeepEqual(run.Restarts, want) {
		t.Errorf("Restarts: got %v; want %v", run.Restarts, want)
	}
	if want := []string{"diag_hydro.00000"}; !reflect.DeepEqual(run.Outputs, want) {
		t.Errorf("Outputs: got %v; want %v", run.Outputs, want)
	}
	if run.LogFile != "run.log" {
		t.Errorf("LogFile: got %q; want %q", run.LogFile, "run.log")
	}

	// The domain is relativized against its own top directory.
	d := run.Simulation.Domain
	if d.TopDir != "." {
		t.Errorf("TopDir: got %q; want %q", d.TopDir, ".")
	}
	if d.HydroNamelist != "hydro.namelist" {
		t.Errorf("HydroNamelist: got %q", d.HydroNamelist)
	}
	if d.HrldasNamelist != "namelist.hrldas" {
		t.Errorf("HrldasNamelist: got %q", d.HrldasNamelist)
	}
	if want := []string{"FORCING/2018091401.LDASIN_DOMAIN1"}; !reflect.DeepEqual(d.ForcingFiles, want) {
		t.Errorf("ForcingFiles: got %v; want %v", d.ForcingFiles, want)
	}
	if want := []StaticFile{"DOMAIN/Route_Link.nc"}; !reflect.DeepEqual(d.StaticFiles, want) {
		t.Errorf("StaticFiles: got %v; want %v", d.StaticFiles, want)
	}
}

func TestRelativizePathsExplicitBase(t *testing.T) {
	run := &Run{
		SimulationDir: "/a/b",
		LogFile:       "/a/b/c/run.log",
	}
	if _, err := RelativizePaths(run, "/a"); err != nil {
		t.Fatal(err)
	}
	if run.LogFile != "b/c/run.log" {
		t.Errorf("LogFile: got %q; want %q", run.LogFile, "b/c/run.log")
	}
	if run.SimulationDir != "b" {
		t.Errorf("SimulationDir: got %q; want %q", run.SimulationDir, "b")
	}
}

func TestRelativizePathsIdempotent(t *testing.T) {
	run := &Run{
		SimulationDir: "/a/b",
		LogFile:       "/a/b/run.log",
	}
	if _, err := RelativizePaths(run, ""); err != nil {
		t.Fatal(err)
	}
	// Already-relative paths are left alone the second time around.
	if _, err := RelativizePaths(run, ""); err != nil {
		t.Fatal(err)
	}
	if run.LogFile != "run.log" {
		t.Errorf("LogFile: got %q; want %q", run.LogFile, "run.log")
	}
}

func TestRelativizeEmptyPaths(t *testing.T) {
	run := &Run{SimulationDir: "/a/b"}
	if _, err := RelativizePaths(run, ""); err != nil {
		t.Fatal(err)
	}
	if run.LogFile != "" {
		t.Errorf("empty LogFile should stay empty; got %q", run.LogFile)
	}
}

func TestTimeSeriesRelativize(t *testing.T) {
	ts := TimeSeries{"/x/y/a.nc", "b.nc", ""}
	got, err := ts.Relativize("/x")
	if err != nil {
		t.Fatal(err)
	}
	want := TimeSeries{"y/a.nc", "b.nc", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v; want %v", got, want)
	}
	// The receiver is not modified.
	if ts[0] != "/x/y/a.nc" {
		t.Errorf("receiver was modified: %v", ts)
	}
}

func TestStaticFileRelativize(t *testing.T) {
	s := StaticFile("/top/DOMAIN/Fulldom.nc")
	got, err := s.Relativize("/top")
	if err != nil {
		t.Fatal(err)
	}
	if got != StaticFile("DOMAIN/Fulldom.nc") {
		t.Errorf("got %q", got)
	}
}
