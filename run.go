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
	"path/filepath"
)

// A StaticFile is the path of a static domain input file, such as a terrain
// routing grid or a spatial weights file.
type StaticFile string

// Relativize returns the file's path relative to base. Paths that are
// already relative are returned unchanged.
func (s StaticFile) Relativize(base string) (StaticFile, error) {
	p, err := relPath(base, string(s))
	return StaticFile(p), err
}

// A TimeSeries is an ordered collection of paths to time-stamped model
// output files, such as the CHRTOUT or restart files written over the
// course of a run.
type TimeSeries []string

// Open opens the time series' files as a single forecast dataset.
// See OpenForecastDataset for the meaning of chunks.
func (ts TimeSeries) Open(chunks map[string]int) (*ForecastDataset, error) {
	return OpenForecastDataset([]string(ts), chunks)
}

// Relativize returns a new TimeSeries with every path made relative
// to base.
func (ts TimeSeries) Relativize(base string) (TimeSeries, error) {
	out := make(TimeSeries, len(ts))
	for i, p := range ts {
		r, err := relPath(base, p)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// A Domain holds the file locations that make up a WRF-Hydro model domain.
type Domain struct {
	// TopDir is the domain's top-level directory; the domain's other
	// paths are made relative to it.
	TopDir string

	// HydroNamelist and HrldasNamelist are the domain's namelist
	// configuration files.
	HydroNamelist  string
	HrldasNamelist string

	// ForcingFiles are the meteorological forcing inputs.
	ForcingFiles []string

	// StaticFiles are the domain's static inputs.
	StaticFiles []StaticFile
}

// Relativize makes all of the domain's file paths (including TopDir itself)
// relative to base.
func (d *Domain) Relativize(base string) error {
	var err error
	if d.HydroNamelist, err = relPath(base, d.HydroNamelist); err != nil {
		return err
	}
	if d.HrldasNamelist, err = relPath(base, d.HrldasNamelist); err != nil {
		return err
	}
	for i, p := range d.ForcingFiles {
		if d.ForcingFiles[i], err = relPath(base, p); err != nil {
			return err
		}
	}
	for i, s := range d.StaticFiles {
		if d.StaticFiles[i], err = s.Relativize(base); err != nil {
			return err
		}
	}
	d.TopDir, err = relPath(base, d.TopDir)
	return err
}

// A Simulation pairs a model domain with the run configuration built
// from it.
type Simulation struct {
	Domain *Domain
}

// A Run records the files produced by one model run.
type Run struct {
	// SimulationDir is the directory the run was executed in. It is the
	// default base for RelativizePaths.
	SimulationDir string

	Simulation *Simulation

	// ChannelRt and Restarts are the channel routing output and restart
	// files written during the run.
	ChannelRt TimeSeries
	Restarts  TimeSeries

	// Outputs are the run's remaining output files.
	Outputs []string

	// LogFile is the run's log.
	LogFile string
}

// RelativizePaths makes all of the run's file paths relative to base,
// which defaults to the run's own simulation directory. It is useful for
// reopening a run's files after the run directory has been moved or copied
// to a new location or system.
//
// The run's simulation domain is relativized in a second, independent pass
// that uses the domain's own top-level directory as the base.
//
// The run is mutated in place and also returned. Applying RelativizePaths
// twice with different bases produces double-relativized paths; paths that
// are already relative are left alone, so reapplying with the same base is
// harmless.
func RelativizePaths(run *Run, base string) (*Run, error) {
	if base == "" {
		base = run.SimulationDir
	}
	var err error
	if run.ChannelRt, err = run.ChannelRt.Relativize(base); err != nil {
		return nil, err
	}
	if run.Restarts, err = run.Restarts.Relativize(base); err != nil {
		return nil, err
	}
	for i, p := range run.Outputs {
		if run.Outputs[i], err = relPath(base, p); err != nil {
			return nil, err
		}
	}
	if run.LogFile, err = relPath(base, run.LogFile); err != nil {
		return nil, err
	}
	if run.SimulationDir, err = relPath(base, run.SimulationDir); err != nil {
		return nil, err
	}
	if run.Simulation != nil && run.Simulation.Domain != nil {
		d := run.Simulation.Domain
		if err := d.Relativize(d.TopDir); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// relPath returns p relative to base. Empty and already-relative paths are
// returned unchanged.
func relPath(base, p string) (string, error) {
	if p == "" || !filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Rel(base, p)
}
