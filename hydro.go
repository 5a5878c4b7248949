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

// Package hydro provides utilities for working with WRF-Hydro model runs:
// comparing NetCDF output and restart files between a candidate and a
// reference simulation, combining multi-file forecast output into a single
// dataset, and rewriting the file paths held by a run so that they are
// relative to the run's directory. Fortran namelist configuration files
// are handled by the namelist subpackage.
package hydro

// Version is this library's version number.
const Version = "0.1.0"
