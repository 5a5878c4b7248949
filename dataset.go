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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/gonum/floats"
)

// Names of the dimensions that organize forecast model output. Each output
// file holds one forecast cycle's worth of records: reference_time is the
// forecast issuance time and time is the valid time within the forecast.
const (
	timeDim    = "time"
	refTimeDim = "reference_time"
)

// A Variable is one NetCDF variable: its dimension names and its data.
type Variable struct {
	Dims []string
	Data *sparse.DenseArray
}

// isCoord reports whether the variable named name is a coordinate variable
// in the dataset ds, i.e. whether it shares its name with a dimension.
func (ds *ForecastDataset) isCoord(name string) bool {
	_, ok := ds.Dims[name]
	return ok
}

// A ForecastDataset is a labeled collection of multi-dimensional forecast
// model output variables, keyed by dimension names.
type ForecastDataset struct {
	// Dims maps dimension names to their lengths.
	Dims map[string]int

	// Vars maps variable names to their contents.
	Vars map[string]*Variable

	// ChunkSpec maps dimension names to block sizes for lazy access
	// through VarChunks. It is nil for unchunked datasets.
	ChunkSpec map[string]int
}

// OpenForecastDataset opens a multi-file forecast output dataset.
//
// The files are grouped by the first value of their reference_time
// coordinate; each group is concatenated along the time dimension and the
// groups are then concatenated along the reference_time dimension, both
// with minimal-coordinate merging: coordinate variables that don't contain
// the concatenation dimension are only kept when their values match across
// all inputs. Groups are processed in order of first appearance in paths.
// A file that spans more than one reference time is treated as belonging
// entirely to its first one.
//
// If chunks is non-nil it maps dimension names to block sizes, and the
// returned dataset provides lazily evaluated blocks through VarChunks;
// otherwise the dataset is fully concatenated and eagerly available.
func OpenForecastDataset(paths []string, chunks map[string]int) (*ForecastDataset, error) {
	var keys []float64
	groups := make(map[float64][]*ForecastDataset)
	for _, path := range paths {
		ds, err := readDataset(path)
		if err != nil {
			return nil, err
		}
		v, ok := ds.Vars[refTimeDim]
		if !ok || len(v.Data.Elements) == 0 {
			return nil, fmt.Errorf("hydro: %s: missing %s coordinate", path, refTimeDim)
		}
		key := v.Data.Elements[0]
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], ds)
	}

	forecasts := make([]*ForecastDataset, len(keys))
	for i, key := range keys {
		f, err := concat(groups[key], timeDim)
		if err != nil {
			return nil, err
		}
		forecasts[i] = f
	}
	out, err := concat(forecasts, refTimeDim)
	if err != nil {
		return nil, err
	}
	if chunks != nil {
		out = out.Chunk(chunks)
	}
	return out, nil
}

// readDataset reads all numeric variables from the NetCDF file at path.
// Character variables are skipped.
func readDataset(path string) (*ForecastDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("hydro: opening %s: %v", path, err)
	}
	ds := &ForecastDataset{
		Dims: make(map[string]int),
		Vars: make(map[string]*Variable),
	}
	for _, v := range ff.Header.Variables() {
		dims := ff.Header.Dimensions(v)
		lens := ff.Header.Lengths(v)
		r := ff.Reader(v, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("hydro: reading netcdf variable %s from %s: %v", v, path, err)
		}
		var elements []float64
		switch b := buf.(type) {
		case []float64:
			elements = b
		case []float32:
			elements = make([]float64, len(b))
			for i, val := range b {
				elements[i] = float64(val)
			}
		case []int32:
			elements = make([]float64, len(b))
			for i, val := range b {
				elements[i] = float64(val)
			}
		case []int16:
			elements = make([]float64, len(b))
			for i, val := range b {
				elements[i] = float64(val)
			}
		case []int8:
			elements = make([]float64, len(b))
			for i, val := range b {
				elements[i] = float64(val)
			}
		default: // character data; not useful here.
			continue
		}
		// The length of the record dimension is not stored in the
		// header, so recover it from the data.
		if len(lens) > 0 && lens[0] == 0 {
			n := 1
			for _, l := range lens[1:] {
				n *= l
			}
			if n == 0 {
				return nil, fmt.Errorf("hydro: reading netcdf variable %s from %s: zero-length dimension", v, path)
			}
			lens[0] = len(elements) / n
		}
		data := sparse.ZerosDense(lens...)
		copy(data.Elements, elements)
		ds.Vars[v] = &Variable{Dims: dims, Data: data}
		for i, d := range dims {
			ds.Dims[d] = lens[i]
		}
	}
	return ds, nil
}

// concat concatenates the given datasets along the named dimension using a
// minimal-coordinate merge policy. Variables are taken from the first
// dataset; each one must be present in all of them.
//
// Coordinate variables that contain dim are concatenated along it; those
// that don't are kept only when their values match exactly in every input.
// Data variables that contain dim are concatenated along it; those that
// don't are stacked along a new leading dim axis, and their shapes must
// match across inputs.
func concat(dss []*ForecastDataset, dim string) (*ForecastDataset, error) {
	if len(dss) == 0 {
		return nil, fmt.Errorf("hydro: concatenating along %s: no datasets", dim)
	}
	if len(dss) == 1 {
		return dss[0], nil
	}
	first := dss[0]

	names := make([]string, 0, len(first.Vars))
	for name := range first.Vars {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &ForecastDataset{
		Dims: make(map[string]int),
		Vars: make(map[string]*Variable),
	}
	for d, l := range first.Dims {
		if d != dim {
			out.Dims[d] = l
		}
	}

	dimTotal := 0
	for _, ds := range dss {
		if l, ok := ds.Dims[dim]; ok {
			dimTotal += l
		} else {
			dimTotal++ // stacked
		}
	}
	out.Dims[dim] = dimTotal

	for _, name := range names {
		v := first.Vars[name]
		members := make([]*Variable, len(dss))
		for i, ds := range dss {
			m, ok := ds.Vars[name]
			if !ok {
				return nil, fmt.Errorf("hydro: concatenating along %s: variable %s missing from input %d", dim, name, i)
			}
			members[i] = m
		}
		axis := dimIndex(v.Dims, dim)
		switch {
		case axis >= 0:
			c, err := concatVar(members, axis)
			if err != nil {
				return nil, fmt.Errorf("hydro: concatenating %s along %s: %v", name, dim, err)
			}
			out.Vars[name] = &Variable{Dims: v.Dims, Data: c}
		case first.isCoord(name):
			if varsEqual(members) {
				out.Vars[name] = v
			}
			// Conflicting coordinates are dropped, not merged.
		default:
			s, err := stackVar(members)
			if err != nil {
				return nil, fmt.Errorf("hydro: stacking %s along %s: %v", name, dim, err)
			}
			out.Vars[name] = &Variable{Dims: append([]string{dim}, v.Dims...), Data: s}
		}
	}
	return out, nil
}

// dimIndex returns the position of dim in dims, or -1.
func dimIndex(dims []string, dim string) int {
	for i, d := range dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// varsEqual reports whether all members have identical shapes and values.
func varsEqual(members []*Variable) bool {
	first := members[0].Data
	for _, m := range members[1:] {
		if !shapeEqual(first.Shape, m.Data.Shape) {
			return false
		}
		if !floats.Equal(first.Elements, m.Data.Elements) {
			return false
		}
	}
	return true
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// concatVar concatenates the members' data along the given existing axis.
// All other axes must have matching lengths.
func concatVar(members []*Variable, axis int) (*sparse.DenseArray, error) {
	shape := append([]int{}, members[0].Data.Shape...)
	total := 0
	for i, m := range members {
		s := m.Data.Shape
		if len(s) != len(shape) {
			return nil, fmt.Errorf("input %d has %d dimensions; expected %d", i, len(s), len(shape))
		}
		for j := range s {
			if j != axis && s[j] != shape[j] {
				return nil, fmt.Errorf("input %d dimension %d is %d; expected %d", i, j, s[j], shape[j])
			}
		}
		total += s[axis]
	}
	shape[axis] = total

	out := sparse.ZerosDense(shape...)
	// Treat each array as [outer, axis, inner] blocks and copy the
	// members in order along the axis.
	inner := 1
	for _, l := range shape[axis+1:] {
		inner *= l
	}
	outer := 1
	for _, l := range shape[:axis] {
		outer *= l
	}
	offset := 0
	for _, m := range members {
		n := m.Data.Shape[axis]
		for o := 0; o < outer; o++ {
			src := m.Data.Elements[o*n*inner : (o+1)*n*inner]
			dst := out.Elements[(o*total+offset)*inner : (o*total+offset+n)*inner]
			copy(dst, src)
		}
		offset += n
	}
	return out, nil
}

// stackVar stacks the members' data along a new leading axis.
// All members must have matching shapes.
func stackVar(members []*Variable) (*sparse.DenseArray, error) {
	shape := members[0].Data.Shape
	for i, m := range members[1:] {
		if !shapeEqual(shape, m.Data.Shape) {
			return nil, fmt.Errorf("input %d shape %v doesn't match %v", i+1, m.Data.Shape, shape)
		}
	}
	out := sparse.ZerosDense(append([]int{len(members)}, shape...)...)
	n := len(members[0].Data.Elements)
	for i, m := range members {
		copy(out.Elements[i*n:(i+1)*n], m.Data.Elements)
	}
	return out, nil
}

// Chunk returns a copy of the dataset that shares the underlying data but
// is labeled with the given chunk specification, which maps dimension names
// to block sizes. Blocks are evaluated on demand through VarChunks.
func (ds *ForecastDataset) Chunk(chunks map[string]int) *ForecastDataset {
	return &ForecastDataset{Dims: ds.Dims, Vars: ds.Vars, ChunkSpec: chunks}
}

// NextChunk sequentially returns blocks of a chunked variable,
// returning io.EOF after the last block.
type NextChunk func() (*sparse.DenseArray, error)

// VarChunks returns a function that lazily produces the named variable's
// data one block at a time, in row-major block order. Dimensions absent
// from the dataset's chunk specification form a single block.
func (ds *ForecastDataset) VarChunks(name string) (NextChunk, error) {
	v, ok := ds.Vars[name]
	if !ok {
		return nil, fmt.Errorf("hydro: no variable %s in dataset", name)
	}
	shape := v.Data.Shape
	sizes := make([]int, len(shape))
	for i, d := range v.Dims {
		if s, ok := ds.ChunkSpec[d]; ok && s > 0 && s < shape[i] {
			sizes[i] = s
		} else {
			sizes[i] = shape[i]
		}
	}
	start := make([]int, len(shape))
	done := false
	return func() (*sparse.DenseArray, error) {
		if done {
			return nil, io.EOF
		}
		end := make([]int, len(shape))
		for i := range start {
			end[i] = start[i] + sizes[i]
			if end[i] > shape[i] {
				end[i] = shape[i]
			}
		}
		block := subArray(v.Data, start, end)

		// Advance to the next block, odometer-style.
		done = true
		for i := len(start) - 1; i >= 0; i-- {
			start[i] += sizes[i]
			if start[i] < shape[i] {
				done = false
				break
			}
			start[i] = 0
		}
		return block, nil
	}, nil
}

// subArray copies out the hyperslab [start, end) of a.
func subArray(a *sparse.DenseArray, start, end []int) *sparse.DenseArray {
	shape := make([]int, len(start))
	for i := range start {
		shape[i] = end[i] - start[i]
	}
	out := sparse.ZerosDense(shape...)
	if len(shape) == 0 {
		out.Elements[0] = a.Elements[0]
		return out
	}
	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for {
		for i := range idx {
			src[i] = start[i] + idx[i]
		}
		out.Set(a.Get(src...), idx...)
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// Write writes the dataset to the NetCDF file w. All variables are written
// as 64-bit floats.
func (ds *ForecastDataset) Write(w *os.File) error {
	dimNames := make([]string, 0, len(ds.Dims))
	for d := range ds.Dims {
		dimNames = append(dimNames, d)
	}
	sort.Strings(dimNames)
	dimLens := make([]int, len(dimNames))
	for i, d := range dimNames {
		dimLens[i] = ds.Dims[d]
	}
	h := cdf.NewHeader(dimNames, dimLens)
	h.AddAttribute("", "comment", "Hydro combined forecast dataset")

	names := make([]string, 0, len(ds.Vars))
	for n := range ds.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddVariable(name, ds.Vars[name].Dims, []float64{0.})
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("hydro: creating netcdf file: %v", err)
	}

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := writeNCF(f, name, ds.Vars[name].Data); err != nil {
			return fmt.Errorf("hydro: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data.Elements)
	return err
}
