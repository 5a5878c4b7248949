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

package namelist

import (
	"reflect"
	"sort"
)

// A DiffResult describes the structural differences between two namelists.
// Keys in the maps and slices are "group/option" paths, except for the
// group-level entries which are bare group names. Array values are compared
// without regard to element order.
type DiffResult struct {
	GroupsAdded   []string               `json:"groups_added,omitempty"`
	GroupsRemoved []string               `json:"groups_removed,omitempty"`
	KeysAdded     []string               `json:"keys_added,omitempty"`
	KeysRemoved   []string               `json:"keys_removed,omitempty"`
	ValuesChanged map[string]ValueChange `json:"values_changed,omitempty"`
}

// A ValueChange holds the two values of an option that differs between
// namelists.
type ValueChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Empty reports whether the two namelists were identical.
func (d *DiffResult) Empty() bool {
	return len(d.GroupsAdded) == 0 && len(d.GroupsRemoved) == 0 &&
		len(d.KeysAdded) == 0 && len(d.KeysRemoved) == 0 &&
		len(d.ValuesChanged) == 0
}

// Diff computes the structural differences between namelists a and b:
// groups and options present in only one of them, and options whose values
// differ. Differences are expressed in the a-to-b direction, so an option
// only in b is "added".
func Diff(a, b Namelist) *DiffResult {
	d := &DiffResult{ValuesChanged: make(map[string]ValueChange)}
	for name, ga := range a {
		gb, ok := b[name]
		if !ok {
			d.GroupsRemoved = append(d.GroupsRemoved, name)
			continue
		}
		for key, va := range ga {
			vb, ok := gb[key]
			if !ok {
				d.KeysRemoved = append(d.KeysRemoved, name+"/"+key)
				continue
			}
			if !valueEqual(va, vb) {
				d.ValuesChanged[name+"/"+key] = ValueChange{Old: va, New: vb}
			}
		}
		for key := range gb {
			if _, ok := ga[key]; !ok {
				d.KeysAdded = append(d.KeysAdded, name+"/"+key)
			}
		}
	}
	for name := range b {
		if _, ok := a[name]; !ok {
			d.GroupsAdded = append(d.GroupsAdded, name)
		}
	}
	sort.Strings(d.GroupsAdded)
	sort.Strings(d.GroupsRemoved)
	sort.Strings(d.KeysAdded)
	sort.Strings(d.KeysRemoved)
	return d
}

// DiffFiles reads and diffs the two namelist files. Parse errors propagate
// unchanged.
func DiffFiles(path1, path2 string) (*DiffResult, error) {
	a, err := Read(path1)
	if err != nil {
		return nil, err
	}
	b, err := Read(path2)
	if err != nil {
		return nil, err
	}
	return Diff(a, b), nil
}

// valueEqual compares two option values. Arrays are compared as multisets,
// ignoring element order.
func valueEqual(a, b interface{}) bool {
	aa, aok := a.([]interface{})
	bb, bok := b.([]interface{})
	if aok != bok {
		return false
	}
	if !aok {
		return reflect.DeepEqual(a, b)
	}
	if len(aa) != len(bb) {
		return false
	}
	used := make([]bool, len(bb))
	for _, va := range aa {
		found := false
		for j, vb := range bb {
			if !used[j] && valueEqual(va, vb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
