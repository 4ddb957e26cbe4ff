/*
Copyright © 2018 the gridprep authors.
This file is part of gridprep.

gridprep is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridprep is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridprep.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridprep

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Field describes a column in a Table. Alias is the name the field
// had before it was qualified by a join.
type Field struct {
	Name, Alias string
}

// Table is a set of named numeric columns of equal length.
// Null values are represented by NaN.
type Table struct {
	Name string

	fields  []Field
	columns [][]float64
	index   map[string]int
	nrows   int
}

// NewTable creates an empty table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name, index: make(map[string]int)}
}

// AddField adds a column to t. The first column sets the number of rows
// in the table; subsequent columns must have the same length.
func (t *Table) AddField(f Field, vals []float64) error {
	if f.Name == "" {
		return fmt.Errorf("gridprep: table %s: field name must not be empty", t.Name)
	}
	if _, ok := t.index[f.Name]; ok {
		return fmt.Errorf("gridprep: table %s already has field %s", t.Name, f.Name)
	}
	if len(t.fields) > 0 && len(vals) != t.nrows {
		return fmt.Errorf("gridprep: table %s: field %s has %d rows but the table has %d",
			t.Name, f.Name, len(vals), t.nrows)
	}
	if f.Alias == "" {
		f.Alias = f.Name
	}
	t.nrows = len(vals)
	t.index[f.Name] = len(t.fields)
	t.fields = append(t.fields, f)
	t.columns = append(t.columns, vals)
	return nil
}

// Fields returns the fields in t, in the order they were added.
func (t *Table) Fields() []Field {
	o := make([]Field, len(t.fields))
	copy(o, t.fields)
	return o
}

// NumRows returns the number of rows in t.
func (t *Table) NumRows() int { return t.nrows }

// Column returns the values in the field with the given name.
// The returned slice should not be modified.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("gridprep: table %s does not contain field %s", t.Name, name)
	}
	return t.columns[i], nil
}

// ResolveField returns the name of the field in t that matches name,
// first by field name and then by alias. Joins qualify field names,
// so the alias is often the only way to find a field afterwards.
func (t *Table) ResolveField(name string) (string, error) {
	if _, ok := t.index[name]; ok {
		return name, nil
	}
	for _, f := range t.fields {
		if f.Alias == name {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("gridprep: table %s has no field named or aliased %s", t.Name, name)
}

// Join returns a new table holding all the fields in t together with the
// fields in other, matching rows where t's key field equals other's
// otherKey field. Fields from other are named "<other.Name>.<field>" and
// keep their original names as aliases. If keepAll is true, rows in t
// without a match are kept with NaN values for other's fields; otherwise
// they are dropped. If a key appears more than once in other, the first
// occurrence is used.
func (t *Table) Join(other *Table, key, otherKey string, keepAll bool) (*Table, error) {
	keys, err := t.Column(key)
	if err != nil {
		return nil, fmt.Errorf("gridprep: joining %s to %s: %v", other.Name, t.Name, err)
	}
	otherKeys, err := other.Column(otherKey)
	if err != nil {
		return nil, fmt.Errorf("gridprep: joining %s to %s: %v", other.Name, t.Name, err)
	}
	lookup := make(map[float64]int, len(otherKeys))
	for i, k := range otherKeys {
		if math.IsNaN(k) {
			continue
		}
		if _, ok := lookup[k]; !ok {
			lookup[k] = i
		}
	}

	// match[i] is the row in other that matches row keep[i] in t, or -1.
	var keep, match []int
	for i, k := range keys {
		j, ok := lookup[k]
		if !ok {
			if !keepAll {
				continue
			}
			j = -1
		}
		keep = append(keep, i)
		match = append(match, j)
	}

	o := NewTable(t.Name)
	for fi, f := range t.fields {
		vals := make([]float64, len(keep))
		for i, r := range keep {
			vals[i] = t.columns[fi][r]
		}
		if err := o.AddField(f, vals); err != nil {
			return nil, err
		}
	}
	for fi, f := range other.fields {
		vals := make([]float64, len(match))
		for i, r := range match {
			if r < 0 {
				vals[i] = math.NaN()
			} else {
				vals[i] = other.columns[fi][r]
			}
		}
		qualified := Field{Name: other.Name + "." + f.Name, Alias: f.Name}
		if err := o.AddField(qualified, vals); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// CellRecords returns the values in valField together with the grid
// row and column numbers in rowField and colField. Field names are
// resolved with ResolveField.
func (t *Table) CellRecords(rowField, colField, valField string) ([]CellRecord, error) {
	var cols [3][]float64
	for i, name := range []string{rowField, colField, valField} {
		resolved, err := t.ResolveField(name)
		if err != nil {
			return nil, err
		}
		cols[i], _ = t.Column(resolved)
	}
	o := make([]CellRecord, t.nrows)
	for i := range o {
		r, c := cols[0][i], cols[1][i]
		if math.IsNaN(r) || math.IsNaN(c) || r != math.Trunc(r) || c != math.Trunc(c) {
			return nil, fmt.Errorf("gridprep: table %s row %d: invalid row/column (%g, %g)",
				t.Name, i, r, c)
		}
		o[i] = CellRecord{Row: int(r), Col: int(c), Val: cols[2][i]}
	}
	return o, nil
}

// GridToArray returns an array of shape (nrow, ncol) holding the values of
// valField in t, positioned by the row and column numbers held in the two
// fields named in rowColFields.
func GridToArray(t *Table, nrow, ncol int, rowColFields [2]string, valField string) (*sparse.DenseArray, error) {
	records, err := t.CellRecords(rowColFields[0], rowColFields[1], valField)
	if err != nil {
		return nil, err
	}
	return BuildGrid(records, nrow, ncol)
}
