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

// Package gridprep prepares inputs for structured-grid groundwater flow
// models. It defines the model grid, samples raster surfaces and vector
// layers onto the grid cells, and returns the results as dense arrays
// laid out by model row and column.
package gridprep

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"
)

// CellRecord holds the value associated with a single grid cell.
// Missing values are represented by NaN.
type CellRecord struct {
	Row, Col int
	Val      float64
}

// ErrShapeMismatch is matched by errors returned when the number of
// records does not fit the requested grid shape.
var ErrShapeMismatch = errors.New("gridprep: shape mismatch")

// ShapeMismatchError is returned by BuildGrid when the number of records
// does not equal nrow*ncol.
type ShapeMismatchError struct {
	Records, Nrow, Ncol int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("gridprep: cannot reshape %d records into a (%d, %d) grid",
		e.Records, e.Nrow, e.Ncol)
}

// Is allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// BuildGrid arranges records into a dense array with shape (nrow, ncol).
// The records are sorted by row and then by column, and their values are
// laid out in row-major order. The input slice is not modified.
// BuildGrid does not check for duplicate or missing (row, col) pairs;
// see CheckCoverage for that.
func BuildGrid(records []CellRecord, nrow, ncol int) (*sparse.DenseArray, error) {
	if nrow <= 0 || ncol <= 0 || len(records) != nrow*ncol {
		return nil, &ShapeMismatchError{Records: len(records), Nrow: nrow, Ncol: ncol}
	}
	sorted := make([]CellRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	a := sparse.ZerosDense(nrow, ncol)
	for i, r := range sorted {
		a.Elements[i] = r.Val
	}
	return a, nil
}

// FillMissing replaces all NaN values in a with fill.
func FillMissing(a *sparse.DenseArray, fill float64) {
	for i, v := range a.Elements {
		if math.IsNaN(v) {
			a.Elements[i] = fill
		}
	}
}

// Rows returns a copy of the two-dimensional array a as a slice of rows.
func Rows(a *sparse.DenseArray) [][]float64 {
	if len(a.Shape) != 2 {
		panic(fmt.Errorf("gridprep: Rows requires a 2-d array; shape is %v", a.Shape))
	}
	nrow, ncol := a.Shape[0], a.Shape[1]
	o := make([][]float64, nrow)
	for i := range o {
		o[i] = make([]float64, ncol)
		copy(o[i], a.Elements[i*ncol:(i+1)*ncol])
	}
	return o
}

// CoverageError reports (row, col) keys that prevent a set of records from
// exactly covering a grid.
type CoverageError struct {
	OutOfRange []CellRecord
	Duplicates [][2]int
	Missing    [][2]int
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("gridprep: records do not cover the grid: %d out of range, "+
		"%d duplicate and %d missing (row, col) pairs",
		len(e.OutOfRange), len(e.Duplicates), len(e.Missing))
}

// CheckCoverage checks that every (row, col) pair in [0, nrow) × [0, ncol)
// appears exactly once in records. It returns a *CoverageError if not.
func CheckCoverage(records []CellRecord, nrow, ncol int) error {
	if nrow <= 0 || ncol <= 0 {
		return &ShapeMismatchError{Records: len(records), Nrow: nrow, Ncol: ncol}
	}
	seen := make([]bool, nrow*ncol)
	e := new(CoverageError)
	for _, r := range records {
		if r.Row < 0 || r.Row >= nrow || r.Col < 0 || r.Col >= ncol {
			e.OutOfRange = append(e.OutOfRange, r)
			continue
		}
		i := r.Row*ncol + r.Col
		if seen[i] {
			e.Duplicates = append(e.Duplicates, [2]int{r.Row, r.Col})
			continue
		}
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			e.Missing = append(e.Missing, [2]int{i / ncol, i % ncol})
		}
	}
	if len(e.OutOfRange) > 0 || len(e.Duplicates) > 0 || len(e.Missing) > 0 {
		return e
	}
	return nil
}
