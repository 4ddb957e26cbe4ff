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
	"errors"
	"math"
	"reflect"
	"testing"
)

// testGrid returns a 2x2 grid with unit cells and its lower-left
// corner at the origin.
func testGrid() *ModelGrid {
	return &ModelGrid{
		Nlay: 1, Nrow: 2, Ncol: 2,
		DelX: 1, DelY: 1,
		XUL: 0, YUL: 2,
		XLL: 0, YLL: 0,
		Units: "meters",
	}
}

// testSurface returns a raster covering testGrid with four raster cells
// per grid cell. Cell values are j*4+i.
func testSurface() *Raster {
	r := NewRaster(0, 0, 0.5, 0.5, 4, 4)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			r.Data.Elements[j*4+i] = float64(j*4 + i)
		}
	}
	return r
}

func TestImportSurface(t *testing.T) {
	g := testGrid()
	grid, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultSurfaceOptions()
	opts.CellSize = 0
	arrays, err := ImportSurface(testSurface(), grid, 2, 2, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(arrays) != 1 {
		t.Fatalf("have %d arrays, want 1", len(arrays))
	}
	if arrays[0].Statistic != Mean {
		t.Errorf("statistic: have %s, want %s", arrays[0].Statistic, Mean)
	}
	want := [][]float64{{10.5, 12.5}, {2.5, 4.5}}
	if have := Rows(arrays[0].Data); !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestImportSurfaceFill(t *testing.T) {
	g := testGrid()
	grid, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	r := testSurface()
	for j := 0; j < 2; j++ {
		for i := 2; i < 4; i++ {
			r.Data.Set(math.NaN(), j, i)
		}
	}
	fill := -1.
	opts := SurfaceOptions{
		JoinField: CellIDField,
		Statistic: "min_max",
		FillValue: &fill,
	}
	arrays, err := ImportSurface(r, grid, 2, 2, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		stat Statistic
		data [][]float64
	}{
		{stat: Minimum, data: [][]float64{{8, 10}, {0, -1}}},
		{stat: Maximum, data: [][]float64{{13, 15}, {5, -1}}},
	}
	if len(arrays) != len(want) {
		t.Fatalf("have %d arrays, want %d", len(arrays), len(want))
	}
	for i, w := range want {
		if arrays[i].Statistic != w.stat {
			t.Errorf("array %d: have statistic %s, want %s", i, arrays[i].Statistic, w.stat)
		}
		if have := Rows(arrays[i].Data); !reflect.DeepEqual(have, w.data) {
			t.Errorf("%s: have %v, want %v", w.stat, have, w.data)
		}
	}
}

func TestImportSurfaceResample(t *testing.T) {
	g := testGrid()
	grid, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultSurfaceOptions()
	opts.CellSize = 0.25
	opts.Statistic = "SUM"
	arrays, err := ImportSurface(testSurface(), grid, 2, 2, opts)
	if err != nil {
		t.Fatal(err)
	}
	// Each raster cell is split into four.
	want := [][]float64{{42 * 4, 50 * 4}, {10 * 4, 18 * 4}}
	if have := Rows(arrays[0].Data); !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestImportSurfaceInvalid(t *testing.T) {
	g := testGrid()
	grid, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultSurfaceOptions()
	opts.Statistic = "MODE"
	if _, err := ImportSurface(testSurface(), grid, 2, 2, opts); err == nil {
		t.Error("invalid statistic should cause an error")
	}

	opts = DefaultSurfaceOptions()
	if _, err := ImportSurface(testSurface(), grid, 3, 2, opts); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("have error %v, want shape mismatch", err)
	}
}

func TestImportSurfaceStrict(t *testing.T) {
	g := testGrid()
	grid, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	// The last cell has the first cell's row and column.
	grid.Attributes = NewTable("grid")
	for _, f := range []struct {
		name string
		vals []float64
	}{
		{CellIDField, []float64{1, 2, 3, 4}},
		{RowField, []float64{0, 0, 1, 0}},
		{ColField, []float64{0, 1, 0, 0}},
	} {
		if err := grid.Attributes.AddField(Field{Name: f.name}, f.vals); err != nil {
			t.Fatal(err)
		}
	}

	opts := DefaultSurfaceOptions()
	opts.CellSize = 0
	opts.Strict = true
	_, err = ImportSurface(testSurface(), grid, 2, 2, opts)
	var ce *CoverageError
	if !errors.As(err, &ce) {
		t.Fatalf("have error %v, want coverage error", err)
	}
	if want := [][2]int{{0, 0}}; !reflect.DeepEqual(ce.Duplicates, want) {
		t.Errorf("duplicates: have %v, want %v", ce.Duplicates, want)
	}
	if want := [][2]int{{1, 1}}; !reflect.DeepEqual(ce.Missing, want) {
		t.Errorf("missing: have %v, want %v", ce.Missing, want)
	}
}
