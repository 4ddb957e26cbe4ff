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
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

func testArrays(t *testing.T) map[string]*sparse.DenseArray {
	top, err := BuildGrid([]CellRecord{{0, 0, 5}, {0, 1, 3}, {1, 0, 1}, {1, 1, 9}}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	bot, err := BuildGrid([]CellRecord{{0, 0, 1.5}, {0, 1, math.NaN()}, {1, 0, -2}, {1, 1, 0.25}}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]*sparse.DenseArray{"top": top, "bottom_elevation": bot}
}

func TestWriteArraysNCF(t *testing.T) {
	f, err := ioutil.TempFile("", "gridprep_arrays")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	g := testGrid()
	arrays := testArrays(t)
	if err := WriteArraysNCF(f, g, arrays); err != nil {
		t.Fatal(err)
	}

	ff, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := ff.Header.Variables(), []string{"bottom_elevation", "top"}; !reflect.DeepEqual(have, want) {
		t.Errorf("variables: have %v, want %v", have, want)
	}
	for name, a := range arrays {
		if have := ff.Header.Lengths(name); !reflect.DeepEqual(have, []int{2, 2}) {
			t.Errorf("%s dimensions: have %v", name, have)
		}
		buf := make([]float32, 4)
		if _, err := ff.Reader(name, nil, nil).Read(buf); err != nil {
			t.Fatal(err)
		}
		for i, v := range a.Elements {
			want := float32(v)
			if math.IsNaN(v) {
				want = rasterFillValue
			}
			if buf[i] != want {
				t.Errorf("%s[%d]: have %g, want %g", name, i, buf[i], want)
			}
		}
	}
	if p, ok := ff.Header.GetAttribute("", "units").(string); !ok || p != "meters" {
		t.Errorf("units: have %v", ff.Header.GetAttribute("", "units"))
	}
}

func TestWriteArraysShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "arrays.shp")
	if err := WriteArraysShapefile(path, testGrid(), testArrays(t)); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFeatures(path, RowField, ColField, "top", "bottom_ele")
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Polygons) != 4 {
		t.Fatalf("have %d features, want 4", len(f.Polygons))
	}
	for name, want := range map[string][]float64{
		RowField:     {0, 0, 1, 1},
		ColField:     {0, 1, 0, 1},
		"top":        {5, 3, 1, 9},
		"bottom_ele": {1.5, math.NaN(), -2, 0.25},
	} {
		have, err := f.Attributes.Column(name)
		if err != nil {
			t.Fatal(err)
		}
		for i := range want {
			if have[i] != want[i] && !(math.IsNaN(have[i]) && math.IsNaN(want[i])) {
				t.Errorf("%s[%d]: have %g, want %g", name, i, have[i], want[i])
			}
		}
	}
}

func TestWriteArraysInvalid(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	arrays := testArrays(t)
	arrays["bottom_elevation_2"] = arrays["top"]
	err = WriteArraysShapefile(filepath.Join(dir, "a.shp"), testGrid(), arrays)
	if err == nil || !strings.Contains(err.Error(), "already used") {
		t.Errorf("have error %v, want truncated name collision", err)
	}

	g := testGrid()
	g.Nrow = 3
	err = WriteArraysShapefile(filepath.Join(dir, "b.shp"), g, testArrays(t))
	if err == nil || !strings.Contains(err.Error(), "shape") {
		t.Errorf("have error %v, want shape error", err)
	}
}
