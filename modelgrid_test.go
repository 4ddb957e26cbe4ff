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
	"bytes"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
)

func TestDefaultModelGrid(t *testing.T) {
	g := DefaultModelGrid()
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	x, y := g.LowerLeft()
	if math.Abs(x-g.XLL) > 1e-6 || math.Abs(y-g.YLL) > 1e-6 {
		t.Errorf("lower left: have (%g, %g), want (%g, %g)", x, y, g.XLL, g.YLL)
	}
	if id := g.CellID(g.Nrow-1, g.Ncol-1); id != 275*182 {
		t.Errorf("last cell id: have %d, want %d", id, 275*182)
	}
}

func TestModelGridValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(g *ModelGrid)
		errMsg string
	}{
		{name: "nrow", modify: func(g *ModelGrid) { g.Nrow = 0 }, errMsg: "nrow=0"},
		{name: "delx", modify: func(g *ModelGrid) { g.DelX = -1 }, errMsg: "delx=-1"},
		{name: "units", modify: func(g *ModelGrid) { g.Units = "furlongs" }, errMsg: "furlongs"},
		{name: "lower left", modify: func(g *ModelGrid) { g.YLL += 10 }, errMsg: "lower-left"},
	} {
		t.Run(test.name, func(t *testing.T) {
			g := DefaultModelGrid()
			test.modify(g)
			err := g.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.errMsg) {
				t.Errorf("error %q should contain %q", err, test.errMsg)
			}
		})
	}
}

func TestModelGridRotation(t *testing.T) {
	g := &ModelGrid{Nlay: 1, Nrow: 2, Ncol: 3, DelX: 1, DelY: 1, Units: "meters", Rotation: 90}
	x, y := g.LowerLeft()
	if math.Abs(x-2) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Errorf("lower left: have (%g, %g), want (2, 0)", x, y)
	}
	c := g.CellCenter(0, 0)
	if math.Abs(c.X-0.5) > 1e-12 || math.Abs(c.Y-0.5) > 1e-12 {
		t.Errorf("cell center: have %v, want (0.5, 0.5)", c)
	}
}

func TestCellPolygon(t *testing.T) {
	g := testGrid()
	have := g.CellPolygon(0, 1)
	want := geom.Polygon{{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}}}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	if a := have.Area(); a != 1 {
		t.Errorf("area: have %g, want 1", a)
	}
	if c := g.CellCenter(0, 1); c.Within(have) != geom.Inside {
		t.Errorf("cell center %v should be inside the cell", c)
	}
}

func TestModelGridTOML(t *testing.T) {
	g := DefaultModelGrid()
	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		t.Fatal(err)
	}
	g2, err := ReadModelGrid(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g, g2) {
		t.Errorf("have %+v, want %+v", g2, g)
	}
}

func TestReadModelGridInvalid(t *testing.T) {
	const def = `nlay = 1
nrow = 0
ncol = 2
delx = 1.0
dely = 1.0
units = "meters"
`
	if _, err := ReadModelGrid(strings.NewReader(def)); err == nil {
		t.Error("invalid grid should cause an error")
	}
}

func TestModelGridFeatures(t *testing.T) {
	g := testGrid()
	f, err := g.Features()
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Polygons) != 4 {
		t.Fatalf("have %d cells, want 4", len(f.Polygons))
	}
	for name, want := range map[string][]float64{
		OIDField:    {1, 2, 3, 4},
		CellIDField: {1, 2, 3, 4},
		RowField:    {0, 0, 1, 1},
		ColField:    {0, 1, 0, 1},
	} {
		have, err := f.Attributes.Column(name)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have, want) {
			t.Errorf("%s: have %v, want %v", name, have, want)
		}
	}
}

func TestModelGridWriteShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	g := testGrid()
	g.Proj4 = DefaultModelGrid().Proj4
	path := filepath.Join(dir, "grid.shp")
	if err := g.WriteShapefile(path); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFeatures(path, CellIDField, RowField, ColField)
	if err != nil {
		t.Fatal(err)
	}
	if f.SR == nil {
		t.Error("spatial reference should be read from the .prj file")
	}
	if len(f.Polygons) != 4 {
		t.Fatalf("have %d features, want 4", len(f.Polygons))
	}
	if a := f.Polygons[3].Area(); math.Abs(a-1) > 1e-12 {
		t.Errorf("area: have %g, want 1", a)
	}
	b := f.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 || b.Max.X != 2 || b.Max.Y != 2 {
		t.Errorf("bounds: have %v", b)
	}
	for name, want := range map[string][]float64{
		OIDField:    {1, 2, 3, 4},
		CellIDField: {1, 2, 3, 4},
		RowField:    {0, 0, 1, 1},
		ColField:    {0, 1, 0, 1},
	} {
		have, err := f.Attributes.Column(name)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have, want) {
			t.Errorf("%s: have %v, want %v", name, have, want)
		}
	}
}
