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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

func TestReadFeaturesMissingField(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "grid.shp")
	if err := testGrid().WriteShapefile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFeatures(path, RowField, "elevation"); err == nil {
		t.Error("a missing field should cause an error")
	}
	f, err := ReadFeatures(path, "ROW")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Attributes.Column("ROW"); err != nil {
		t.Error(err)
	}
}

func TestFeaturesBounds(t *testing.T) {
	f := &Features{Polygons: []geom.Polygonal{square(0, 0, 1, 1), square(2, -1, 3, 0.5)}}
	b := f.Bounds()
	want := &geom.Bounds{Min: geom.Point{X: 0, Y: -1}, Max: geom.Point{X: 3, Y: 1}}
	if *b != *want {
		t.Errorf("have %v, want %v", b, want)
	}
}

func TestFeaturesTransform(t *testing.T) {
	ll, err := ParseProj4("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		t.Fatal(err)
	}
	utm, err := ParseProj4("+proj=utm +zone=17 +datum=WGS84 +units=m +no_defs")
	if err != nil {
		t.Fatal(err)
	}
	f := &Features{
		Polygons:   []geom.Polygonal{square(-80, 35, -79.99, 35.01)},
		Attributes: NewTable("layer"),
		SR:         ll,
	}

	t.Run("unchanged", func(t *testing.T) {
		for _, dst := range []*proj.SR{nil, ll} {
			o, err := f.Transform(dst)
			if err != nil {
				t.Fatal(err)
			}
			if o != f {
				t.Error("features should be returned unchanged")
			}
		}
	})

	t.Run("utm", func(t *testing.T) {
		o, err := f.Transform(utm)
		if err != nil {
			t.Fatal(err)
		}
		if o.SR != utm || o.Attributes != f.Attributes {
			t.Error("spatial reference or attributes not carried over")
		}
		b := o.Bounds()
		if b.Min.X < 580000 || b.Max.X > 600000 || b.Min.Y < 3860000 || b.Max.Y > 3880000 {
			t.Errorf("unexpected projected bounds %v", b)
		}
		if a := o.Polygons[0].Area(); a < 8e5 || a > 1.2e6 {
			t.Errorf("projected area %g should be about 1 km²", a)
		}
	})
}
