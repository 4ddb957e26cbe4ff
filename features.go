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
	"io/ioutil"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// OIDField is the name of the 1-based feature index field that is
// present in every feature attribute table.
const OIDField = "FID"

const (
	// intLength is the length of integer shapefile fields.
	intLength = 10

	// floatLength and floatPrecision are the length and precision of
	// floating point shapefile fields.
	floatLength    = 18
	floatPrecision = 8

	// maxFieldName is the maximum length of a dBASE field name.
	maxFieldName = 10
)

// Features holds a set of polygon features and their attributes.
// Row i of Attributes holds the attributes of Polygons[i].
type Features struct {
	Polygons   []geom.Polygonal
	Attributes *Table

	// SR is the spatial reference of the polygons. It may be nil
	// if the projection is unknown.
	SR *proj.SR
}

// ReadFeatures reads the polygons in the given shapefile together with
// the named numeric attribute fields. Empty attribute values are read
// as NaN. The spatial reference is read from the .prj file, if there is one.
// An OIDField column is always added.
func ReadFeatures(shapefile string, fields ...string) (*Features, error) {
	base := strings.TrimSuffix(shapefile, ".shp")
	d, err := shp.NewDecoder(base + ".shp")
	if err != nil {
		return nil, fmt.Errorf("gridprep: opening shapefile %s: %v", shapefile, err)
	}
	defer d.Close()

	o := &Features{Attributes: NewTable(baseName(base))}
	cols := make([][]float64, len(fields))
	for {
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more || d.Error() != nil {
			break
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("gridprep: shapefile %s: feature %d has non-polygon geometry type %T",
				shapefile, len(o.Polygons), g)
		}
		o.Polygons = append(o.Polygons, p)
		for i, name := range fields {
			v, err := parseAttribute(attrs[name])
			if err != nil {
				return nil, fmt.Errorf("gridprep: shapefile %s: field %s of feature %d: %v",
					shapefile, name, len(o.Polygons)-1, err)
			}
			cols[i] = append(cols[i], v)
		}
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("gridprep: reading shapefile %s: %v", shapefile, err)
	}

	fid := make([]float64, len(o.Polygons))
	for i := range fid {
		fid[i] = float64(i + 1)
	}
	if err := o.Attributes.AddField(Field{Name: OIDField}, fid); err != nil {
		return nil, err
	}
	for i, name := range fields {
		if name == OIDField {
			continue
		}
		if cols[i] == nil {
			cols[i] = []float64{}
		}
		if err := o.Attributes.AddField(Field{Name: name}, cols[i]); err != nil {
			return nil, err
		}
	}

	b, err := ioutil.ReadFile(base + ".prj")
	if err == nil {
		if o.SR, err = ParseProj4(strings.TrimSpace(string(b))); err != nil {
			return nil, fmt.Errorf("gridprep: shapefile %s: %v", shapefile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("gridprep: reading projection for shapefile %s: %v", shapefile, err)
	}
	return o, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parseAttribute(s string) (float64, error) {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" || strings.Trim(s, "*") == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Transform returns a copy of f with the polygons projected to dst.
// If f.SR or dst is nil, or they are equal, f is returned unchanged.
func (f *Features) Transform(dst *proj.SR) (*Features, error) {
	if f.SR == nil || dst == nil || f.SR.Equal(dst, 0) {
		return f, nil
	}
	ct, err := f.SR.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("gridprep: creating spatial reprojector: %v", err)
	}
	o := &Features{
		Polygons:   make([]geom.Polygonal, len(f.Polygons)),
		Attributes: f.Attributes,
		SR:         dst,
	}
	for i, p := range f.Polygons {
		g, err := p.Transform(ct)
		if err != nil {
			return nil, fmt.Errorf("gridprep: reprojecting feature %d: %v", i, err)
		}
		o.Polygons[i] = g.(geom.Polygonal)
	}
	return o, nil
}

// Bounds returns the extent of all the features in f.
func (f *Features) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, p := range f.Polygons {
		b.Extend(p.Bounds())
	}
	return b
}
