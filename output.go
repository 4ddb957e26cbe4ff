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
	"os"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	goshp "github.com/jonas-p/go-shp"
)

// sortedNames returns the keys of arrays in sorted order after checking
// that every array has shape (g.Nrow, g.Ncol).
func sortedNames(g *ModelGrid, arrays map[string]*sparse.DenseArray) ([]string, error) {
	names := make([]string, 0, len(arrays))
	for name, a := range arrays {
		if len(a.Shape) != 2 || a.Shape[0] != g.Nrow || a.Shape[1] != g.Ncol {
			return nil, fmt.Errorf("gridprep: array %s has shape %v but the grid is %dx%d",
				name, a.Shape, g.Nrow, g.Ncol)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// WriteArraysNCF writes the given grid arrays to w as netCDF variables with
// dimensions (row, col). The grid definition is stored in the global
// attributes. NaN values are written as the variable fill value.
func WriteArraysNCF(w *os.File, g *ModelGrid, arrays map[string]*sparse.DenseArray) error {
	names, err := sortedNames(g, arrays)
	if err != nil {
		return err
	}
	h := cdf.NewHeader([]string{RowField, ColField}, []int{g.Nrow, g.Ncol})
	h.AddAttribute("", "comment", "gridprep model grid arrays")
	h.AddAttribute("", "nlay", []int32{int32(g.Nlay)})
	for _, a := range []struct {
		name string
		val  float64
	}{
		{"delx", g.DelX}, {"dely", g.DelY},
		{"xul", g.XUL}, {"yul", g.YUL},
		{"xll", g.XLL}, {"yll", g.YLL},
		{"rotation", g.Rotation},
	} {
		h.AddAttribute("", a.name, []float64{a.val})
	}
	h.AddAttribute("", "units", g.Units)
	if len(g.Proj4) > 0 {
		h.AddAttribute("", "proj4", g.Proj4.String())
	}
	for _, name := range names {
		h.AddVariable(name, []string{RowField, ColField}, []float32{0})
		h.AddAttribute(name, "_FillValue", []float32{rasterFillValue})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("gridprep: creating netcdf file: %v", err)
	}
	for _, name := range names {
		if err := writeNCF(f, name, arrays[name]); err != nil {
			return fmt.Errorf("gridprep: writing variable %s: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// WriteArraysShapefile writes the given grid arrays to a polygon shapefile
// at path with one feature per grid cell. Each feature has row and col
// attributes and one attribute per array. Array names are truncated to the
// 10 characters allowed in shapefile field names; names that are the same
// after truncation cause an error. NaN values are written as empty fields.
func WriteArraysShapefile(path string, g *ModelGrid, arrays map[string]*sparse.DenseArray) error {
	names, err := sortedNames(g, arrays)
	if err != nil {
		return err
	}
	fields := []goshp.Field{
		goshp.NumberField(RowField, intLength),
		goshp.NumberField(ColField, intLength),
	}
	used := map[string]string{RowField: RowField, ColField: ColField}
	for _, name := range names {
		short := name
		if len(short) > maxFieldName {
			short = short[:maxFieldName]
		}
		if prev, ok := used[strings.ToLower(short)]; ok {
			return fmt.Errorf("gridprep: shapefile field name %s for array %s is already used by %s",
				short, name, prev)
		}
		used[strings.ToLower(short)] = name
		fields = append(fields, goshp.FloatField(short, floatLength, floatPrecision))
	}

	base := strings.TrimSuffix(path, ".shp")
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("gridprep: creating shapefile: %v", err)
	}
	vals := make([]interface{}, len(fields))
	for r := 0; r < g.Nrow; r++ {
		for c := 0; c < g.Ncol; c++ {
			vals[0], vals[1] = r, c
			for i, name := range names {
				v := arrays[name].Get(r, c)
				if math.IsNaN(v) {
					vals[i+2] = ""
				} else {
					vals[i+2] = v
				}
			}
			if err := e.EncodeFields(g.CellPolygon(r, c), vals...); err != nil {
				e.Close()
				return fmt.Errorf("gridprep: writing shapefile: %v", err)
			}
		}
	}
	e.Close()
	return writePrj(base, g.Proj4)
}
