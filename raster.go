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

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// rasterFillValue is the no-data value written to netCDF raster files.
const rasterFillValue = -9999

// Raster is a regular grid of values, such as a land surface elevation
// model. Row 0 of Data is the southern-most row. Missing values are NaN.
type Raster struct {
	// X0 and Y0 are the coordinates of the lower-left corner.
	X0, Y0 float64

	// Dx and Dy are the cell edge lengths.
	Dx, Dy float64

	// Nx and Ny are the number of columns and rows.
	Nx, Ny int

	// Data has shape [Ny, Nx].
	Data *sparse.DenseArray

	// Proj4 is the projection of the raster. It may be empty if the
	// projection is unknown.
	Proj4 string
}

// NewRaster creates a new raster filled with NaN.
func NewRaster(x0, y0, dx, dy float64, nx, ny int) *Raster {
	r := &Raster{X0: x0, Y0: y0, Dx: dx, Dy: dy, Nx: nx, Ny: ny, Data: sparse.ZerosDense(ny, nx)}
	for i := range r.Data.Elements {
		r.Data.Elements[i] = math.NaN()
	}
	return r
}

// SR returns the raster spatial reference, or nil if it is unknown.
func (r *Raster) SR() (*proj.SR, error) {
	if r.Proj4 == "" {
		return nil, nil
	}
	return ParseProj4(r.Proj4)
}

// Value returns the value of the cell containing point (x, y), or NaN if
// the point is outside the raster.
func (r *Raster) Value(x, y float64) float64 {
	i := int(math.Floor((x - r.X0) / r.Dx))
	j := int(math.Floor((y - r.Y0) / r.Dy))
	if i < 0 || i >= r.Nx || j < 0 || j >= r.Ny {
		return math.NaN()
	}
	return r.Data.Get(j, i)
}

// CellCenter returns the center of the cell in column i and row j.
func (r *Raster) CellCenter(i, j int) geom.Point {
	return geom.Point{
		X: r.X0 + (float64(i)+0.5)*r.Dx,
		Y: r.Y0 + (float64(j)+0.5)*r.Dy,
	}
}

// Bounds returns the extent of r.
func (r *Raster) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.X0, Y: r.Y0},
		Max: geom.Point{X: r.X0 + float64(r.Nx)*r.Dx, Y: r.Y0 + float64(r.Ny)*r.Dy},
	}
}

// Resample returns a copy of r with square cells of the given size,
// using nearest-neighbor sampling. If cellSize <= 0 or already matches
// the cell size of r, r is returned.
func (r *Raster) Resample(cellSize float64) *Raster {
	if !(cellSize > 0) || (cellSize == r.Dx && cellSize == r.Dy) {
		return r
	}
	nx := int(math.Ceil(float64(r.Nx) * r.Dx / cellSize))
	ny := int(math.Ceil(float64(r.Ny) * r.Dy / cellSize))
	o := NewRaster(r.X0, r.Y0, cellSize, cellSize, nx, ny)
	o.Proj4 = r.Proj4
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := o.CellCenter(i, j)
			// DenseArray.Set ignores zeros, which would leave them NaN.
			o.Data.Elements[j*nx+i] = r.Value(c.X, c.Y)
		}
	}
	return o
}

// ReadRasterNCF reads the given variable from a netCDF file. The file must
// have the global attributes x0, y0, dx, and dy, and the variable must
// have dimensions (y, x). An optional global "proj4" attribute holds the
// projection. Values equal to the variable's _FillValue are set to NaN.
func ReadRasterNCF(rw cdf.ReaderWriterAt, variable string) (*Raster, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("gridprep: opening raster file: %v", err)
	}
	dims := f.Header.Lengths(variable)
	if len(dims) != 2 {
		return nil, fmt.Errorf("gridprep: raster variable %s should have 2 dimensions but has %d",
			variable, len(dims))
	}
	r := &Raster{Ny: dims[0], Nx: dims[1]}
	attrs := []*float64{&r.X0, &r.Y0, &r.Dx, &r.Dy}
	for i, name := range []string{"x0", "y0", "dx", "dy"} {
		v, err := float64Attribute(f.Header, "", name)
		if err != nil {
			return nil, err
		}
		*attrs[i] = v
	}
	if p, ok := f.Header.GetAttribute("", "proj4").(string); ok {
		r.Proj4 = p
	}

	rd := f.Reader(variable, nil, nil)
	buf := f.Header.ZeroValue(variable, r.Nx*r.Ny)
	if _, err := rd.Read(buf); err != nil {
		return nil, fmt.Errorf("gridprep: reading raster variable %s: %v", variable, err)
	}
	r.Data = sparse.ZerosDense(r.Ny, r.Nx)
	switch data := buf.(type) {
	case []float32:
		for i, v := range data {
			r.Data.Elements[i] = float64(v)
		}
	case []float64:
		copy(r.Data.Elements, data)
	default:
		return nil, fmt.Errorf("gridprep: raster variable %s has unsupported type %T", variable, buf)
	}
	if f.Header.GetAttribute(variable, "_FillValue") != nil {
		fill, err := float64Attribute(f.Header, variable, "_FillValue")
		if err != nil {
			return nil, err
		}
		for i, v := range r.Data.Elements {
			if v == fill {
				r.Data.Elements[i] = math.NaN()
			}
		}
	}
	return r, nil
}

func float64Attribute(h *cdf.Header, variable, name string) (float64, error) {
	switch v := h.GetAttribute(variable, name).(type) {
	case []float64:
		return v[0], nil
	case []float32:
		return float64(v[0]), nil
	case []int32:
		return float64(v[0]), nil
	case nil:
		return math.NaN(), fmt.Errorf("gridprep: raster file is missing attribute %s", name)
	default:
		return math.NaN(), fmt.Errorf("gridprep: raster attribute %s has invalid type %T", name, v)
	}
}

// WriteNCF writes r to w as a netCDF file holding a single variable
// with the given name.
func (r *Raster) WriteNCF(w *os.File, variable string) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{r.Ny, r.Nx})
	h.AddAttribute("", "comment", "gridprep raster surface")
	h.AddAttribute("", "x0", []float64{r.X0})
	h.AddAttribute("", "y0", []float64{r.Y0})
	h.AddAttribute("", "dx", []float64{r.Dx})
	h.AddAttribute("", "dy", []float64{r.Dy})
	if r.Proj4 != "" {
		h.AddAttribute("", "proj4", r.Proj4)
	}
	h.AddVariable(variable, []string{"y", "x"}, []float32{0})
	h.AddAttribute(variable, "_FillValue", []float32{rasterFillValue})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("gridprep: creating raster file: %v", err)
	}
	if err := writeNCF(f, variable, r.Data); err != nil {
		return fmt.Errorf("gridprep: writing raster variable %s: %v", variable, err)
	}
	return cdf.UpdateNumRecs(w)
}

// writeNCF writes data to variable v in f, replacing NaN with the
// variable fill value.
func writeNCF(f *cdf.File, v string, data *sparse.DenseArray) error {
	n := 1
	for _, l := range data.Shape {
		n *= l
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		if math.IsNaN(e) {
			data32[i] = rasterFillValue
		} else {
			data32[i] = float32(e)
		}
	}
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	_, err := w.Write(data32)
	return err
}
