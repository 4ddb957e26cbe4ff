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
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
)

// Attribute field names in grid feature tables.
const (
	CellIDField = "cell_id"
	RowField    = "row"
	ColField    = "col"
)

// ModelGrid holds the definition of a regular, structured model grid.
// Row 0 is the northern-most row and column 0 is the western-most column
// of the unrotated grid.
type ModelGrid struct {
	// Nlay, Nrow, and Ncol are the number of layers, rows, and columns
	// in the grid.
	Nlay int `toml:"nlay"`
	Nrow int `toml:"nrow"`
	Ncol int `toml:"ncol"`

	// DelX and DelY are the cell widths along rows and columns,
	// in the grid length units.
	DelX float64 `toml:"delx"`
	DelY float64 `toml:"dely"`

	// XUL and YUL are the coordinates of the upper-left grid corner.
	XUL float64 `toml:"xul"`
	YUL float64 `toml:"yul"`

	// XLL and YLL are the coordinates of the lower-left grid corner.
	// They must be consistent with the upper-left corner, the number of
	// rows, the row spacing, and the rotation.
	XLL float64 `toml:"xll"`
	YLL float64 `toml:"yll"`

	// Units are the grid length units, either "feet" or "meters".
	Units string `toml:"units"`

	// Rotation is the counter-clockwise grid rotation about the upper-left
	// corner, in degrees.
	Rotation float64 `toml:"rotation"`

	// Proj4 holds the grid projection parameters.
	Proj4 Proj4Params `toml:"proj4"`
}

// DefaultModelGrid returns the grid used by the tutorial model.
func DefaultModelGrid() *ModelGrid {
	return &ModelGrid{
		Nlay:     1,
		Nrow:     275,
		Ncol:     182,
		DelX:     2500,
		DelY:     2500,
		XUL:      999987.84,
		YUL:      10817376.82,
		XLL:      999987.84,
		YLL:      10129876.82,
		Units:    "feet",
		Rotation: 0,
		Proj4: Proj4Params{
			{Key: "proj", Value: "utm"},
			{Key: "zone", Value: "17 +north"},
			{Key: "ellps", Value: "GRS80"},
			{Key: "towgs84", Value: "0,0,0,0,0,0,0"},
			{Key: "units", Value: "ft"},
			{Key: "no_defs", Value: ""},
		},
	}
}

// ReadModelGrid reads a TOML-formatted grid definition.
func ReadModelGrid(r io.Reader) (*ModelGrid, error) {
	g := new(ModelGrid)
	if _, err := toml.DecodeReader(r, g); err != nil {
		return nil, fmt.Errorf("gridprep: reading grid definition: %v", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Write writes the grid definition to w in TOML format.
func (g *ModelGrid) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(g); err != nil {
		return fmt.Errorf("gridprep: writing grid definition: %v", err)
	}
	return nil
}

// Validate checks that the grid definition is internally consistent.
func (g *ModelGrid) Validate() error {
	ints := []int{g.Nlay, g.Nrow, g.Ncol}
	for i, name := range []string{"nlay", "nrow", "ncol"} {
		if ints[i] <= 0 {
			return fmt.Errorf("gridprep: invalid grid: %s=%d but should be >0", name, ints[i])
		}
	}
	floats := []float64{g.DelX, g.DelY}
	for i, name := range []string{"delx", "dely"} {
		if !(floats[i] > 0) {
			return fmt.Errorf("gridprep: invalid grid: %s=%g but should be >0", name, floats[i])
		}
	}
	switch strings.ToLower(g.Units) {
	case "feet", "meters":
	default:
		return fmt.Errorf("gridprep: invalid grid units '%s'; valid options are feet and meters", g.Units)
	}
	x, y := g.LowerLeft()
	tol := 1e-6 * g.DelY
	if math.Abs(x-g.XLL) > tol || math.Abs(y-g.YLL) > tol {
		return fmt.Errorf("gridprep: lower-left corner (%g, %g) is inconsistent with the "+
			"upper-left corner, nrow, dely, and rotation, which give (%g, %g)", g.XLL, g.YLL, x, y)
	}
	if len(g.Proj4) > 0 {
		if _, err := g.SR(); err != nil {
			return err
		}
	}
	return nil
}

// rotate rotates the offset (dx, dy) from the upper-left corner by the grid
// rotation and returns the resulting coordinates.
func (g *ModelGrid) rotate(dx, dy float64) (x, y float64) {
	theta := g.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)
	return g.XUL + dx*cos - dy*sin, g.YUL + dx*sin + dy*cos
}

// LowerLeft returns the lower-left grid corner computed from the
// upper-left corner.
func (g *ModelGrid) LowerLeft() (x, y float64) {
	return g.rotate(0, -float64(g.Nrow)*g.DelY)
}

// CellPolygon returns the outline of the cell at the given row and column.
func (g *ModelGrid) CellPolygon(row, col int) geom.Polygon {
	l, r := float64(col)*g.DelX, float64(col+1)*g.DelX
	u, b := -float64(row)*g.DelY, -float64(row+1)*g.DelY
	corners := [][2]float64{{l, b}, {r, b}, {r, u}, {l, u}, {l, b}}
	ring := make([]geom.Point, len(corners))
	for i, c := range corners {
		ring[i].X, ring[i].Y = g.rotate(c[0], c[1])
	}
	// Polygon must go counter-clockwise
	return geom.Polygon{ring}
}

// CellCenter returns the center point of the cell at the given row and column.
func (g *ModelGrid) CellCenter(row, col int) geom.Point {
	x, y := g.rotate((float64(col)+0.5)*g.DelX, -(float64(row)+0.5)*g.DelY)
	return geom.Point{X: x, Y: y}
}

// CellID returns the 1-based identifier of the cell at the given row
// and column, numbered in row-major order.
func (g *ModelGrid) CellID(row, col int) int { return row*g.Ncol + col + 1 }

// SR returns the grid spatial reference. It returns nil without an error
// if no projection is specified.
func (g *ModelGrid) SR() (*proj.SR, error) {
	if len(g.Proj4) == 0 {
		return nil, nil
	}
	return g.Proj4.SR()
}

// Features returns the grid cells as polygon features with cell_id,
// row, and col attributes, in row-major order.
func (g *ModelGrid) Features() (*Features, error) {
	sr, err := g.SR()
	if err != nil {
		return nil, err
	}
	n := g.Nrow * g.Ncol
	f := &Features{
		Polygons:   make([]geom.Polygonal, n),
		Attributes: NewTable("grid"),
		SR:         sr,
	}
	fid, ids, rows, cols := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for r := 0; r < g.Nrow; r++ {
		for c := 0; c < g.Ncol; c++ {
			i := r*g.Ncol + c
			f.Polygons[i] = g.CellPolygon(r, c)
			fid[i] = float64(i + 1)
			ids[i] = float64(g.CellID(r, c))
			rows[i] = float64(r)
			cols[i] = float64(c)
		}
	}
	for _, fld := range []struct {
		name string
		vals []float64
	}{{OIDField, fid}, {CellIDField, ids}, {RowField, rows}, {ColField, cols}} {
		if err := f.Attributes.AddField(Field{Name: fld.name}, fld.vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteShapefile writes the grid cells to a polygon shapefile at path,
// with cell_id, row, and col attributes. If the grid has a projection,
// it is written to the corresponding .prj file.
func (g *ModelGrid) WriteShapefile(path string) error {
	base := strings.TrimSuffix(path, ".shp")
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON,
		goshp.NumberField(CellIDField, intLength),
		goshp.NumberField(RowField, intLength),
		goshp.NumberField(ColField, intLength))
	if err != nil {
		return fmt.Errorf("gridprep: creating grid shapefile: %v", err)
	}
	for r := 0; r < g.Nrow; r++ {
		for c := 0; c < g.Ncol; c++ {
			if err := e.EncodeFields(g.CellPolygon(r, c), g.CellID(r, c), r, c); err != nil {
				e.Close()
				return fmt.Errorf("gridprep: writing grid shapefile: %v", err)
			}
		}
	}
	e.Close()
	return writePrj(base, g.Proj4)
}

// writePrj writes the projection p to the .prj file that goes with
// the shapefile with the given base name.
func writePrj(base string, p Proj4Params) error {
	if len(p) == 0 {
		return nil
	}
	f, err := os.Create(base + ".prj")
	if err != nil {
		return fmt.Errorf("gridprep: creating prj file: %v", err)
	}
	if _, err := fmt.Fprint(f, p.String()); err != nil {
		f.Close()
		return fmt.Errorf("gridprep: writing prj file: %v", err)
	}
	return f.Close()
}
