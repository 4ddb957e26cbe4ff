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
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// VectorMethod specifies how polygon attribute values are allocated to
// grid cells.
type VectorMethod int

const (
	// VectorAreaWeighted sets each cell to the mean of the values of the
	// overlapping features, weighted by the overlapping area.
	VectorAreaWeighted VectorMethod = iota

	// VectorMajority sets each cell to the value of the feature that overlaps
	// the largest part of it.
	VectorMajority

	// VectorSum allocates each feature's value to the cells it overlaps in
	// proportion to the fraction of the feature area inside each cell,
	// so the total of the field is conserved.
	VectorSum
)

func (m VectorMethod) String() string {
	switch m {
	case VectorAreaWeighted:
		return "AREA_WEIGHTED"
	case VectorMajority:
		return "MAJORITY"
	case VectorSum:
		return "SUM"
	default:
		return fmt.Sprintf("VectorMethod(%d)", int(m))
	}
}

// ParseVectorMethod returns the method with the given name, in any case.
func ParseVectorMethod(s string) (VectorMethod, error) {
	for _, m := range []VectorMethod{VectorAreaWeighted, VectorMajority, VectorSum} {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("gridprep: invalid vector method '%s'; valid options are AREA_WEIGHTED, MAJORITY, and SUM", s)
}

// VectorOptions control how a polygon layer is allocated to a grid.
type VectorOptions struct {
	Method VectorMethod

	// RowColFields are the names of the grid fields holding the row and
	// column numbers. Empty names default to RowField and ColField.
	RowColFields [2]string

	// FillValue, if not nil, replaces NaN values in the output array.
	FillValue *float64

	// Strict causes an error to be returned if the grid features do not
	// cover every row and column exactly once.
	Strict bool

	// Log receives progress messages. If nil, logrus.StandardLogger() is used.
	Log logrus.FieldLogger
}

// layerFeature is a polygon in a vector layer with its attribute value.
type layerFeature struct {
	geom.Polygonal
	val, area float64
}

// ImportVector allocates the values of field in the polygons of layer to
// the cells of grid and returns an array of shape (nrow, ncol). Cells that
// do not overlap any feature with a value are NaN unless opts.FillValue is
// set. The layer is projected to the grid's spatial reference if they
// differ.
func ImportVector(layer *Features, field string, grid *Features, nrow, ncol int, opts VectorOptions) (*sparse.DenseArray, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.RowColFields[0] == "" {
		opts.RowColFields[0] = RowField
	}
	if opts.RowColFields[1] == "" {
		opts.RowColFields[1] = ColField
	}
	if opts.Strict {
		if err := checkGridCoverage(grid.Attributes, nrow, ncol, opts.RowColFields); err != nil {
			return nil, err
		}
	}
	vf, err := layer.Attributes.ResolveField(field)
	if err != nil {
		return nil, err
	}
	vals, _ := layer.Attributes.Column(vf)
	layer, err = layer.Transform(grid.SR)
	if err != nil {
		return nil, err
	}

	index := rtree.NewTree(25, 50)
	for i, p := range layer.Polygons {
		if math.IsNaN(vals[i]) {
			continue
		}
		index.Insert(&layerFeature{Polygonal: p, val: vals[i], area: p.Area()})
	}
	log.WithFields(logrus.Fields{
		"field":    field,
		"method":   opts.Method.String(),
		"features": len(layer.Polygons),
		"cells":    len(grid.Polygons),
	}).Info("gridprep allocating vector layer to grid")

	cellVals := make([]float64, len(grid.Polygons))
	nprocs := runtime.GOMAXPROCS(-1)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for i := p; i < len(grid.Polygons); i += nprocs {
				cellVals[i] = allocate(grid.Polygons[i], index, opts.Method)
			}
		}(p)
	}
	wg.Wait()

	records, err := grid.Attributes.CellRecords(opts.RowColFields[0], opts.RowColFields[1], opts.RowColFields[0])
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Val = cellVals[i]
	}
	a, err := BuildGrid(records, nrow, ncol)
	if err != nil {
		return nil, err
	}
	if opts.FillValue != nil {
		FillMissing(a, *opts.FillValue)
	}
	return a, nil
}

// allocate calculates the value of a single grid cell.
func allocate(cell geom.Polygonal, index *rtree.Rtree, method VectorMethod) float64 {
	var num, den float64
	best, bestArea := math.NaN(), 0.
	found := false
	for _, fI := range index.SearchIntersect(cell.Bounds()) {
		f := fI.(*layerFeature)
		a := cell.Intersection(f).Area()
		if a == 0 {
			continue
		}
		found = true
		switch method {
		case VectorAreaWeighted:
			num += f.val * a
			den += a
		case VectorMajority:
			if a > bestArea || (a == bestArea && f.val < best) {
				best, bestArea = f.val, a
			}
		case VectorSum:
			if f.area == 0 {
				continue
			}
			num += f.val * a / f.area
		default:
			panic(fmt.Errorf("gridprep: invalid vector method %v", method))
		}
	}
	if !found {
		return math.NaN()
	}
	switch method {
	case VectorAreaWeighted:
		return num / den
	case VectorMajority:
		return best
	default:
		return num
	}
}
