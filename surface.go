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
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// SurfaceOptions control how a raster surface is sampled onto a grid.
type SurfaceOptions struct {
	// ZoneField is the grid field that defines the zones. If empty,
	// JoinField is used.
	ZoneField string

	// JoinField is the field used to join the zonal statistics back to
	// the grid. If empty, the grid OIDField is used.
	JoinField string

	// RowColFields are the names of the grid fields holding the row and
	// column numbers. Names are matched against field aliases if there is
	// no field with the exact name. Empty names default to RowField and
	// ColField.
	RowColFields [2]string

	// Statistic names the summary statistics to calculate, as accepted by
	// ParseStatistics. If empty, MEAN is used.
	Statistic string

	// FillValue, if not nil, replaces NaN values in the output arrays.
	FillValue *float64

	// CellSize is the raster cell size used for the analysis.
	// If <= 0, the native raster resolution is used.
	CellSize float64

	// Strict causes an error to be returned if the grid features do not
	// cover every row and column exactly once.
	Strict bool

	// Log receives progress messages. If nil, logrus.StandardLogger() is used.
	Log logrus.FieldLogger
}

// DefaultSurfaceOptions returns the default options for ImportSurface.
func DefaultSurfaceOptions() SurfaceOptions {
	return SurfaceOptions{
		JoinField:    CellIDField,
		RowColFields: [2]string{RowField, ColField},
		Statistic:    string(Mean),
		CellSize:     1000,
	}
}

// StatArray holds a grid array of a single summary statistic.
type StatArray struct {
	Statistic Statistic
	Data      *sparse.DenseArray
}

// ImportSurface summarizes the values of surface within each cell of the
// grid and returns one array of shape (nrow, ncol) for each requested
// statistic, in the order the statistics were requested. Grid cells that
// do not overlap any surface data are NaN unless opts.FillValue is set.
func ImportSurface(surface *Raster, grid *Features, nrow, ncol int, opts SurfaceOptions) ([]StatArray, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Statistic == "" {
		opts.Statistic = string(Mean)
	}
	stats, err := ParseStatistics(opts.Statistic)
	if err != nil {
		return nil, err
	}
	if opts.JoinField == "" {
		opts.JoinField = OIDField
	}
	if opts.ZoneField == "" {
		opts.ZoneField = opts.JoinField
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

	r := surface.Resample(opts.CellSize)
	log.WithFields(logrus.Fields{
		"statistic": opts.Statistic,
		"cellsize":  r.Dx,
		"nx":        r.Nx,
		"ny":        r.Ny,
		"zones":     len(grid.Polygons),
	}).Info("gridprep calculating zonal statistics")

	zstat, err := ZonalStatistics(grid, opts.ZoneField, r, stats)
	if err != nil {
		return nil, err
	}
	joined, err := grid.Attributes.Join(zstat, opts.JoinField, opts.ZoneField, true)
	if err != nil {
		return nil, err
	}

	// Statistic fields may be qualified by the join, so they are matched
	// by alias.
	var arrays []StatArray
	for _, f := range joined.Fields() {
		if !strings.HasPrefix(f.Name, zstat.Name+".") || !isStatistic(f.Alias, stats) {
			continue
		}
		a, err := GridToArray(joined, nrow, ncol, opts.RowColFields, f.Name)
		if err != nil {
			return nil, err
		}
		if opts.FillValue != nil {
			FillMissing(a, *opts.FillValue)
		}
		arrays = append(arrays, StatArray{Statistic: Statistic(f.Alias), Data: a})
	}

	log.WithFields(logrus.Fields{
		"statistic": opts.Statistic,
		"matched":   zstat.NumRows(),
		"zones":     len(grid.Polygons),
	}).Info("gridprep finished sampling surface")
	return arrays, nil
}

func isStatistic(name string, stats []Statistic) bool {
	for _, s := range stats {
		if string(s) == name {
			return true
		}
	}
	return false
}

// checkGridCoverage checks that the row and column numbers in t cover
// every cell in an nrow by ncol grid exactly once.
func checkGridCoverage(t *Table, nrow, ncol int, rowColFields [2]string) error {
	rows, err := t.ResolveField(rowColFields[0])
	if err != nil {
		return err
	}
	records, err := t.CellRecords(rowColFields[0], rowColFields[1], rows)
	if err != nil {
		return err
	}
	if err := CheckCoverage(records, nrow, ncol); err != nil {
		return fmt.Errorf("gridprep: grid %s: %w", t.Name, err)
	}
	return nil
}
