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
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistic is a zonal summary statistic. Its value is the name of the
// field that holds it in a zonal statistics table.
type Statistic string

// These are the available statistics.
const (
	Mean     Statistic = "MEAN"
	Majority Statistic = "MAJORITY"
	Maximum  Statistic = "MAX"
	Median   Statistic = "MEDIAN"
	Minimum  Statistic = "MIN"
	Minority Statistic = "MINORITY"
	Range    Statistic = "RANGE"
	Std      Statistic = "STD"
	Sum      Statistic = "SUM"
	Variety  Statistic = "VARIETY"
)

// AllStatistics holds every available statistic.
var AllStatistics = []Statistic{Mean, Majority, Maximum, Median, Minimum, Minority, Range, Std, Sum, Variety}

// Fields in a zonal statistics table other than the zone and statistic fields.
const (
	CountField = "COUNT"
	AreaField  = "AREA"
)

var statisticNames = map[string]Statistic{
	"MEAN":     Mean,
	"MAJORITY": Majority,
	"MAXIMUM":  Maximum,
	"MAX":      Maximum,
	"MEDIAN":   Median,
	"MINIMUM":  Minimum,
	"MIN":      Minimum,
	"MINORITY": Minority,
	"RANGE":    Range,
	"STD":      Std,
	"SUM":      Sum,
	"VARIETY":  Variety,
}

// ParseStatistics parses a list of statistic names. Valid values are
// ALL, MEAN, MAJORITY, MAXIMUM (or MAX), MEDIAN, MINIMUM (or MIN), MINORITY,
// RANGE, STD, SUM, VARIETY, MIN_MAX, MEAN_STD, and MIN_MAX_MEAN, in any case.
func ParseStatistics(s string) ([]Statistic, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "ALL":
		o := make([]Statistic, len(AllStatistics))
		copy(o, AllStatistics)
		return o, nil
	case "MIN_MAX", "MEAN_STD", "MIN_MAX_MEAN":
		var o []Statistic
		for _, part := range strings.Split(s, "_") {
			o = append(o, statisticNames[part])
		}
		return o, nil
	case "MEAN", "MAJORITY", "MAXIMUM", "MAX", "MEDIAN", "MINIMUM", "MIN",
		"MINORITY", "RANGE", "STD", "SUM", "VARIETY":
		return []Statistic{statisticNames[s]}, nil
	}
	return nil, fmt.Errorf("gridprep: statistic '%s' is not valid", s)
}

// ZonalStatistics summarizes the values of raster r within each zone.
// A zone is the set of polygons that share a value of zoneField; polygons
// with a NaN zone value are ignored. A raster cell belongs to a polygon if
// its center is inside or on the edge of it, and cells whose centers fall
// on a shared edge are assigned only to the first such polygon, so that
// each cell is counted in at most one zone. NaN cells are ignored.
// The returned table has the fields zoneField, COUNT, AREA, and one field
// per statistic, with one row per zone in order of first appearance.
// Zones that contain no data are left out of the table.
// If r and zones have different spatial references, the zones are
// projected to the raster's spatial reference first.
func ZonalStatistics(zones *Features, zoneField string, r *Raster, stats []Statistic) (*Table, error) {
	zf, err := zones.Attributes.ResolveField(zoneField)
	if err != nil {
		return nil, err
	}
	ids, _ := zones.Attributes.Column(zf)
	rsr, err := r.SR()
	if err != nil {
		return nil, err
	}
	if zones, err = zones.Transform(rsr); err != nil {
		return nil, err
	}

	// Find the candidate cells of each polygon.
	cells := make([][]int, len(zones.Polygons))
	nprocs := runtime.GOMAXPROCS(-1)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for i := p; i < len(zones.Polygons); i += nprocs {
				if !math.IsNaN(ids[i]) {
					cells[i] = zoneCells(zones.Polygons[i], r)
				}
			}
		}(p)
	}
	wg.Wait()

	// Assign each cell to the first polygon that claims it and group the
	// values by zone.
	owned := make([]bool, len(r.Data.Elements))
	zoneIndex := make(map[float64]int)
	var zoneIDs []float64
	var vals [][]float64
	for i, cc := range cells {
		for _, c := range cc {
			if owned[c] {
				continue
			}
			owned[c] = true
			z, ok := zoneIndex[ids[i]]
			if !ok {
				z = len(zoneIDs)
				zoneIndex[ids[i]] = z
				zoneIDs = append(zoneIDs, ids[i])
				vals = append(vals, nil)
			}
			vals[z] = append(vals[z], r.Data.Elements[c])
		}
	}

	results := make([][]float64, len(vals))
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for z := p; z < len(vals); z += nprocs {
				results[z] = summarize(vals[z], stats)
			}
		}(p)
	}
	wg.Wait()

	counts := make([]float64, len(vals))
	areas := make([]float64, len(vals))
	statCols := make([][]float64, len(stats))
	for j := range statCols {
		statCols[j] = make([]float64, len(vals))
	}
	for z, v := range vals {
		counts[z] = float64(len(v))
		areas[z] = float64(len(v)) * r.Dx * r.Dy
		for j, s := range results[z] {
			statCols[j][z] = s
		}
	}

	t := NewTable("ZonalStats")
	for _, f := range []struct {
		name string
		vals []float64
	}{{zoneField, nonNil(zoneIDs)}, {CountField, counts}, {AreaField, areas}} {
		if err := t.AddField(Field{Name: f.name}, f.vals); err != nil {
			return nil, err
		}
	}
	for j, s := range stats {
		if err := t.AddField(Field{Name: string(s)}, statCols[j]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

// zoneCells returns the indices into r.Data.Elements of the non-NaN
// cells of r whose centers are within zone, in row-major order.
func zoneCells(zone geom.Polygonal, r *Raster) []int {
	b := zone.Bounds()
	i0 := clamp(int(math.Floor((b.Min.X-r.X0)/r.Dx)), 0, r.Nx)
	i1 := clamp(int(math.Ceil((b.Max.X-r.X0)/r.Dx)), 0, r.Nx)
	j0 := clamp(int(math.Floor((b.Min.Y-r.Y0)/r.Dy)), 0, r.Ny)
	j1 := clamp(int(math.Ceil((b.Max.Y-r.Y0)/r.Dy)), 0, r.Ny)
	var o []int
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			k := j*r.Nx + i
			if math.IsNaN(r.Data.Elements[k]) {
				continue
			}
			if r.CellCenter(i, j).Within(zone) == geom.Outside {
				continue
			}
			o = append(o, k)
		}
	}
	return o
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// summarize calculates the requested statistics of vals, which must
// not be empty.
func summarize(vals []float64, stats []Statistic) []float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	o := make([]float64, len(stats))
	for i, s := range stats {
		switch s {
		case Mean:
			o[i] = stat.Mean(vals, nil)
		case Maximum:
			o[i] = floats.Max(vals)
		case Minimum:
			o[i] = floats.Min(vals)
		case Range:
			o[i] = floats.Max(vals) - floats.Min(vals)
		case Sum:
			o[i] = floats.Sum(vals)
		case Std:
			o[i] = popStdDev(vals)
		case Median:
			o[i] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		case Majority:
			o[i] = mode(sorted, true)
		case Minority:
			o[i] = mode(sorted, false)
		case Variety:
			o[i] = float64(len(distinct(sorted)))
		default:
			panic(fmt.Errorf("gridprep: invalid statistic %s", s))
		}
	}
	return o
}

// popStdDev returns the population standard deviation of x.
func popStdDev(x []float64) float64 {
	n := float64(len(x))
	if n < 2 {
		return 0
	}
	_, variance := stat.MeanVariance(x, nil)
	return math.Sqrt(variance * (n - 1) / n)
}

type valueCount struct {
	val   float64
	count int
}

// distinct returns the unique values in sorted and the number of times
// each occurs.
func distinct(sorted []float64) []valueCount {
	var o []valueCount
	for _, v := range sorted {
		if len(o) > 0 && o[len(o)-1].val == v {
			o[len(o)-1].count++
			continue
		}
		o = append(o, valueCount{val: v, count: 1})
	}
	return o
}

// mode returns the most (most == true) or least frequent value in sorted.
// Ties go to the smallest value.
func mode(sorted []float64, most bool) float64 {
	counts := distinct(sorted)
	best := counts[0]
	for _, c := range counts[1:] {
		if (most && c.count > best.count) || (!most && c.count < best.count) {
			best = c
		}
	}
	return best.val
}
