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

package gridpreputil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridprep"
)

// Grid writes the cells of g to the given shapefile and the grid
// definition to definitionFile in TOML format. Either path may be empty,
// in which case that file is not written. Paths may refer to blob storage.
func Grid(ctx context.Context, g *gridprep.ModelGrid, shapefile, definitionFile string, log logrus.FieldLogger) error {
	upload := uploader{log: log}
	if shapefile != "" {
		if err := g.WriteShapefile(upload.maybeUpload(shapefile)); err != nil {
			return err
		}
		log.WithField("file", shapefile).Info("gridprep wrote grid shapefile")
	}
	if definitionFile != "" {
		w, err := os.Create(upload.maybeUpload(definitionFile))
		if err != nil {
			return fmt.Errorf("gridpreputil: creating grid definition file: %v", err)
		}
		if err := g.Write(w); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("gridpreputil: closing grid definition file: %v", err)
		}
		log.WithField("file", definitionFile).Info("gridprep wrote grid definition")
	}
	return upload.uploadOutput(ctx)
}

// gridFeatures returns the cells of g as features. If gridShapefile is not
// empty, the cells are read from it instead, together with the given
// attribute fields.
func gridFeatures(ctx context.Context, g *gridprep.ModelGrid, gridShapefile string, fields []string, log logrus.FieldLogger) (*gridprep.Features, error) {
	if gridShapefile == "" {
		return g.Features()
	}
	path, err := maybeDownload(ctx, os.ExpandEnv(gridShapefile), log)
	if err != nil {
		return nil, err
	}
	var read []string
	seen := map[string]bool{gridprep.OIDField: true, "": true}
	for _, f := range fields {
		if !seen[f] {
			read = append(read, f)
			seen[f] = true
		}
	}
	return gridprep.ReadFeatures(path, read...)
}

// Surface samples the given variable of a netCDF raster surface file onto
// the model grid and writes one array per statistic to outputFile.
// If gridShapefile is not empty, the grid cells are read from it.
func Surface(ctx context.Context, g *gridprep.ModelGrid, gridShapefile, surfaceFile, variable string,
	opts gridprep.SurfaceOptions, outputFile string, log logrus.FieldLogger) error {

	opts.Log = log
	grid, err := gridFeatures(ctx, g, gridShapefile,
		[]string{opts.JoinField, opts.ZoneField, opts.RowColFields[0], opts.RowColFields[1]}, log)
	if err != nil {
		return err
	}
	path, err := maybeDownload(ctx, os.ExpandEnv(surfaceFile), log)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gridpreputil: opening surface file: %v", err)
	}
	defer f.Close()
	r, err := gridprep.ReadRasterNCF(f, variable)
	if err != nil {
		return err
	}
	stats, err := gridprep.ImportSurface(r, grid, g.Nrow, g.Ncol, opts)
	if err != nil {
		return err
	}
	arrays := make(map[string]*sparse.DenseArray, len(stats))
	for _, s := range stats {
		arrays[string(s.Statistic)] = s.Data
	}
	return writeArrays(ctx, outputFile, g, arrays, log)
}

// Vector allocates the given field of a polygon shapefile to the model grid
// and writes the resulting array to outputFile.
// If gridShapefile is not empty, the grid cells are read from it.
func Vector(ctx context.Context, g *gridprep.ModelGrid, gridShapefile, vectorFile, field string,
	opts gridprep.VectorOptions, outputFile string, log logrus.FieldLogger) error {

	opts.Log = log
	grid, err := gridFeatures(ctx, g, gridShapefile, opts.RowColFields[:], log)
	if err != nil {
		return err
	}
	path, err := maybeDownload(ctx, os.ExpandEnv(vectorFile), log)
	if err != nil {
		return err
	}
	layer, err := gridprep.ReadFeatures(path, field)
	if err != nil {
		return err
	}
	a, err := gridprep.ImportVector(layer, field, grid, g.Nrow, g.Ncol, opts)
	if err != nil {
		return err
	}
	return writeArrays(ctx, outputFile, g, map[string]*sparse.DenseArray{field: a}, log)
}

// writeArrays writes the arrays to a netCDF file or shapefile depending on
// the extension of path, uploading the result if path refers to blob storage.
func writeArrays(ctx context.Context, path string, g *gridprep.ModelGrid, arrays map[string]*sparse.DenseArray, log logrus.FieldLogger) error {
	upload := uploader{log: log}
	local := upload.maybeUpload(path)
	if upload.err != nil {
		return fmt.Errorf("gridpreputil: staging output file: %v", upload.err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		if err := gridprep.WriteArraysShapefile(local, g, arrays); err != nil {
			return err
		}
	case ".nc", ".ncf":
		w, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("gridpreputil: creating output file: %v", err)
		}
		if err := gridprep.WriteArraysNCF(w, g, arrays); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("gridpreputil: closing output file: %v", err)
		}
	default:
		return fmt.Errorf("gridpreputil: unsupported output file type '%s'", filepath.Ext(path))
	}
	log.WithFields(logrus.Fields{
		"file":   path,
		"arrays": len(arrays),
	}).Info("gridprep wrote output")
	return upload.uploadOutput(ctx)
}
