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

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridprep"
	"github.com/spf13/cast"
)

// ModelGridConfig returns the model grid described by cfg. If Grid.Config
// is set, the grid is read from that TOML file; otherwise it is assembled
// from the individual Grid.* options. The lower-left corner is always
// calculated from the upper-left corner.
func ModelGridConfig(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) (*gridprep.ModelGrid, error) {
	if path := os.ExpandEnv(cfg.GetString("Grid.Config")); path != "" {
		path, err := maybeDownload(ctx, path, log)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("gridpreputil: opening grid definition: %v", err)
		}
		defer f.Close()
		return gridprep.ReadModelGrid(f)
	}
	g := &gridprep.ModelGrid{
		Nlay:     cfg.GetInt("Grid.Nlay"),
		Nrow:     cfg.GetInt("Grid.Nrow"),
		Ncol:     cfg.GetInt("Grid.Ncol"),
		DelX:     cfg.GetFloat64("Grid.DelX"),
		DelY:     cfg.GetFloat64("Grid.DelY"),
		XUL:      cfg.GetFloat64("Grid.XUL"),
		YUL:      cfg.GetFloat64("Grid.YUL"),
		Units:    cfg.GetString("Grid.Units"),
		Rotation: cfg.GetFloat64("Grid.Rotation"),
	}
	p, err := gridprep.ParseProj4Params(strings.Fields(cfg.GetString("Grid.Proj4")))
	if err != nil {
		return nil, err
	}
	if len(p) > 0 {
		g.Proj4 = p
	}
	g.XLL, g.YLL = g.LowerLeft()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// optionalFloat converts a configuration value to a float pointer.
// Empty values return nil.
func optionalFloat(cfg *viper.Viper, name string) (*float64, error) {
	v := cfg.Get(name)
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("gridpreputil: reading %s: %v", name, err)
	}
	return &f, nil
}

// rowColFields returns the row and column field names from cfg.
func rowColFields(cfg *viper.Viper) ([2]string, error) {
	s, err := cast.ToStringSliceE(cfg.Get("RowColFields"))
	if err != nil {
		return [2]string{}, fmt.Errorf("gridpreputil: reading RowColFields: %v", err)
	}
	if len(s) != 2 {
		return [2]string{}, fmt.Errorf("gridpreputil: RowColFields must have 2 values but has %d", len(s))
	}
	return [2]string{s[0], s[1]}, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(ctx context.Context, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`gridpreputil: you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	switch strings.ToLower(filepath.Ext(f)) {
	case ".nc", ".ncf", ".shp":
	default:
		return f, fmt.Errorf("gridpreputil: OutputFile '%s' must have a .nc, .ncf, or .shp extension", f)
	}
	if IsBlob(f) {
		bucket, _, err := splitBlob(f)
		if err != nil {
			return f, err
		}
		if _, err = OpenBucket(ctx, bucket); err != nil {
			return f, fmt.Errorf("gridpreputil: checking OutputFile location: %v", err)
		}
		return f, nil
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("gridpreputil: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}
