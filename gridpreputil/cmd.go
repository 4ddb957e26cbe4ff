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

// Package gridpreputil contains the command-line interface to gridprep.
package gridpreputil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridprep"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log receives log messages from the commands.
var Log = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	def := gridprep.DefaultModelGrid()
	surfaceDef := gridprep.DefaultSurfaceOptions()
	gridFlags := []*pflag.FlagSet{Root.PersistentFlags()}

	// Options are the configuration options available to gridprep.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose specifies whether to print debugging messages.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Grid.Config",
			usage: `
              Grid.Config is the path to a TOML grid definition file, as
              written by the grid command. If it is set, the other Grid
              options (except for Grid.Shapefile and Grid.DefinitionFile)
              are ignored. It may be a URL or blob storage location.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Nlay",
			usage: `
              Grid.Nlay is the number of model layers.`,
			defaultVal: def.Nlay,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Nrow",
			usage: `
              Grid.Nrow is the number of model rows.`,
			defaultVal: def.Nrow,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Ncol",
			usage: `
              Grid.Ncol is the number of model columns.`,
			defaultVal: def.Ncol,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.DelX",
			usage: `
              Grid.DelX is the cell width along rows, in Grid.Units.`,
			defaultVal: def.DelX,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.DelY",
			usage: `
              Grid.DelY is the cell width along columns, in Grid.Units.`,
			defaultVal: def.DelY,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.XUL",
			usage: `
              Grid.XUL is the x coordinate of the upper-left grid corner.`,
			defaultVal: def.XUL,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.YUL",
			usage: `
              Grid.YUL is the y coordinate of the upper-left grid corner.`,
			defaultVal: def.YUL,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Units",
			usage: `
              Grid.Units are the grid length units, either feet or meters.`,
			defaultVal: def.Units,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Rotation",
			usage: `
              Grid.Rotation is the counter-clockwise rotation of the grid
              about its upper-left corner, in degrees.`,
			defaultVal: def.Rotation,
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Proj4",
			usage: `
              Grid.Proj4 is the proj4 projection of the grid coordinates.`,
			defaultVal: def.Proj4.String(),
			flagsets:   gridFlags,
		},
		{
			name: "Grid.Shapefile",
			usage: `
              Grid.Shapefile is the path of the grid cell shapefile. The grid
              command writes it, and the surface and vector commands read it
              when Surface.GridShapefile or Vector.GridShapefile are set.`,
			defaultVal: "grid.shp",
			flagsets:   gridFlags,
		},
		{
			name: "Grid.DefinitionFile",
			usage: `
              Grid.DefinitionFile is the path where the grid command writes
              the TOML grid definition. If it is empty, no definition is written.`,
			defaultVal: "grid.toml",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Surface.File",
			usage: `
              Surface.File is the netCDF raster surface to sample onto the
              grid. It must have x0, y0, dx, and dy global attributes.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.Variable",
			usage: `
              Surface.Variable is the name of the variable in Surface.File
              to sample.`,
			defaultVal: "elevation",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.Statistic",
			usage: `
              Surface.Statistic is the zonal statistic to calculate. Valid options
              are ALL, MEAN, MAJORITY, MAXIMUM, MEDIAN, MINIMUM, MINORITY,
              RANGE, STD, SUM, VARIETY, MIN_MAX, MEAN_STD, and MIN_MAX_MEAN.`,
			defaultVal: surfaceDef.Statistic,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.CellSize",
			usage: `
              Surface.CellSize is the raster cell size for the analysis. Values
              <= 0 use the native resolution of the surface.`,
			defaultVal: surfaceDef.CellSize,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.JoinField",
			usage: `
              Surface.JoinField is the grid field used to join the zonal
              statistics back to the grid. If empty, the feature index is used.`,
			defaultVal: surfaceDef.JoinField,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.ZoneField",
			usage: `
              Surface.ZoneField is the grid field that defines the zones. If
              empty, Surface.JoinField is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.FillValue",
			usage: `
              Surface.FillValue, if set, replaces missing values in the output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.GridShapefile",
			usage: `
              Surface.GridShapefile specifies whether to read the grid cells
              from Grid.Shapefile instead of generating them.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Vector.File",
			usage: `
              Vector.File is the polygon shapefile to allocate to the grid.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{vectorCmd.Flags()},
		},
		{
			name: "Vector.Field",
			usage: `
              Vector.Field is the numeric attribute of Vector.File to allocate.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{vectorCmd.Flags()},
		},
		{
			name: "Vector.Method",
			usage: `
              Vector.Method is the allocation method: AREA_WEIGHTED, MAJORITY,
              or SUM.`,
			defaultVal: gridprep.VectorAreaWeighted.String(),
			flagsets:   []*pflag.FlagSet{vectorCmd.Flags()},
		},
		{
			name: "Vector.FillValue",
			usage: `
              Vector.FillValue, if set, replaces missing values in the output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{vectorCmd.Flags()},
		},
		{
			name: "Vector.GridShapefile",
			usage: `
              Vector.GridShapefile specifies whether to read the grid cells
              from Grid.Shapefile instead of generating them.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{vectorCmd.Flags()},
		},
		{
			name: "RowColFields",
			usage: `
              RowColFields are the names of the grid fields holding the row
              and column numbers.`,
			defaultVal: []string{gridprep.RowField, gridprep.ColField},
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags(), vectorCmd.Flags()},
		},
		{
			name: "Strict",
			usage: `
              Strict specifies whether to check that the grid features cover
              every row and column exactly once.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags(), vectorCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the output file. Files ending in .nc or
              .ncf are written as netCDF and files ending in .shp are written as
              shapefiles. It may be a blob storage location.`,
			defaultVal: "output.nc",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags(), vectorCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDPREP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(proj4Cmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(surfaceCmd)
	Root.AddCommand(vectorCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	Cfg.AutomaticEnv()
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridpreputil: problem reading configuration file: %v", err)
		}
	}
	Log.Out = os.Stderr
	Log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if Cfg.GetBool("verbose") {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridprep",
	Short: "Prepare inputs for structured-grid groundwater models.",
	Long: `gridprep defines structured model grids and samples raster surfaces and
polygon layers onto them, producing arrays laid out by model row and column.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDPREP_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
	SilenceErrors:     true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gridprep.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gridprep v%s\n", gridprep.Version)
	},
	DisableAutoGenTag: true,
}

var proj4Cmd = &cobra.Command{
	Use:   "proj4",
	Short: "Print the grid projection",
	Long:  "proj4 prints the proj4 projection string of the configured grid.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := ModelGridConfig(context.Background(), Cfg, Log)
		if err != nil {
			return err
		}
		cmd.Println(g.Proj4.String())
		return nil
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that creates the grid shapefile and definition file.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Create the model grid",
	Long: `grid validates the grid specified by the configuration, writes the grid
cells to the shapefile at Grid.Shapefile, and writes the grid definition
to Grid.DefinitionFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		g, err := ModelGridConfig(ctx, Cfg, Log)
		if err != nil {
			return err
		}
		return Grid(ctx, g,
			os.ExpandEnv(Cfg.GetString("Grid.Shapefile")),
			os.ExpandEnv(Cfg.GetString("Grid.DefinitionFile")),
			Log)
	},
	DisableAutoGenTag: true,
}

// surfaceCmd is a command that samples a raster surface onto the grid.
var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Sample a raster surface onto the grid",
	Long: `surface calculates zonal statistics of the raster surface in Surface.File
for each grid cell and writes one array per statistic to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		g, err := ModelGridConfig(ctx, Cfg, Log)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(ctx, Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		fill, err := optionalFloat(Cfg, "Surface.FillValue")
		if err != nil {
			return err
		}
		rc, err := rowColFields(Cfg)
		if err != nil {
			return err
		}
		opts := gridprep.SurfaceOptions{
			ZoneField:    Cfg.GetString("Surface.ZoneField"),
			JoinField:    Cfg.GetString("Surface.JoinField"),
			RowColFields: rc,
			Statistic:    Cfg.GetString("Surface.Statistic"),
			FillValue:    fill,
			CellSize:     Cfg.GetFloat64("Surface.CellSize"),
			Strict:       Cfg.GetBool("Strict"),
		}
		var gridShapefile string
		if Cfg.GetBool("Surface.GridShapefile") {
			gridShapefile = Cfg.GetString("Grid.Shapefile")
		}
		return Surface(ctx, g, gridShapefile,
			Cfg.GetString("Surface.File"), Cfg.GetString("Surface.Variable"),
			opts, outputFile, Log)
	},
	DisableAutoGenTag: true,
}

// vectorCmd is a command that allocates a polygon layer to the grid.
var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Allocate a polygon layer to the grid",
	Long: `vector allocates the values of the Vector.Field attribute of the polygons
in Vector.File to the grid cells using Vector.Method and writes the resulting
array to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		g, err := ModelGridConfig(ctx, Cfg, Log)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(ctx, Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		fill, err := optionalFloat(Cfg, "Vector.FillValue")
		if err != nil {
			return err
		}
		rc, err := rowColFields(Cfg)
		if err != nil {
			return err
		}
		method, err := gridprep.ParseVectorMethod(Cfg.GetString("Vector.Method"))
		if err != nil {
			return err
		}
		field := Cfg.GetString("Vector.Field")
		if field == "" {
			return fmt.Errorf("gridpreputil: Vector.Field must be specified")
		}
		opts := gridprep.VectorOptions{
			Method:       method,
			RowColFields: rc,
			FillValue:    fill,
			Strict:       Cfg.GetBool("Strict"),
		}
		var gridShapefile string
		if Cfg.GetBool("Vector.GridShapefile") {
			gridShapefile = Cfg.GetString("Grid.Shapefile")
		}
		return Vector(ctx, g, gridShapefile, Cfg.GetString("Vector.File"), field,
			opts, outputFile, Log)
	},
	DisableAutoGenTag: true,
}
