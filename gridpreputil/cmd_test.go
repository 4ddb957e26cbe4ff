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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridprep"
	"github.com/spf13/pflag"
)

// execute runs the root command with the given arguments and returns
// its output. Flags changed by args are reset afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs(args)
	defer func() {
		Root.SetArgs(nil)
		Root.SetOutput(nil)
		for _, fs := range []*pflag.FlagSet{Root.PersistentFlags(), gridCmd.Flags(), surfaceCmd.Flags(), vectorCmd.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					f.Value.Set(f.DefValue)
					f.Changed = false
				}
			})
		}
	}()
	err := Root.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, gridprep.Version) {
		t.Errorf("output %q does not contain the version", out)
	}
}

func TestSetConfigLogging(t *testing.T) {
	Log.Out = new(bytes.Buffer)
	if _, err := execute(t, "--verbose", "version"); err != nil {
		t.Fatal(err)
	}
	if Log.Out != os.Stderr {
		t.Error("log output should be standard error")
	}
	if Log.Level != logrus.DebugLevel {
		t.Errorf("log level: have %v, want debug", Log.Level)
	}
	if _, err := execute(t, "version"); err != nil {
		t.Fatal(err)
	}
	if Log.Level != logrus.InfoLevel {
		t.Errorf("log level: have %v, want info", Log.Level)
	}
}

func TestProj4Cmd(t *testing.T) {
	out, err := execute(t, "proj4", "--Grid.Proj4=+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		t.Fatal(err)
	}
	if want := "+proj=longlat +datum=WGS84 +no_defs"; strings.TrimSpace(out) != want {
		t.Errorf("have %q, want %q", out, want)
	}
}

func TestGridCmd(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	_, err := execute(t, "grid",
		"--Grid.Nrow=3", "--Grid.Ncol=2",
		"--Grid.Shapefile="+filepath.Join(dir, "grid.shp"),
		"--Grid.DefinitionFile="+filepath.Join(dir, "grid.toml"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := gridprep.ReadFeatures(filepath.Join(dir, "grid.shp"), gridprep.CellIDField)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Polygons) != 6 {
		t.Errorf("have %d cells, want 6", len(f.Polygons))
	}
	if f.SR == nil {
		t.Error("missing projection")
	}
	if _, err := os.Stat(filepath.Join(dir, "grid.toml")); err != nil {
		t.Error(err)
	}
}

func TestVectorCmdNoField(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	_, err := execute(t, "vector", "--OutputFile="+filepath.Join(dir, "out.nc"))
	if err == nil || !strings.Contains(err.Error(), "Vector.Field") {
		t.Errorf("have error %v, want missing Vector.Field", err)
	}
}
