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

	"github.com/ctessum/geom/proj"
)

// Proj4Param is a single proj4 projection parameter. Parameters with an
// empty Value are flags, such as "no_defs".
type Proj4Param struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// Proj4Params is an ordered list of proj4 parameters.
type Proj4Params []Proj4Param

// ParseProj4Params creates a parameter list from strings in the form
// "key=value" or "key" (for flags).
func ParseProj4Params(items []string) (Proj4Params, error) {
	o := make(Proj4Params, 0, len(items))
	for _, item := range items {
		item = strings.TrimPrefix(strings.TrimSpace(item), "+")
		kv := strings.SplitN(item, "=", 2)
		p := Proj4Param{Key: strings.TrimSpace(kv[0])}
		if len(kv) == 2 {
			p.Value = strings.TrimSpace(kv[1])
		}
		if p.Key == "" {
			return nil, fmt.Errorf("gridprep: invalid proj4 parameter %q", item)
		}
		o = append(o, p)
	}
	return o, nil
}

// String returns the proj4 string: "+key=value" for every parameter
// with a value, in order, followed by "+key" for every flag.
func (p Proj4Params) String() string {
	items := make([]string, 0, len(p))
	for _, param := range p {
		if param.Value != "" {
			items = append(items, fmt.Sprintf("+%s=%s", param.Key, param.Value))
		}
	}
	for _, param := range p {
		if param.Value == "" {
			items = append(items, "+"+param.Key)
		}
	}
	return strings.Join(items, " ")
}

// SR parses the projection described by p.
func (p Proj4Params) SR() (*proj.SR, error) {
	return ParseProj4(p.String())
}

// ParseProj4 parses a proj4 or WKT projection definition.
// The "+north" flag is dropped before parsing because the parser does not
// recognize it and the northern hemisphere is the default for UTM.
func ParseProj4(s string) (*proj.SR, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "+") {
		parts := strings.Split(s, "+")
		kept := parts[:0]
		for _, part := range parts {
			if strings.TrimSpace(part) == "north" {
				continue
			}
			kept = append(kept, part)
		}
		s = strings.Join(kept, "+")
	}
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("gridprep: parsing projection '%s': %v", s, err)
	}
	return sr, nil
}
