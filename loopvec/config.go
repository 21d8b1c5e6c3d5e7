// Copyright 2026 go-loopvec Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loopvec

import (
	"fmt"
	"io"

	"github.com/xyproto/env/v2"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// Function-level metadata keys read by CreateConfigForFunction.
const (
	metaFnGreedyIPV   = "loopvec.config.greedy_ipv"
	metaFnNoCostModel = "loopvec.config.no_cost_model"
)

// Config is the per-function vectorization configuration. It is immutable
// for the duration of one run.
type Config struct {
	// EnableCostModel lets the width selector search for a profitable
	// width when no explicit width is pinned.
	EnableCostModel bool

	// EnableGreedyIPV registers the greedy inter-procedural resolver so
	// calls to known scalar functions resolve to widened variants.
	EnableGreedyIPV bool

	// EnableVecMathResolver consults the vector math lookup table when
	// widening calls.
	EnableVecMathResolver bool
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		EnableCostModel:       true,
		EnableGreedyIPV:       false,
		EnableVecMathResolver: true,
	}
}

// CreateConfigForFunction derives the configuration for one function from
// the defaults and the function's metadata tags.
func CreateConfigForFunction(f *ir.Func) Config {
	c := DefaultConfig()
	if v, ok := f.Meta[metaFnGreedyIPV]; ok && v != 0 {
		c.EnableGreedyIPV = true
	}
	if v, ok := f.Meta[metaFnNoCostModel]; ok && v != 0 {
		c.EnableCostModel = false
	}
	return c
}

// Print writes the one-line configuration banner.
func (c Config) Print(w io.Writer) {
	fmt.Fprintf(w, "costModel=%v, greedyIPV=%v, vecMathResolver=%v",
		c.EnableCostModel, c.EnableGreedyIPV, c.EnableVecMathResolver)
}

// Environment variables consulted once per run.
const (
	EnvDisable       = "LV_DISABLE"        // global kill switch
	EnvForceWidth    = "LV_FORCE_WIDTH"    // pinned vector width, beats annotations
	EnvDiag          = "LV_DIAG"           // verbose per-attempt diagnostics
	EnvPrintFunction = "LV_PRINT_FUNCTION" // dump the function before the run
	EnvNoVecMath     = "LV_NO_VECMATH"     // suppress the builtin math table
)

// EnvOverrides is an immutable snapshot of the process environment taken
// at the start of a run, so attempts never consult ambient state.
type EnvOverrides struct {
	Disable       bool
	ForceWidth    int // 0 when unset
	Diag          bool
	PrintFunction bool
	NoVecMath     bool
}

// SnapshotEnv reads the override variables once.
func SnapshotEnv() EnvOverrides {
	return EnvOverrides{
		Disable:       env.Bool(EnvDisable),
		ForceWidth:    env.Int(EnvForceWidth, 0),
		Diag:          env.Bool(EnvDiag),
		PrintFunction: env.Bool(EnvPrintFunction),
		NoVecMath:     env.Bool(EnvNoVecMath),
	}
}
