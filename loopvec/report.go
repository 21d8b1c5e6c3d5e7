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
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Outcome is the verdict of one vectorization attempt on one loop. Every
// negative outcome other than OutcomeVectorized leaves the function
// exactly as it was.
type Outcome int

const (
	// OutcomeVectorized means the loop was split and widened.
	OutcomeVectorized Outcome = iota

	// OutcomeDisabled means the global kill switch was set.
	OutcomeDisabled

	// OutcomeNotEnabled means the loop carries no enable annotation.
	OutcomeNotEnabled

	// OutcomeAlreadyVectorized means a previous run handled this loop.
	OutcomeAlreadyVectorized

	// OutcomeShortDependence means the declared dependence distance
	// admits no width above one.
	OutcomeShortDependence

	// OutcomeNotLegal means the loop shape is outside what the engine
	// handles, or the trip count is known and too small to split.
	OutcomeNotLegal

	// OutcomeNotBeneficial means the cost model found no profitable
	// width, or no width source was available at all.
	OutcomeNotBeneficial

	// OutcomeUnsupportedRecurrence means a header phi is neither a
	// recognized stride pattern nor a supported reduction.
	OutcomeUnsupportedRecurrence

	// OutcomeCannotLinearize means a divergent branch does not match
	// any shape the linearizer can predicate.
	OutcomeCannotLinearize

	// OutcomeUnresolvedCall means a varying call has no vector variant
	// at the chosen width.
	OutcomeUnresolvedCall

	// OutcomeCannotSplit means the remainder transform rejected the
	// loop during read-only planning.
	OutcomeCannotSplit
)

var outcomeNames = [...]string{
	OutcomeVectorized:            "vectorized",
	OutcomeDisabled:              "disabled",
	OutcomeNotEnabled:            "not enabled",
	OutcomeAlreadyVectorized:     "already vectorized",
	OutcomeShortDependence:       "dependence distance too short",
	OutcomeNotLegal:              "not legal",
	OutcomeNotBeneficial:         "not beneficial",
	OutcomeUnsupportedRecurrence: "unsupported recurrence",
	OutcomeCannotLinearize:       "cannot linearize",
	OutcomeUnresolvedCall:        "unresolved call",
	OutcomeCannotSplit:           "cannot split remainder",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Changed reports whether the attempt mutated the function.
func (o Outcome) Changed() bool { return o == OutcomeVectorized }

// Reporter formats per-attempt diagnostics. The zero-value Reporter is
// silent; with Diag set it narrates every attempt to W.
type Reporter struct {
	W    io.Writer
	Diag bool

	titler cases.Caser
	banner bool
}

// NewReporter returns a reporter writing to w when diag is set.
func NewReporter(w io.Writer, diag bool) *Reporter {
	return &Reporter{W: w, Diag: diag, titler: cases.Title(language.English)}
}

// Banner prints the configuration line once, after the first loop has
// actually been vectorized. Rejected runs stay banner-free.
func (r *Reporter) Banner(c Config, plat *PlatformInfo) {
	if !r.Diag || r.banner {
		return
	}
	r.banner = true
	fmt.Fprintf(r.W, "loopvec: %s, maxWidth=%d, ", plat.ISA(), plat.MaxVectorWidth())
	c.Print(r.W)
	fmt.Fprintln(r.W)
}

// Attempt reports the verdict of one loop attempt. The detail is optional
// and carries the reason behind a negative outcome.
func (r *Reporter) Attempt(loop string, o Outcome, detail error) {
	if !r.Diag {
		return
	}
	title := r.titler.String(o.String())
	if detail != nil {
		fmt.Fprintf(r.W, "loopvec: %s: %s: %v\n", loop, title, detail)
		return
	}
	fmt.Fprintf(r.W, "loopvec: %s: %s\n", loop, title)
}

// RefinedWidth reports a width derived from the dependence distance or
// the cost model, as opposed to one pinned by an override.
func (r *Reporter) RefinedWidth(loop string, width int, dist int64) {
	if !r.Diag {
		return
	}
	fmt.Fprintf(r.W, "loopvec: %s: refined width %d from distance %s\n", loop, width, DepDistToString(dist))
}

// Dump writes a function listing, used by the print-function override.
func (r *Reporter) Dump(header, body string) {
	if r.W == nil {
		return
	}
	fmt.Fprintf(r.W, "loopvec: %s\n%s", header, body)
	if !strings.HasSuffix(body, "\n") {
		fmt.Fprintln(r.W)
	}
}
