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
	"os"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// LoopVectorizer drives one function through the pipeline: per loop it
// gates on annotations, checks legality, picks a width, plans the attempt
// read-only, and only then splits, linearizes and widens. Every expected
// rejection leaves the function byte-identical; once the remainder split
// has committed, remaining failures are implementation defects and panic.
type LoopVectorizer struct {
	F      *ir.Func
	Config Config
	Plat   *PlatformInfo

	// Env is the override snapshot for this run. Callers construct it
	// explicitly (or via SnapshotEnv) so attempts never read ambient
	// process state mid-flight.
	Env EnvOverrides

	// Rep receives per-attempt diagnostics. Nil means quiet.
	Rep *Reporter

	dt        *ir.DomTree
	resolvers bool
}

// NewLoopVectorizer builds a vectorizer for f with the process environment
// snapshotted once. The reporter writes to stderr when diagnostics are on.
func NewLoopVectorizer(f *ir.Func, config Config, plat *PlatformInfo) *LoopVectorizer {
	env := SnapshotEnv()
	return &LoopVectorizer{
		F:      f,
		Config: config,
		Plat:   plat,
		Env:    env,
		Rep:    NewReporter(os.Stderr, env.Diag),
	}
}

// Run attempts every loop in the function, top-level loops first and
// sub-loops of each rejected loop after it. Reports whether the function
// changed.
func (lv *LoopVectorizer) Run() bool {
	if lv.Rep == nil {
		lv.Rep = NewReporter(os.Stderr, false)
	}
	if lv.Env.Disable {
		lv.Rep.Attempt(lv.F.Name, OutcomeDisabled, nil)
		return false
	}
	lv.registerResolvers()
	if lv.Env.PrintFunction {
		lv.Rep.Dump("before "+lv.F.Name, lv.F.String())
	}

	lv.dt = ir.BuildDomTree(lv.F)
	li := ir.BuildLoopInfo(lv.F, lv.dt)

	changed := false
	for _, l := range li.TopLevel {
		if lv.vectorizeLoopOrSubLoops(l) {
			changed = true
		}
	}

	if lv.Env.PrintFunction && changed {
		lv.Rep.Dump("after "+lv.F.Name, lv.F.String())
	}
	return changed
}

// VectorizeLoop attempts a single loop, honoring the same gates as Run.
// Reports whether the function changed.
func (lv *LoopVectorizer) VectorizeLoop(l *ir.Loop) bool {
	if lv.Rep == nil {
		lv.Rep = NewReporter(os.Stderr, false)
	}
	if lv.Env.Disable {
		lv.Rep.Attempt(l.Name(), OutcomeDisabled, nil)
		return false
	}
	lv.registerResolvers()
	if lv.dt == nil {
		lv.dt = ir.BuildDomTree(lv.F)
	}
	o, err := lv.vectorizeLoop(l)
	lv.Rep.Attempt(l.Name(), o, err)
	return o.Changed()
}

// registerResolvers installs the call resolvers the configuration asks
// for, once per vectorizer.
func (lv *LoopVectorizer) registerResolvers() {
	if lv.resolvers {
		return
	}
	lv.resolvers = true
	if lv.Config.EnableVecMathResolver && !lv.Env.NoVecMath {
		addVecMathResolver(lv.Plat)
	}
	if lv.Config.EnableGreedyIPV {
		addRecursiveResolver(lv.Plat)
	}
}

// vectorizeLoopOrSubLoops attempts l; when l is rejected its sub-loops are
// tried instead. A vectorized loop's sub-loops are not revisited, they
// were cloned along with it.
func (lv *LoopVectorizer) vectorizeLoopOrSubLoops(l *ir.Loop) bool {
	o, err := lv.vectorizeLoop(l)
	lv.Rep.Attempt(l.Name(), o, err)
	if o == OutcomeVectorized {
		return true
	}
	changed := false
	for _, sub := range l.Children {
		if lv.vectorizeLoopOrSubLoops(sub) {
			changed = true
		}
	}
	return changed
}

// vectorizeLoop runs the gates and the attempt for one loop.
func (lv *LoopVectorizer) vectorizeLoop(l *ir.Loop) (Outcome, error) {
	ann := GetLoopAnnotation(l)

	// A loop tagged fully parallel is an implicit candidate with an
	// unbounded dependence distance.
	parallel := IsAnnotatedParallel(l)
	if !ann.VectorizeEnable.safeGet(false) && !parallel {
		return OutcomeNotEnabled, nil
	}
	if ann.AlreadyVectorized.safeGet(false) {
		return OutcomeAlreadyVectorized, nil
	}

	// An absent distance annotation means no declared hazard: unbounded.
	depDist := ann.MinDepDist.safeGet(ParallelDistance)
	if parallel {
		depDist = ParallelDistance
	}
	if depDist <= 1 {
		return OutcomeShortDependence, fmt.Errorf("minimum dependence distance %s", DepDistToString(depDist))
	}

	if !canVectorizeLoop(l) {
		return OutcomeNotLegal, fmt.Errorf("loop %s needs a single two-way exiting block", l.Name())
	}

	width, o, err := lv.pickWidth(l, depDist)
	if o != OutcomeVectorized {
		return o, err
	}

	return lv.attempt(l, width)
}

// pickWidth resolves the vector width for l: the environment override
// wins, then the loop's explicit annotation, then the cost model seeded
// from the dependence distance. OutcomeVectorized from here means "keep
// going", not success.
func (lv *LoopVectorizer) pickWidth(l *ir.Loop, depDist int64) (int, Outcome, error) {
	if w := lv.Env.ForceWidth; w > 0 {
		return w, OutcomeVectorized, nil
	}
	if lv.ann(l).ExplicitWidth.isSet() {
		return lv.ann(l).ExplicitWidth.safeGet(0), OutcomeVectorized, nil
	}

	initial := lv.Plat.MaxVectorWidth()
	if depDist < ParallelDistance && depDist < int64(initial) {
		initial = int(depDist)
	}

	if !lv.Config.EnableCostModel {
		if depDist >= ParallelDistance {
			return 0, OutcomeNotBeneficial,
				fmt.Errorf("no width source: cost model disabled, no explicit width, dependence distance unbounded")
		}
		w := floorPow2(initial)
		lv.Rep.RefinedWidth(l.Name(), w, depDist)
		return w, OutcomeVectorized, nil
	}

	cm := NewCostModel(lv.Plat, lv.Config)
	w := cm.PickWidthForRegion(NewLoopRegion(l), initial)
	if w < 2 {
		return 0, OutcomeNotBeneficial, fmt.Errorf("no profitable width at or below %d", initial)
	}
	lv.Rep.RefinedWidth(l.Name(), w, depDist)
	return w, OutcomeVectorized, nil
}

func (lv *LoopVectorizer) ann(l *ir.Loop) LoopAnnotation { return GetLoopAnnotation(l) }

// attempt plans the transform read-only on the original loop, then
// commits. The planning half may reject; the commit half may not.
func (lv *LoopVectorizer) attempt(l *ir.Loop, width int) (Outcome, error) {
	f := lv.F

	// Plan: classify the loop-carried values and dry-run shape analysis
	// and linearization on the untouched loop. The exit condition is
	// treated as uniform here because the committed split pins the
	// adjusted bound uniform.
	vi := NewVectorizationInfo(f, width, NewLoopRegion(l))
	if o, err := classifyHeaderPhis(vi, l); o != OutcomeVectorized {
		return o, err
	}
	vi.SetPinnedShape(l.ExitingBlock().Control, UniformShape())
	analyzeShapes(vi)
	if err := checkLinearizable(vi); err != nil {
		return OutcomeCannotLinearize, err
	}
	if err := checkCallsResolvable(vi, lv.Plat); err != nil {
		return OutcomeUnresolvedCall, err
	}

	if err := ir.Verify(f); err != nil {
		panic(fmt.Sprintf("loopvec: invalid IR before transform of %s: %v", l.Name(), err))
	}

	// Commit: split off the remainder. This is the last gate that can
	// still say no without touching the function.
	rt := NewRemainderTransform(f, lv.dt)
	var overrides []*ir.Value
	prepared := rt.CreateVectorizableLoop(l, &overrides, width, getTripAlignment(l))
	if prepared == nil {
		return OutcomeCannotSplit, fmt.Errorf("loop %s does not fit the remainder split", l.Name())
	}
	lv.dt = ir.BuildDomTree(f)

	// Redo the analyses on the prepared clone, now with the split's
	// bookkeeping values pinned uniform. Divergence from the dry run is
	// a defect, the clone is isomorphic to what planning approved.
	pvi := NewVectorizationInfo(f, width, NewLoopRegion(prepared))
	if o, err := classifyHeaderPhis(pvi, prepared); o != OutcomeVectorized {
		panic(fmt.Sprintf("loopvec: classification diverged after split of %s: %v", l.Name(), err))
	}
	for _, v := range overrides {
		pvi.SetPinnedShape(v, UniformShape())
	}
	analyzeShapes(pvi)
	linearizeRegion(pvi)
	analyzeShapes(pvi)

	bridge := prepared.ExitBlock()
	widenLoop(pvi, lv.Plat, bridge)

	if err := ir.Verify(f); err != nil {
		panic(fmt.Sprintf("loopvec: invalid IR after vectorizing %s: %v", l.Name(), err))
	}

	markAlreadyVectorized(l)
	clearVectorizeAnnotations(prepared.Header)
	lv.dt = ir.BuildDomTree(f)
	lv.Rep.Banner(lv.Config, lv.Plat)
	return OutcomeVectorized, nil
}

// classifyHeaderPhis records every header phi as an induction stride or a
// supported reduction and pins its shape. Any other recurrence rejects the
// loop.
func classifyHeaderPhis(vi *VectorizationInfo, l *ir.Loop) (Outcome, error) {
	reda := NewReductionAnalysis(vi.Func)
	reda.Analyze(l)
	for _, phi := range l.Header.Phis() {
		if pat := reda.StrideInfo(phi); pat != nil {
			vi.Strides[phi] = pat
			vi.SetPinnedShape(phi, pat.Shape(vi.Width))
			continue
		}
		red := reda.ReductionInfo(phi)
		if red == nil || red.Kind == RedBot || red.Kind == RedTop {
			return OutcomeUnsupportedRecurrence,
				fmt.Errorf("header phi v%d is neither an induction nor a known reduction", phi.ID)
		}
		if !IsSupportedReduction(vi.Func, l, red) {
			return OutcomeUnsupportedRecurrence,
				fmt.Errorf("reduction at v%d has uses outside its own cycle", phi.ID)
		}
		vi.Reductions[phi] = red
		vi.SetPinnedShape(phi, red.Shape(vi.Width))
	}
	return OutcomeVectorized, nil
}
