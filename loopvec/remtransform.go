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

import "github.com/ajroetker/go-loopvec/loopvec/ir"

// RemainderTransform splits a loop into a vectorizable main loop whose
// trip count is divisible by the width, plus the original loop demoted to
// scalar remainder duty.
//
// The transform is two-phase: every structural requirement is checked
// read-only first, and the function is mutated only once the split is
// known to succeed. On failure the IR is untouched.
type RemainderTransform struct {
	f  *ir.Func
	dt *ir.DomTree
}

// NewRemainderTransform builds a transform over f with its current
// dominator tree.
func NewRemainderTransform(f *ir.Func, dt *ir.DomTree) *RemainderTransform {
	return &RemainderTransform{f: f, dt: dt}
}

// remPlan is the read-only phase's result: everything the mutation phase
// needs, gathered before any IR changes.
type remPlan struct {
	pre       *ir.Block
	header    *ir.Block
	cond      *ir.Value
	iv        *ir.IndVar
	tripCount int64 // -1 when unknown
}

// CreateVectorizableLoop returns the prepared main loop, or nil when the
// loop's control structure cannot be safely split. On success it appends
// the split's bookkeeping values (the adjusted bound and the rewritten
// exit test) to uniformOverrides; the caller must pin them uniform before
// shape analysis.
func (rt *RemainderTransform) CreateVectorizableLoop(l *ir.Loop, uniformOverrides *[]*ir.Value, width int, tripAlign int64) *ir.Loop {
	plan := rt.plan(l, width, tripAlign)
	if plan == nil {
		return nil
	}
	return rt.commit(l, plan, width, tripAlign, uniformOverrides)
}

// plan validates the loop shape without mutating anything.
func (rt *RemainderTransform) plan(l *ir.Loop, width int, tripAlign int64) *remPlan {
	if width < 2 || !isPow2(width) {
		return nil
	}

	pre := l.Preheader()
	if pre == nil || pre.Kind != ir.BlockPlain {
		return nil
	}
	header := l.Header
	if len(header.Preds) != 2 {
		return nil
	}

	// The exit test must sit in the header, ahead of any side effects, and
	// be the loop's only way out.
	if l.ExitingBlock() != header || header.Kind != ir.BlockIf || l.ExitBlock() == nil {
		return nil
	}

	cond := header.Control
	if cond == nil || cond.Op != ir.OpCmpLT {
		return nil
	}
	iv := ir.ParseIndVar(l, cond.Args[0])
	if iv == nil || iv.Bound == nil {
		return nil
	}
	// The adjusted bound is computed in the preheader, so the original
	// bound must already be available there.
	if !rt.dt.Dominates(iv.Bound.Block, pre) {
		return nil
	}

	tc := getTripCount(l)
	if tc < 0 {
		// With a dynamic bound, the divisible split n - ((n-init) mod W)
		// is only exact for unit stride.
		if iv.Step != 1 {
			return nil
		}
	}
	return &remPlan{pre: pre, header: header, cond: cond, iv: iv, tripCount: tc}
}

// commit performs the split. Structure afterwards:
//
//	pre -> mainHeader(.vec) { trip divisible by width } -> bridge -> header
//
// with the original loop running the leftover iterations, seeded from the
// main loop's final phi values through the bridge edge.
func (rt *RemainderTransform) commit(l *ir.Loop, plan *remPlan, width int, tripAlign int64, uniformOverrides *[]*ir.Value) *ir.Loop {
	f := rt.f
	pre, header := plan.pre, plan.header

	vmap, bmap := ir.CloneRegion(f, l.Blocks, ".vec")
	bridge := f.NewBlock(ir.BlockPlain, header.Name+".bridge")

	// Wire the clone. Predecessor order mirrors the original so the
	// cloned phi arguments stay aligned; the loop-external predecessor
	// becomes the preheader and the exit edge lands on the bridge.
	for _, b := range f.Blocks {
		if !l.Contains(b) {
			continue
		}
		nb := bmap[b]
		for _, s := range b.Succs {
			if ns, ok := bmap[s]; ok {
				nb.Succs = append(nb.Succs, ns)
			} else {
				nb.Succs = append(nb.Succs, bridge)
			}
		}
		for _, p := range b.Preds {
			if np, ok := bmap[p]; ok {
				nb.Preds = append(nb.Preds, np)
			} else {
				nb.Preds = append(nb.Preds, pre)
			}
		}
	}
	mainHeader := bmap[header]
	bridge.Preds = []*ir.Block{mainHeader}
	bridge.Succs = []*ir.Block{header}

	// Compute the width-aligned bound in the preheader.
	iv := plan.iv
	var vecBound *ir.Value
	if tripAlign%int64(width) == 0 {
		// The trip count is already divisible: the main loop covers the
		// whole iteration space and the remainder never runs.
		vecBound = iv.Bound
	} else if plan.tripCount > 0 {
		mainIters := plan.tripCount - plan.tripCount%int64(width)
		vecBound = pre.Const(iv.Init.AuxInt + mainIters*iv.Step)
		*uniformOverrides = append(*uniformOverrides, vecBound)
	} else {
		diff := pre.NewValue(ir.OpSub, ir.Scalar, iv.Bound, iv.Init)
		mask := pre.Const(int64(width) - 1)
		rem := pre.NewValue(ir.OpAnd, ir.Scalar, diff, mask)
		vecBound = pre.NewValue(ir.OpSub, ir.Scalar, iv.Bound, rem)
		*uniformOverrides = append(*uniformOverrides, diff, rem, vecBound)
	}

	mainCond := vmap[plan.cond]
	mainCond.Args[1] = vecBound
	*uniformOverrides = append(*uniformOverrides, mainCond)

	// Steer the preheader into the main loop and seed the remainder's
	// header phis from the main loop's final values via the bridge.
	for i, s := range pre.Succs {
		if s == header {
			pre.Succs[i] = mainHeader
		}
	}
	preIdx := -1
	for i, p := range header.Preds {
		if p == pre {
			preIdx = i
		}
	}
	header.Preds[preIdx] = bridge
	for _, phi := range header.Phis() {
		phi.Args[preIdx] = vmap[phi]
	}

	prepared := &ir.Loop{
		Header: mainHeader,
		Latch:  bmap[l.Latch],
		Blocks: map[*ir.Block]bool{},
	}
	for b := range l.Blocks {
		prepared.Blocks[bmap[b]] = true
	}
	return prepared
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }
