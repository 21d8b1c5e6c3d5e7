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

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// Control conversion rewrites divergent branches (condition shape not
// uniform) into predicated straight-line form: the two arms run back to
// back, stores in each arm are guarded by a per-lane mask derived from the
// branch condition, and merge phis become lane-wise selects.
//
// checkLinearizable is the read-only planning half; linearizeRegion is the
// mutation half and must only run after the check succeeded on an
// isomorphic region.

// divergentBranch is one divergent two-way branch matched against the
// supported diamond/triangle structure. thenBlk is the taken arm
// (successor 0); elseBlk is nil for a triangle. swapped marks a triangle
// whose single arm hangs off the not-taken edge.
type divergentBranch struct {
	branch  *ir.Block
	thenBlk *ir.Block
	elseBlk *ir.Block
	merge   *ir.Block
	swapped bool
}

// checkLinearizable verifies that every divergent branch in the region has
// the supported structure. It mutates nothing; an error is the "cannot
// linearize this control flow" bail-out.
func checkLinearizable(vi *VectorizationInfo) error {
	_, err := matchDivergentBranches(vi)
	return err
}

func matchDivergentBranches(vi *VectorizationInfo) ([]divergentBranch, error) {
	region := vi.Region
	var pdt *ir.DomTree
	var out []divergentBranch
	for _, b := range region.Blocks() {
		if b.Kind != ir.BlockIf {
			continue
		}
		if !region.Contains(b.Succs[0]) || !region.Contains(b.Succs[1]) {
			// The loop exit branch; its condition is pinned uniform by
			// the remainder transform's overrides.
			continue
		}
		if operandShape(vi, b.Control).IsUniform() {
			continue
		}
		if pdt == nil {
			pdt = ir.BuildPostDomTree(vi.Func)
		}
		d, err := matchDiamond(region, pdt, b)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// matchDiamond matches b against a one-level diamond or triangle whose
// arms are straight-line blocks. The merge is b's immediate
// post-dominator; anything the arms cannot reach in one hop counts as
// irreducible for the restructuring.
func matchDiamond(region *LoopRegion, pdt *ir.DomTree, b *ir.Block) (divergentBranch, error) {
	t, e := b.Succs[0], b.Succs[1]

	m := pdt.Idom(b)
	if m == nil || !region.Contains(m) {
		return divergentBranch{}, fmt.Errorf("irreducible divergent control at b%d", b.ID)
	}
	if m == region.Entry() {
		return divergentBranch{}, fmt.Errorf("divergent branch b%d merges at the loop header", b.ID)
	}

	isArm := func(arm *ir.Block) bool {
		return arm.Kind == ir.BlockPlain &&
			len(arm.Preds) == 1 && arm.Preds[0] == b &&
			len(arm.Succs) == 1 && arm.Succs[0] == m
	}

	switch {
	case m == e && isArm(t):
		// Triangle: the taken arm rejoins the fall-through edge.
		return divergentBranch{branch: b, thenBlk: t, merge: m}, nil
	case m == t && isArm(e):
		// Triangle with the arm on the not-taken edge.
		return divergentBranch{branch: b, thenBlk: e, merge: m, swapped: true}, nil
	case isArm(t) && isArm(e):
		return divergentBranch{branch: b, thenBlk: t, elseBlk: e, merge: m}, nil
	}
	return divergentBranch{}, fmt.Errorf("irreducible divergent control at b%d", b.ID)
}

// linearizeRegion predicates every divergent branch in the region. The
// feasibility check already approved the structure, so a match failure
// here is an implementation defect.
func linearizeRegion(vi *VectorizationInfo) {
	branches, err := matchDivergentBranches(vi)
	if err != nil {
		panic(fmt.Sprintf("loopvec: linearize after successful check: %v", err))
	}
	for _, d := range branches {
		predicateBranch(vi, d)
	}
}

// predicateBranch flattens one diamond/triangle into a straight chain
// branch -> then [-> else] -> merge, masking stores and replacing merge
// phis with selects. The relative order of side effects within each arm is
// preserved; the arms were exclusive before, so their concatenation
// introduces no new ordering between active lanes.
func predicateBranch(vi *VectorizationInfo, d divergentBranch) {
	b, t, e, m := d.branch, d.thenBlk, d.elseBlk, d.merge
	cond := b.Control
	condShape := vi.Shape(cond)

	// Mask for the not-taken path: cond == 0. Built in the branch block so
	// it dominates both arms.
	zero := b.Const(0)
	notCond := b.NewValue(ir.OpCmpEQ, cond.Type, cond, zero)
	vi.SetShape(zero, UniformShape())
	vi.SetShape(notCond, condShape)

	thenMask := cond
	if d.swapped {
		thenMask = notCond
	}
	maskStores(vi, t, thenMask)
	if e != nil {
		maskStores(vi, e, notCond)
	}

	// Rewrite merge phis into selects before touching edges, while the
	// predecessor indices still line up. onTrue is the value arriving when
	// the original condition held.
	var truePred, falsePred *ir.Block
	switch {
	case e != nil:
		truePred, falsePred = t, e
	case d.swapped:
		truePred, falsePred = b, t
	default:
		truePred, falsePred = t, b
	}
	tIdx := m.PredIndex(truePred)
	fIdx := m.PredIndex(falsePred)
	phis := m.Phis()
	for _, phi := range phis {
		onTrue, onFalse := phi.Args[tIdx], phi.Args[fIdx]
		sel := m.NewValueAt(len(phis), ir.OpSelect, phi.Type, cond, onTrue, onFalse)
		vi.SetShape(sel, VaryingShape())
		b.Func.ReplaceUses(phi, sel, map[*ir.Value]bool{sel: true})
	}
	// Drop the dead phis.
	m.Values = m.Values[len(phis):]

	// Relink the chain: branch -> then [-> else] -> merge.
	b.Kind = ir.BlockPlain
	b.Control = nil
	b.Succs = []*ir.Block{t}
	if e != nil {
		t.Succs = []*ir.Block{e}
		e.Preds = []*ir.Block{t}
		m.Preds = []*ir.Block{e}
	} else {
		t.Succs = []*ir.Block{m}
		m.Preds = []*ir.Block{t}
	}
}

// maskStores guards every store in the arm with the arm's mask, inserting
// combined masks ahead of the stores they guard.
func maskStores(vi *VectorizationInfo, arm *ir.Block, mask *ir.Value) {
	for i := 0; i < len(arm.Values); i++ {
		v := arm.Values[i]
		switch v.Op {
		case ir.OpStore:
			v.Op = ir.OpMaskedStore
			v.Args = append(v.Args, mask)
		case ir.OpMaskedStore:
			// Nested predication combines masks.
			and := arm.NewValueAt(i, ir.OpAnd, mask.Type, v.Args[2], mask)
			vi.SetShape(and, VaryingShape())
			v.Args[2] = and
			i++ // skip past the store we just shifted
		}
	}
}
