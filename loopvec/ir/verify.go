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

package ir

import "fmt"

// Verify checks the structural well-formedness of f: CFG edge symmetry,
// terminator/successor agreement, phi placement and arity, def-before-use
// under dominance, and operand lane-width agreement. It returns the first
// violation found, nil when the function is well formed.
//
// Callers performing IR mutation treat a non-nil result as an
// implementation defect, not as a recoverable condition.
func Verify(f *Func) error {
	if f.Entry == nil {
		return fmt.Errorf("verify %s: no entry block", f.Name)
	}

	for _, b := range f.Blocks {
		if err := verifyBlock(f, b); err != nil {
			return err
		}
	}

	dt := BuildDomTree(f)
	defIndex := make(map[*Value]int)
	for _, b := range f.Blocks {
		for i, v := range b.Values {
			defIndex[v] = i
		}
	}

	for _, b := range f.Blocks {
		for i, v := range b.Values {
			if v.Op == OpPhi {
				// Phi operands must be defined along the matching edge;
				// requiring the arg's block to dominate the predecessor
				// covers it.
				for ai, a := range v.Args {
					if a.Block == nil {
						return fmt.Errorf("verify %s: v%d phi arg %d detached", f.Name, v.ID, ai)
					}
					if !dt.Dominates(a.Block, b.Preds[ai]) {
						return fmt.Errorf("verify %s: v%d phi arg v%d does not reach pred b%d", f.Name, v.ID, a.ID, b.Preds[ai].ID)
					}
				}
				continue
			}
			for _, a := range v.Args {
				if err := checkUse(f, dt, defIndex, a, b, i); err != nil {
					return err
				}
			}
		}
		if b.Control != nil {
			if err := checkUse(f, dt, defIndex, b.Control, b, len(b.Values)); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyBlock(f *Func, b *Block) error {
	switch b.Kind {
	case BlockPlain:
		if len(b.Succs) != 1 {
			return fmt.Errorf("verify %s: plain b%d has %d successors", f.Name, b.ID, len(b.Succs))
		}
	case BlockIf:
		if len(b.Succs) != 2 {
			return fmt.Errorf("verify %s: if b%d has %d successors", f.Name, b.ID, len(b.Succs))
		}
		if b.Control == nil {
			return fmt.Errorf("verify %s: if b%d has no control", f.Name, b.ID)
		}
	case BlockRet:
		if len(b.Succs) != 0 {
			return fmt.Errorf("verify %s: ret b%d has successors", f.Name, b.ID)
		}
	default:
		return fmt.Errorf("verify %s: b%d has invalid kind", f.Name, b.ID)
	}

	for _, s := range b.Succs {
		if s.PredIndex(b) < 0 {
			return fmt.Errorf("verify %s: edge b%d->b%d missing pred link", f.Name, b.ID, s.ID)
		}
	}
	for _, p := range b.Preds {
		found := false
		for _, s := range p.Succs {
			if s == b {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("verify %s: pred link b%d<-b%d missing edge", f.Name, b.ID, p.ID)
		}
	}

	inPhis := true
	for _, v := range b.Values {
		if v.Op == OpPhi {
			if !inPhis {
				return fmt.Errorf("verify %s: v%d phi after non-phi in b%d", f.Name, v.ID, b.ID)
			}
			if len(v.Args) != len(b.Preds) {
				return fmt.Errorf("verify %s: v%d phi arity %d, block has %d preds", f.Name, v.ID, len(v.Args), len(b.Preds))
			}
		} else {
			inPhis = false
		}
		if err := verifyLanes(f, v); err != nil {
			return err
		}
	}
	return nil
}

// verifyLanes checks operand/result lane-width agreement per opcode.
func verifyLanes(f *Func, v *Value) error {
	lanes := v.Type.Lanes
	mismatch := func(a *Value) error {
		return fmt.Errorf("verify %s: v%d (%s, %d lanes) operand v%d has %d lanes", f.Name, v.ID, v.Op, lanes, a.ID, a.Type.Lanes)
	}
	switch v.Op {
	case OpBroadcast, OpRamp:
		if !v.Type.IsVector() || v.Args[0].Type.IsVector() {
			return fmt.Errorf("verify %s: v%d %s wants scalar operand, vector result", f.Name, v.ID, v.Op)
		}
	case OpInsertLane:
		if v.Args[0].Type.Lanes != lanes || v.Args[1].Type.IsVector() {
			return fmt.Errorf("verify %s: v%d InsertLane lane mismatch", f.Name, v.ID)
		}
		if v.AuxInt < 0 || v.AuxInt >= int64(lanes) {
			return fmt.Errorf("verify %s: v%d InsertLane index %d out of range", f.Name, v.ID, v.AuxInt)
		}
	case OpExtractLane:
		if v.Type.IsVector() || !v.Args[0].Type.IsVector() {
			return fmt.Errorf("verify %s: v%d ExtractLane wants vector operand, scalar result", f.Name, v.ID)
		}
		if v.AuxInt < 0 || v.AuxInt >= int64(v.Args[0].Type.Lanes) {
			return fmt.Errorf("verify %s: v%d ExtractLane index %d out of range", f.Name, v.ID, v.AuxInt)
		}
	case OpReduceAdd, OpReduceMul, OpReduceAnd, OpReduceOr, OpReduceMin, OpReduceMax:
		if v.Type.IsVector() || !v.Args[0].Type.IsVector() {
			return fmt.Errorf("verify %s: v%d %s wants vector operand, scalar result", f.Name, v.ID, v.Op)
		}
	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor, OpMin, OpMax, OpCmpLT, OpCmpEQ:
		for _, a := range v.Args {
			if a.Type.Lanes != lanes {
				return mismatch(a)
			}
		}
	case OpSelect:
		for _, a := range v.Args {
			if a.Type.Lanes != lanes {
				return mismatch(a)
			}
		}
	case OpLoad:
		// A vector load with a scalar address reads consecutive slots; a
		// vector address gathers. Scalar load wants a scalar address.
		if !v.Type.IsVector() && v.Args[0].Type.IsVector() {
			return fmt.Errorf("verify %s: v%d scalar load with vector address", f.Name, v.ID)
		}
	case OpStore, OpMaskedStore:
		addr, val := v.Args[0], v.Args[1]
		if val.Type.IsVector() {
			// Scalar address stores consecutive slots, vector address
			// scatters lane-wise.
			if addr.Type.IsVector() && addr.Type.Lanes != val.Type.Lanes {
				return fmt.Errorf("verify %s: v%d store addr/value lanes disagree", f.Name, v.ID)
			}
		} else if addr.Type.IsVector() {
			return fmt.Errorf("verify %s: v%d scalar store with vector address", f.Name, v.ID)
		}
		if v.Op == OpMaskedStore && v.Args[2].Type.Lanes != val.Type.Lanes {
			return fmt.Errorf("verify %s: v%d masked store value/mask lanes disagree", f.Name, v.ID)
		}
	}
	return nil
}

func checkUse(f *Func, dt *DomTree, defIndex map[*Value]int, a *Value, useBlock *Block, usePos int) error {
	if a.Block == nil {
		return fmt.Errorf("verify %s: use of detached value v%d in b%d", f.Name, a.ID, useBlock.ID)
	}
	if a.Block == useBlock {
		if defIndex[a] >= usePos {
			return fmt.Errorf("verify %s: v%d used before definition in b%d", f.Name, a.ID, useBlock.ID)
		}
		return nil
	}
	if !dt.Dominates(a.Block, useBlock) {
		return fmt.Errorf("verify %s: def b%d of v%d does not dominate use in b%d", f.Name, a.Block.ID, a.ID, useBlock.ID)
	}
	return nil
}
