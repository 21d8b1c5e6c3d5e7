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

// Interp executes functions directly. It is the correctness reference for
// the vectorizer: tests run the scalar original and the vectorized result
// against the same memory image and compare.
type Interp struct {
	// Funcs resolves OpCall by name. Each callee receives one lane slice
	// per argument and returns the result lanes.
	Funcs map[string]func(args [][]int64) ([]int64, error)

	// MaxSteps bounds executed instructions; 0 means the default.
	MaxSteps int
}

const defaultMaxSteps = 1 << 20

// Run executes f with the given scalar arguments against mem, mutating mem
// in place. The result lanes of the return value are returned, nil for a
// void return.
func (in *Interp) Run(f *Func, args []int64, mem []int64) ([]int64, error) {
	if len(args) != f.NumArgs {
		return nil, fmt.Errorf("interp %s: got %d args, want %d", f.Name, len(args), f.NumArgs)
	}
	maxSteps := in.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultMaxSteps
	}

	env := make(map[*Value][]int64)
	steps := 0

	block := f.Entry
	var from *Block
	for {
		// Phis read their incoming values simultaneously before commit.
		if from != nil {
			idx := block.PredIndex(from)
			if idx < 0 {
				return nil, fmt.Errorf("interp %s: no edge b%d->b%d", f.Name, from.ID, block.ID)
			}
			phis := block.Phis()
			staged := make([][]int64, len(phis))
			for i, phi := range phis {
				v, ok := env[phi.Args[idx]]
				if !ok {
					return nil, fmt.Errorf("interp %s: phi v%d reads undefined v%d", f.Name, phi.ID, phi.Args[idx].ID)
				}
				staged[i] = v
			}
			for i, phi := range phis {
				env[phi] = staged[i]
			}
		}

		for _, v := range block.Values {
			if v.Op == OpPhi {
				continue
			}
			steps++
			if steps > maxSteps {
				return nil, fmt.Errorf("interp %s: step limit exceeded", f.Name)
			}
			res, err := in.eval(f, v, args, env, mem)
			if err != nil {
				return nil, err
			}
			if res != nil {
				env[v] = res
			}
		}

		switch block.Kind {
		case BlockPlain:
			from, block = block, block.Succs[0]
		case BlockIf:
			cond := env[block.Control]
			if cond == nil {
				return nil, fmt.Errorf("interp %s: undefined control v%d in b%d", f.Name, block.Control.ID, block.ID)
			}
			if cond[0] != 0 {
				from, block = block, block.Succs[0]
			} else {
				from, block = block, block.Succs[1]
			}
		case BlockRet:
			if block.Control != nil {
				return env[block.Control], nil
			}
			return nil, nil
		default:
			return nil, fmt.Errorf("interp %s: invalid block b%d", f.Name, block.ID)
		}
	}
}

func (in *Interp) eval(f *Func, v *Value, args []int64, env map[*Value][]int64, mem []int64) ([]int64, error) {
	get := func(a *Value) ([]int64, error) {
		if a.Op == OpConst {
			return []int64{a.AuxInt}, nil
		}
		r, ok := env[a]
		if !ok {
			return nil, fmt.Errorf("interp %s: v%d reads undefined v%d", f.Name, v.ID, a.ID)
		}
		return r, nil
	}
	load := func(addr int64) (int64, error) {
		if addr < 0 || addr >= int64(len(mem)) {
			return 0, fmt.Errorf("interp %s: v%d load out of bounds at %d", f.Name, v.ID, addr)
		}
		return mem[addr], nil
	}
	store := func(addr, val int64) error {
		if addr < 0 || addr >= int64(len(mem)) {
			return fmt.Errorf("interp %s: v%d store out of bounds at %d", f.Name, v.ID, addr)
		}
		mem[addr] = val
		return nil
	}

	switch v.Op {
	case OpConst:
		return []int64{v.AuxInt}, nil
	case OpArg:
		return []int64{args[v.AuxInt]}, nil

	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor, OpMin, OpMax, OpCmpLT, OpCmpEQ:
		a, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := get(v.Args[1])
		if err != nil {
			return nil, err
		}
		out := make([]int64, len(a))
		for i := range a {
			out[i] = evalBinop(v.Op, a[i], b[i])
		}
		return out, nil

	case OpSelect:
		cond, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		a, err := get(v.Args[1])
		if err != nil {
			return nil, err
		}
		b, err := get(v.Args[2])
		if err != nil {
			return nil, err
		}
		out := make([]int64, len(cond))
		for i := range cond {
			if cond[i] != 0 {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
		return out, nil

	case OpLoad:
		addr, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		out := make([]int64, v.Type.Lanes)
		for i := range out {
			var a int64
			if len(addr) > 1 {
				a = addr[i]
			} else {
				a = addr[0] + int64(i)
			}
			if out[i], err = load(a); err != nil {
				return nil, err
			}
		}
		return out, nil

	case OpStore, OpMaskedStore:
		addr, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		val, err := get(v.Args[1])
		if err != nil {
			return nil, err
		}
		var mask []int64
		if v.Op == OpMaskedStore {
			if mask, err = get(v.Args[2]); err != nil {
				return nil, err
			}
		}
		for i := range val {
			if mask != nil && mask[i] == 0 {
				continue
			}
			var a int64
			if len(addr) > 1 {
				a = addr[i]
			} else {
				a = addr[0] + int64(i)
			}
			if err := store(a, val[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case OpCall:
		fn := in.Funcs[v.Aux]
		if fn == nil {
			return nil, fmt.Errorf("interp %s: v%d calls unknown function %q", f.Name, v.ID, v.Aux)
		}
		callArgs := make([][]int64, len(v.Args))
		for i, a := range v.Args {
			var err error
			if callArgs[i], err = get(a); err != nil {
				return nil, err
			}
		}
		return fn(callArgs)

	case OpBroadcast:
		a, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		out := make([]int64, v.Type.Lanes)
		for i := range out {
			out[i] = a[0]
		}
		return out, nil

	case OpRamp:
		a, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		out := make([]int64, v.Type.Lanes)
		for i := range out {
			out[i] = a[0] + int64(i)*v.AuxInt
		}
		return out, nil

	case OpInsertLane:
		vec, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		s, err := get(v.Args[1])
		if err != nil {
			return nil, err
		}
		out := append([]int64(nil), vec...)
		out[v.AuxInt] = s[0]
		return out, nil

	case OpExtractLane:
		vec, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		return []int64{vec[v.AuxInt]}, nil

	case OpReduceAdd, OpReduceMul, OpReduceAnd, OpReduceOr, OpReduceMin, OpReduceMax:
		vec, err := get(v.Args[0])
		if err != nil {
			return nil, err
		}
		acc := vec[0]
		for _, x := range vec[1:] {
			acc = evalBinop(reduceBinop(v.Op), acc, x)
		}
		return []int64{acc}, nil
	}
	return nil, fmt.Errorf("interp %s: v%d has unsupported op %s", f.Name, v.ID, v.Op)
}

func evalBinop(op Op, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpAnd:
		return a & b
	case OpOr:
		return a | b
	case OpXor:
		return a ^ b
	case OpMin:
		if a < b {
			return a
		}
		return b
	case OpMax:
		if a > b {
			return a
		}
		return b
	case OpCmpLT:
		if a < b {
			return 1
		}
		return 0
	case OpCmpEQ:
		if a == b {
			return 1
		}
		return 0
	}
	panic("unreachable")
}

func reduceBinop(op Op) Op {
	switch op {
	case OpReduceAdd:
		return OpAdd
	case OpReduceMul:
		return OpMul
	case OpReduceAnd:
		return OpAnd
	case OpReduceOr:
		return OpOr
	case OpReduceMin:
		return OpMin
	case OpReduceMax:
		return OpMax
	}
	panic("unreachable")
}
