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

// Package ir provides the compact SSA-style intermediate representation the
// vectorization engine operates on: functions of basic blocks, values with a
// closed opcode set, a loop forest, dominator trees, closed-form trip counts,
// a structural verifier and a reference interpreter.
//
// In a production embedding these queries would be served by the host
// compiler; the package keeps the engine testable standalone.
package ir

import (
	"fmt"
	"strings"
)

// Op is the closed instruction opcode set.
type Op uint8

const (
	OpInvalid Op = iota

	OpConst // AuxInt holds the constant
	OpArg   // AuxInt is the function argument index
	OpPhi   // args parallel the block's predecessor order

	// Arithmetic and bitwise. Lane-wise when the result type is a vector.
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpMin
	OpMax

	OpCmpLT // 1 if arg0 < arg1, else 0
	OpCmpEQ // 1 if arg0 == arg1, else 0

	OpSelect // args: cond, onTrue, onFalse

	OpLoad        // args: addr (per-lane gather when addr is a vector)
	OpStore       // args: addr, val
	OpMaskedStore // args: addr, val, mask; stores only lanes with mask != 0

	OpCall // Aux names the callee; args are the call arguments

	// Vector construction and access.
	OpBroadcast  // arg0 scalar replicated into every lane
	OpRamp       // lane i = arg0 + i*AuxInt
	OpInsertLane // args: vec, scalar; AuxInt is the lane index
	OpExtractLane

	// Horizontal reductions, vector to scalar.
	OpReduceAdd
	OpReduceMul
	OpReduceAnd
	OpReduceOr
	OpReduceMin
	OpReduceMax
)

var opNames = [...]string{
	OpInvalid:     "Invalid",
	OpConst:       "Const",
	OpArg:         "Arg",
	OpPhi:         "Phi",
	OpAdd:         "Add",
	OpSub:         "Sub",
	OpMul:         "Mul",
	OpAnd:         "And",
	OpOr:          "Or",
	OpXor:         "Xor",
	OpMin:         "Min",
	OpMax:         "Max",
	OpCmpLT:       "CmpLT",
	OpCmpEQ:       "CmpEQ",
	OpSelect:      "Select",
	OpLoad:        "Load",
	OpStore:       "Store",
	OpMaskedStore: "MaskedStore",
	OpCall:        "Call",
	OpBroadcast:   "Broadcast",
	OpRamp:        "Ramp",
	OpInsertLane:  "InsertLane",
	OpExtractLane: "ExtractLane",
	OpReduceAdd:   "ReduceAdd",
	OpReduceMul:   "ReduceMul",
	OpReduceAnd:   "ReduceAnd",
	OpReduceOr:    "ReduceOr",
	OpReduceMin:   "ReduceMin",
	OpReduceMax:   "ReduceMax",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// HasSideEffects reports whether the op writes memory.
func (op Op) HasSideEffects() bool {
	return op == OpStore || op == OpMaskedStore
}

// Type describes a value's lane count. Lanes == 1 is a scalar; every lane
// is a 64-bit integer.
type Type struct {
	Lanes int
}

// Scalar is the single-lane integer type.
var Scalar = Type{Lanes: 1}

// VecType returns a vector type with the given lane count.
func VecType(lanes int) Type { return Type{Lanes: lanes} }

// IsVector reports whether the type has more than one lane.
func (t Type) IsVector() bool { return t.Lanes > 1 }

func (t Type) String() string {
	if t.Lanes <= 1 {
		return "i64"
	}
	return fmt.Sprintf("<%d x i64>", t.Lanes)
}

// Value is one SSA instruction.
type Value struct {
	ID     int
	Op     Op
	Type   Type
	Args   []*Value
	AuxInt int64  // constant, arg index, lane or stride, depending on Op
	Aux    string // callee name for OpCall
	Block  *Block
}

// BlockKind classifies a block's terminator.
type BlockKind uint8

const (
	BlockInvalid BlockKind = iota
	BlockPlain             // one successor, unconditional
	BlockIf                // two successors; Control decides (lane 0, != 0 taken)
	BlockRet               // no successors; Control is the optional result
)

func (k BlockKind) String() string {
	switch k {
	case BlockPlain:
		return "Plain"
	case BlockIf:
		return "If"
	case BlockRet:
		return "Ret"
	}
	return "Invalid"
}

// Block is a basic block. Values holds the instructions in program order,
// phis first. Succs and Preds are kept consistent by the edge helpers; phi
// argument order parallels Preds.
type Block struct {
	ID      int
	Name    string
	Kind    BlockKind
	Control *Value
	Succs   []*Block
	Preds   []*Block
	Values  []*Value
	Func    *Func
	Meta    map[string]int64
}

// Func is one function: an entry block plus the block list in layout order.
type Func struct {
	Name    string
	Blocks  []*Block
	Entry   *Block
	NumArgs int
	Meta    map[string]int64

	valID   int
	blockID int
}

// NewFunc returns an empty function with numArgs integer arguments.
func NewFunc(name string, numArgs int) *Func {
	return &Func{Name: name, NumArgs: numArgs}
}

// NewBlock appends a new block with the given kind and name.
func (f *Func) NewBlock(kind BlockKind, name string) *Block {
	f.blockID++
	b := &Block{ID: f.blockID, Name: name, Kind: kind, Func: f}
	f.Blocks = append(f.Blocks, b)
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// NewValue appends a new instruction to b.
func (b *Block) NewValue(op Op, t Type, args ...*Value) *Value {
	b.Func.valID++
	v := &Value{ID: b.Func.valID, Op: op, Type: t, Args: args, Block: b}
	b.Values = append(b.Values, v)
	return v
}

// NewValueAt inserts a new instruction at index pos in b's value list.
func (b *Block) NewValueAt(pos int, op Op, t Type, args ...*Value) *Value {
	b.Func.valID++
	v := &Value{ID: b.Func.valID, Op: op, Type: t, Args: args, Block: b}
	b.Values = append(b.Values, nil)
	copy(b.Values[pos+1:], b.Values[pos:])
	b.Values[pos] = v
	return v
}

// Const creates an OpConst in b.
func (b *Block) Const(c int64) *Value {
	v := b.NewValue(OpConst, Scalar)
	v.AuxInt = c
	return v
}

// AddEdge links b to succ, keeping Preds in sync. Phi arguments of succ are
// not extended; callers adding an edge to a block with phis must append the
// matching phi operands themselves.
func (b *Block) AddEdge(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// PredIndex returns the index of pred in b.Preds, or -1.
func (b *Block) PredIndex(pred *Block) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}

// ReplaceSucc retargets the edge b->old to b->new, fixing old's and new's
// predecessor lists and old's phi operands.
func (b *Block) ReplaceSucc(old, new *Block) {
	for i, s := range b.Succs {
		if s == old {
			b.Succs[i] = new
			old.removePred(b)
			new.Preds = append(new.Preds, b)
			return
		}
	}
}

func (b *Block) removePred(pred *Block) {
	idx := b.PredIndex(pred)
	if idx < 0 {
		return
	}
	b.Preds = append(b.Preds[:idx], b.Preds[idx+1:]...)
	for _, v := range b.Values {
		if v.Op != OpPhi {
			continue
		}
		if idx < len(v.Args) {
			v.Args = append(v.Args[:idx], v.Args[idx+1:]...)
		}
	}
}

// Phis returns the block's leading phi values.
func (b *Block) Phis() []*Value {
	var phis []*Value
	for _, v := range b.Values {
		if v.Op != OpPhi {
			break
		}
		phis = append(phis, v)
	}
	return phis
}

// SetMeta attaches a key/value tag to the block.
func (b *Block) SetMeta(key string, val int64) {
	if b.Meta == nil {
		b.Meta = map[string]int64{}
	}
	b.Meta[key] = val
}

// GetMeta reads a tag; ok is false when the key is absent.
func (b *Block) GetMeta(key string) (int64, bool) {
	v, ok := b.Meta[key]
	return v, ok
}

// DeleteMeta removes a tag if present.
func (b *Block) DeleteMeta(key string) {
	delete(b.Meta, key)
}

// ReplaceUses rewrites every use of old with new across the function,
// excluding uses inside skip (which may be nil).
func (f *Func) ReplaceUses(old, new *Value, skip map[*Value]bool) {
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v == new || skip[v] {
				continue
			}
			for i, a := range v.Args {
				if a == old {
					v.Args[i] = new
				}
			}
		}
		if b.Control == old {
			b.Control = new
		}
	}
}

// Users returns every value that takes v as an argument.
func (f *Func) Users(v *Value) []*Value {
	var users []*Value
	for _, b := range f.Blocks {
		for _, u := range b.Values {
			for _, a := range u.Args {
				if a == v {
					users = append(users, u)
					break
				}
			}
		}
	}
	return users
}

// Postorder returns the blocks reachable from entry in postorder.
func (f *Func) Postorder() []*Block {
	seen := make(map[*Block]bool, len(f.Blocks))
	var order []*Block
	var walk func(b *Block)
	walk = func(b *Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if !seen[s] {
				walk(s)
			}
		}
		order = append(order, b)
	}
	if f.Entry != nil {
		walk(f.Entry)
	}
	return order
}

// ReversePostorder returns the blocks reachable from entry in reverse
// postorder.
func (f *Func) ReversePostorder() []*Block {
	po := f.Postorder()
	for i, j := 0, len(po)-1; i < j; i, j = i+1, j-1 {
		po[i], po[j] = po[j], po[i]
	}
	return po
}

// String renders the function in a stable textual form. Used by diagnostics
// and by tests asserting that a rejected attempt left the IR untouched.
func (f *Func) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(%d args):\n", f.Name, f.NumArgs)
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "b%d %s:", b.ID, b.Name)
		if len(b.Preds) > 0 {
			sb.WriteString(" <-")
			for _, p := range b.Preds {
				fmt.Fprintf(&sb, " b%d", p.ID)
			}
		}
		sb.WriteByte('\n')
		for _, v := range b.Values {
			fmt.Fprintf(&sb, "  %s\n", v)
		}
		switch b.Kind {
		case BlockPlain:
			fmt.Fprintf(&sb, "  jmp b%d\n", b.Succs[0].ID)
		case BlockIf:
			fmt.Fprintf(&sb, "  if v%d -> b%d b%d\n", b.Control.ID, b.Succs[0].ID, b.Succs[1].ID)
		case BlockRet:
			if b.Control != nil {
				fmt.Fprintf(&sb, "  ret v%d\n", b.Control.ID)
			} else {
				sb.WriteString("  ret\n")
			}
		}
	}
	return sb.String()
}

func (v *Value) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "v%d = %s %s", v.ID, v.Op, v.Type)
	for _, a := range v.Args {
		fmt.Fprintf(&sb, " v%d", a.ID)
	}
	switch v.Op {
	case OpConst, OpArg, OpRamp, OpInsertLane, OpExtractLane:
		fmt.Fprintf(&sb, " [%d]", v.AuxInt)
	case OpCall:
		fmt.Fprintf(&sb, " {%s}", v.Aux)
	}
	return sb.String()
}
