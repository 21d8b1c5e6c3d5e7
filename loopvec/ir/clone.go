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

// CloneRegion duplicates a set of blocks and their instructions into f.
// Value arguments and block controls referring to cloned values are
// remapped; references to values outside the region are kept. No CFG edges
// are wired: the caller owns edge construction and must keep predecessor
// order consistent with the cloned phi argument order.
//
// Blocks are cloned in f.Blocks layout order so the result is
// deterministic.
func CloneRegion(f *Func, region map[*Block]bool, suffix string) (map[*Value]*Value, map[*Block]*Block) {
	vmap := make(map[*Value]*Value)
	bmap := make(map[*Block]*Block)

	var ordered []*Block
	for _, b := range f.Blocks {
		if region[b] {
			ordered = append(ordered, b)
		}
	}

	// First pass: allocate blocks and value shells so phis and forward
	// references resolve.
	for _, b := range ordered {
		nb := f.NewBlock(b.Kind, b.Name+suffix)
		if b.Meta != nil {
			nb.Meta = make(map[string]int64, len(b.Meta))
			for k, v := range b.Meta {
				nb.Meta[k] = v
			}
		}
		bmap[b] = nb
		for _, v := range b.Values {
			nv := nb.NewValue(v.Op, v.Type)
			nv.AuxInt = v.AuxInt
			nv.Aux = v.Aux
			vmap[v] = nv
		}
	}

	remap := func(v *Value) *Value {
		if nv, ok := vmap[v]; ok {
			return nv
		}
		return v
	}

	// Second pass: fill arguments and controls.
	for _, b := range ordered {
		for _, v := range b.Values {
			nv := vmap[v]
			nv.Args = make([]*Value, len(v.Args))
			for i, a := range v.Args {
				nv.Args[i] = remap(a)
			}
		}
		if b.Control != nil {
			bmap[b].Control = remap(b.Control)
		}
	}

	return vmap, bmap
}
