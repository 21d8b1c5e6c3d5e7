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

// DomTree holds immediate-dominator links for one function. It is a
// snapshot: any CFG mutation invalidates it and callers must rebuild.
type DomTree struct {
	idom map[*Block]*Block
}

// BuildDomTree computes the dominator tree of f using the iterative
// Cooper/Harvey/Kennedy scheme over reverse postorder.
func BuildDomTree(f *Func) *DomTree {
	rpo := f.ReversePostorder()
	return &DomTree{idom: buildIdoms(f.Entry, rpo, func(b *Block) []*Block { return b.Preds })}
}

// BuildPostDomTree computes the post-dominator tree of f. Functions with
// several return blocks are joined through a virtual exit, represented by a
// nil immediate post-dominator on each return block.
func BuildPostDomTree(f *Func) *DomTree {
	// Postorder of the reversed CFG == reverse postorder from the exits.
	var exits []*Block
	for _, b := range f.Blocks {
		if b.Kind == BlockRet {
			exits = append(exits, b)
		}
	}
	if len(exits) == 0 {
		return &DomTree{idom: map[*Block]*Block{}}
	}

	seen := make(map[*Block]bool, len(f.Blocks))
	var order []*Block
	var walk func(b *Block)
	walk = func(b *Block) {
		seen[b] = true
		for _, p := range b.Preds {
			if !seen[p] {
				walk(p)
			}
		}
		order = append(order, b)
	}
	for _, e := range exits {
		if !seen[e] {
			walk(e)
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	idom := buildIdomsMulti(exits, order, func(b *Block) []*Block { return b.Succs })
	return &DomTree{idom: idom}
}

func buildIdoms(root *Block, rpo []*Block, preds func(*Block) []*Block) map[*Block]*Block {
	return buildIdomsMulti([]*Block{root}, rpo, preds)
}

func buildIdomsMulti(roots []*Block, rpo []*Block, preds func(*Block) []*Block) map[*Block]*Block {
	// virtual joins all roots so the intersect walk terminates when the
	// CFG (or reversed CFG) has several entry points.
	virtual := &Block{ID: -1}

	rpoNum := make(map[*Block]int, len(rpo)+1)
	rpoNum[virtual] = -1
	for i, b := range rpo {
		rpoNum[b] = i
	}
	isRoot := make(map[*Block]bool, len(roots))
	for _, r := range roots {
		isRoot[r] = true
	}

	idom := make(map[*Block]*Block, len(rpo)+1)
	idom[virtual] = virtual
	for _, r := range roots {
		idom[r] = virtual
	}

	intersect := func(a, b *Block) *Block {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				a = idom[a]
			}
			for rpoNum[b] > rpoNum[a] {
				b = idom[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if isRoot[b] {
				continue
			}
			var newIdom *Block
			for _, p := range preds(b) {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(newIdom, p)
				}
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	// The virtual node is an artifact of the algorithm.
	delete(idom, virtual)
	for b, d := range idom {
		if d == virtual {
			idom[b] = nil
		}
	}
	return idom
}

// Idom returns the immediate dominator of b, nil for the root.
func (dt *DomTree) Idom(b *Block) *Block { return dt.idom[b] }

// Dominates reports whether a dominates b (reflexively).
func (dt *DomTree) Dominates(a, b *Block) bool {
	for b != nil {
		if a == b {
			return true
		}
		b = dt.idom[b]
	}
	return false
}
