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

// Loop is one natural loop: the header, the latch carrying the back edge,
// and every block in the body. Children are nested loops.
type Loop struct {
	Header   *Block
	Latch    *Block
	Blocks   map[*Block]bool
	Parent   *Loop
	Children []*Loop
}

// Contains reports whether b belongs to the loop body.
func (l *Loop) Contains(b *Block) bool { return l.Blocks[b] }

// Preheader returns the unique out-of-loop predecessor of the header, or
// nil when the header has several loop-external predecessors.
func (l *Loop) Preheader() *Block {
	var pre *Block
	for _, p := range l.Header.Preds {
		if l.Contains(p) {
			continue
		}
		if pre != nil {
			return nil
		}
		pre = p
	}
	return pre
}

// ExitingBlock returns the unique block inside the loop with a successor
// outside it, or nil if there are several.
func (l *Loop) ExitingBlock() *Block {
	var exiting *Block
	for b := range l.Blocks {
		for _, s := range b.Succs {
			if !l.Contains(s) {
				if exiting != nil && exiting != b {
					return nil
				}
				exiting = b
			}
		}
	}
	return exiting
}

// ExitBlock returns the unique out-of-loop successor of the exiting block,
// or nil.
func (l *Loop) ExitBlock() *Block {
	exiting := l.ExitingBlock()
	if exiting == nil {
		return nil
	}
	var exit *Block
	for _, s := range exiting.Succs {
		if !l.Contains(s) {
			if exit != nil {
				return nil
			}
			exit = s
		}
	}
	return exit
}

// Name identifies the loop by its header block in diagnostics.
func (l *Loop) Name() string { return l.Header.Name }

// LoopInfo is the loop forest of one function.
type LoopInfo struct {
	TopLevel []*Loop
	byHeader map[*Block]*Loop
}

// LoopFor returns the innermost loop headed by b, or nil.
func (li *LoopInfo) LoopFor(header *Block) *Loop { return li.byHeader[header] }

// Loops returns every loop in the forest, outermost first.
func (li *LoopInfo) Loops() []*Loop {
	var all []*Loop
	var walk func(l *Loop)
	walk = func(l *Loop) {
		all = append(all, l)
		for _, c := range l.Children {
			walk(c)
		}
	}
	for _, l := range li.TopLevel {
		walk(l)
	}
	return all
}

// BuildLoopInfo discovers the natural loops of f. A back edge is an edge
// u->h where h dominates u; the loop body is found by walking predecessors
// backward from the latch until the header. Loops sharing a header are
// merged. Nesting follows body containment.
func BuildLoopInfo(f *Func, dt *DomTree) *LoopInfo {
	li := &LoopInfo{byHeader: map[*Block]*Loop{}}

	for _, b := range f.ReversePostorder() {
		for _, s := range b.Succs {
			if !dt.Dominates(s, b) {
				continue
			}
			// b->s is a back edge; s is the header.
			l := li.byHeader[s]
			if l == nil {
				l = &Loop{Header: s, Latch: b, Blocks: map[*Block]bool{s: true}}
				li.byHeader[s] = l
			}
			// Walk backward from the latch collecting the body.
			stack := []*Block{b}
			for len(stack) > 0 {
				x := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if l.Blocks[x] {
					continue
				}
				l.Blocks[x] = true
				for _, p := range x.Preds {
					stack = append(stack, p)
				}
			}
		}
	}

	// Nest loops: the parent is the smallest other loop containing the
	// header.
	loops := make([]*Loop, 0, len(li.byHeader))
	for _, l := range li.byHeader {
		loops = append(loops, l)
	}
	for _, l := range loops {
		var parent *Loop
		for _, other := range loops {
			if other == l || !other.Contains(l.Header) {
				continue
			}
			if parent == nil || len(other.Blocks) < len(parent.Blocks) {
				parent = other
			}
		}
		l.Parent = parent
	}
	for _, l := range loops {
		if l.Parent != nil {
			l.Parent.Children = append(l.Parent.Children, l)
		}
	}

	// Deterministic order by header block ID.
	var tops []*Loop
	for _, b := range f.Blocks {
		if l := li.byHeader[b]; l != nil && l.Parent == nil {
			tops = append(tops, l)
		}
	}
	li.TopLevel = tops
	for _, l := range loops {
		sortLoopsByHeader(l.Children)
	}
	return li
}

func sortLoopsByHeader(ls []*Loop) {
	for i := 1; i < len(ls); i++ {
		for j := i; j > 0 && ls[j-1].Header.ID > ls[j].Header.ID; j-- {
			ls[j-1], ls[j] = ls[j], ls[j-1]
		}
	}
}
