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
	"sort"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// VectorizationInfo is the working set of one vectorization attempt: the
// chosen width, the region, and every value's pinned or inferred shape. It
// is owned by exactly one attempt and discarded on completion or failure;
// nothing in it survives a bail-out.
type VectorizationInfo struct {
	Func   *ir.Func
	Region *LoopRegion
	Width  int

	pinned map[*ir.Value]VectorShape
	shapes map[*ir.Value]VectorShape

	// Reductions maps classified reduction phis to their descriptors for
	// the widening step.
	Reductions map[*ir.Value]*Reduction

	// Strides maps classified induction phis to their patterns.
	Strides map[*ir.Value]*StridePattern
}

// NewVectorizationInfo starts an attempt working set.
func NewVectorizationInfo(f *ir.Func, width int, region *LoopRegion) *VectorizationInfo {
	return &VectorizationInfo{
		Func:       f,
		Region:     region,
		Width:      width,
		pinned:     map[*ir.Value]VectorShape{},
		shapes:     map[*ir.Value]VectorShape{},
		Reductions: map[*ir.Value]*Reduction{},
		Strides:    map[*ir.Value]*StridePattern{},
	}
}

// SetPinnedShape fixes a value's shape before propagation. Pinned shapes
// are never weakened by the analysis.
func (vi *VectorizationInfo) SetPinnedShape(v *ir.Value, s VectorShape) {
	vi.pinned[v] = s
	vi.shapes[v] = s
}

// IsPinned reports whether v's shape was pinned.
func (vi *VectorizationInfo) IsPinned(v *ir.Value) bool {
	_, ok := vi.pinned[v]
	return ok
}

// SetShape records an inferred shape.
func (vi *VectorizationInfo) SetShape(v *ir.Value, s VectorShape) {
	vi.shapes[v] = s
}

// Shape returns the current shape of v, undefined when not yet inferred.
func (vi *VectorizationInfo) Shape(v *ir.Value) VectorShape {
	return vi.shapes[v]
}

// Dump writes the shape table in value-ID order.
func (vi *VectorizationInfo) Dump(w io.Writer) {
	ids := make([]*ir.Value, 0, len(vi.shapes))
	for v := range vi.shapes {
		ids = append(ids, v)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].ID < ids[j].ID })
	fmt.Fprintf(w, "vecInfo width=%d\n", vi.Width)
	for _, v := range ids {
		pin := ""
		if vi.IsPinned(v) {
			pin = " (pinned)"
		}
		fmt.Fprintf(w, "  v%d: %s%s\n", v.ID, vi.shapes[v], pin)
	}
}
