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
	"math"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// ParallelDistance marks an unbounded dependence distance: no data hazard
// at any iteration separation.
const ParallelDistance = int64(math.MaxInt32)

// Metadata keys on loop header blocks.
const (
	metaEnable     = "loopvec.vectorize.enable"
	metaAlreadyVec = "loopvec.vectorize.already"
	metaWidth      = "loopvec.vectorize.width"
	metaDepDist    = "loopvec.depdist"
	metaParallel   = "loopvec.parallel"
)

type opt[T any] struct {
	val T
	set bool
}

func optOf[T any](v T) opt[T] { return opt[T]{val: v, set: true} }

func (o opt[T]) isSet() bool { return o.set }

func (o opt[T]) safeGet(dflt T) T {
	if o.set {
		return o.val
	}
	return dflt
}

// LoopAnnotation is the per-loop metadata record steering an attempt.
// All fields are optional; absent fields fall back at the use site.
type LoopAnnotation struct {
	VectorizeEnable   opt[bool]
	AlreadyVectorized opt[bool]
	ExplicitWidth     opt[int]
	MinDepDist        opt[int64]
}

// GetLoopAnnotation decodes the annotation metadata of l's header.
func GetLoopAnnotation(l *ir.Loop) LoopAnnotation {
	var a LoopAnnotation
	h := l.Header
	if v, ok := h.GetMeta(metaEnable); ok {
		a.VectorizeEnable = optOf(v != 0)
	}
	if v, ok := h.GetMeta(metaAlreadyVec); ok {
		a.AlreadyVectorized = optOf(v != 0)
	}
	if v, ok := h.GetMeta(metaWidth); ok {
		a.ExplicitWidth = optOf(int(v))
	}
	if v, ok := h.GetMeta(metaDepDist); ok {
		a.MinDepDist = optOf(v)
	}
	return a
}

// IsAnnotatedParallel reports whether l carries the fully-parallel tag.
func IsAnnotatedParallel(l *ir.Loop) bool {
	v, ok := l.Header.GetMeta(metaParallel)
	return ok && v != 0
}

// MarkLoopParallel tags a loop as fully parallel. This is the annotation a
// frontend places on loops it knows to be hazard free.
func MarkLoopParallel(l *ir.Loop) { l.Header.SetMeta(metaParallel, 1) }

// SetLoopVectorizeEnable tags a loop as an explicit vectorization
// candidate.
func SetLoopVectorizeEnable(l *ir.Loop, enable bool) {
	v := int64(0)
	if enable {
		v = 1
	}
	l.Header.SetMeta(metaEnable, v)
}

// SetLoopExplicitWidth pins a vector width for the loop, bypassing the
// cost model.
func SetLoopExplicitWidth(l *ir.Loop, width int) {
	l.Header.SetMeta(metaWidth, int64(width))
}

// SetLoopMinDepDist records the minimum dependence distance annotation.
func SetLoopMinDepDist(l *ir.Loop, dist int64) {
	l.Header.SetMeta(metaDepDist, dist)
}

// markAlreadyVectorized tags the residual loop after a successful
// transform so later runs skip it.
func markAlreadyVectorized(l *ir.Loop) {
	l.Header.SetMeta(metaAlreadyVec, 1)
}

// clearVectorizeAnnotations strips the trigger annotations from the
// prepared loop so nested passes do not re-enter it.
func clearVectorizeAnnotations(h *ir.Block) {
	h.DeleteMeta(metaEnable)
	h.DeleteMeta(metaWidth)
	h.DeleteMeta(metaDepDist)
	h.DeleteMeta(metaParallel)
}

// DepDistToString renders a dependence distance, treating ParallelDistance
// as unbounded.
func DepDistToString(d int64) string {
	if d >= ParallelDistance {
		return "unbounded"
	}
	return fmt.Sprintf("%d", d)
}

func (a LoopAnnotation) String() string {
	return fmt.Sprintf("{enable=%v alreadyVectorized=%v explicitWidth=%v minDepDist=%s}",
		a.VectorizeEnable.safeGet(false),
		a.AlreadyVectorized.safeGet(false),
		a.ExplicitWidth.safeGet(0),
		DepDistToString(a.MinDepDist.safeGet(ParallelDistance)))
}
