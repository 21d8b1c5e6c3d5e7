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

// Package loopvec implements outer-loop auto-vectorization: legality
// checking, cost-driven vector width selection, remainder splitting,
// classification of loop-carried values, divergence-aware linearization and
// widening code generation, sequenced per loop by LoopVectorizer.
package loopvec

import "fmt"

// shapeKind orders the lattice: undefined < uniform = strided < varying.
type shapeKind uint8

const (
	shapeUndef shapeKind = iota
	shapeUniform
	shapeStrided
	shapeVarying
)

// VectorShape classifies a value across SIMD lanes. Uniform values are
// identical in every lane, strided values advance by a fixed per-lane
// offset, varying values are unconstrained. The zero VectorShape is
// undefined, meaning not yet determined.
type VectorShape struct {
	kind   shapeKind
	stride int64
}

// UndefShape is the bottom element: not yet determined.
func UndefShape() VectorShape { return VectorShape{} }

// UniformShape is the shape of a value identical across lanes.
func UniformShape() VectorShape { return VectorShape{kind: shapeUniform} }

// StridedShape is the shape of a value advancing by stride per lane.
// Stride zero collapses to uniform.
func StridedShape(stride int64) VectorShape {
	if stride == 0 {
		return UniformShape()
	}
	return VectorShape{kind: shapeStrided, stride: stride}
}

// VaryingShape is the top element: unconstrained per-lane values.
func VaryingShape() VectorShape { return VectorShape{kind: shapeVarying} }

// IsDefined reports whether the shape has been determined.
func (s VectorShape) IsDefined() bool { return s.kind != shapeUndef }

// IsUniform reports whether every lane holds the same value.
func (s VectorShape) IsUniform() bool { return s.kind == shapeUniform }

// IsStrided reports whether the shape is an affine per-lane offset.
// Uniform counts, with stride zero.
func (s VectorShape) IsStrided() bool {
	return s.kind == shapeStrided || s.kind == shapeUniform
}

// IsVarying reports whether the shape is unconstrained.
func (s VectorShape) IsVarying() bool { return s.kind == shapeVarying }

// Stride returns the per-lane stride of a strided or uniform shape.
func (s VectorShape) Stride() int64 { return s.stride }

// Join computes the least upper bound of two shapes. Strided shapes with
// different strides join to varying.
func (s VectorShape) Join(o VectorShape) VectorShape {
	if s.kind == shapeUndef {
		return o
	}
	if o.kind == shapeUndef {
		return s
	}
	if s.kind == shapeVarying || o.kind == shapeVarying {
		return VaryingShape()
	}
	// Both uniform or strided; equal strides stay precise.
	if s.stride == o.stride {
		return s
	}
	return VaryingShape()
}

func (s VectorShape) String() string {
	switch s.kind {
	case shapeUndef:
		return "undef"
	case shapeUniform:
		return "uni"
	case shapeStrided:
		return fmt.Sprintf("stride(%d)", s.stride)
	case shapeVarying:
		return "varying"
	}
	panic("unreachable")
}
