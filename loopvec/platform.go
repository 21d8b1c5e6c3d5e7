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
	"runtime"

	"golang.org/x/sys/cpu"
)

// laneBits is the width of one IR lane. Every IR value is a 64-bit
// integer, so the lane count per register is MaxVectorBits/laneBits.
const laneBits = 64

// Resolver maps a scalar callee to a vector-width variant. Resolvers are
// consulted in chain order; the first claim wins.
type Resolver interface {
	Resolve(name string, width int) (string, bool)
}

// PlatformInfo describes the vectorization target: the widest vector
// register available and the resolver chain for calls.
type PlatformInfo struct {
	maxVectorBits int
	isa           string
	resolvers     []Resolver
}

// NewPlatformInfo returns a platform with a fixed register width in bits.
// Tests and hosts with their own target knowledge use this constructor.
func NewPlatformInfo(maxVectorBits int, isa string) *PlatformInfo {
	return &PlatformInfo{maxVectorBits: maxVectorBits, isa: isa}
}

// DetectPlatformInfo probes the running CPU for its widest vector
// register.
func DetectPlatformInfo() *PlatformInfo {
	switch runtime.GOARCH {
	case "amd64":
		switch {
		case cpu.X86.HasAVX512F:
			return NewPlatformInfo(512, "avx512")
		case cpu.X86.HasAVX2:
			return NewPlatformInfo(256, "avx2")
		default:
			return NewPlatformInfo(128, "sse2")
		}
	case "arm64":
		// NEON is baseline on arm64. SVE widths are implementation
		// defined; 128 bits is the portable floor.
		return NewPlatformInfo(128, "neon")
	}
	return NewPlatformInfo(laneBits, "scalar")
}

// MaxVectorBits returns the widest vector register in bits.
func (p *PlatformInfo) MaxVectorBits() int { return p.maxVectorBits }

// MaxVectorWidth returns the widest lane count the target supports.
func (p *PlatformInfo) MaxVectorWidth() int {
	w := p.maxVectorBits / laneBits
	if w < 1 {
		w = 1
	}
	return w
}

// ISA names the detected instruction set for diagnostics.
func (p *PlatformInfo) ISA() string { return p.isa }

// AddResolverService appends r to the resolver chain, or prepends it when
// givePrecedence is set.
func (p *PlatformInfo) AddResolverService(r Resolver, givePrecedence bool) {
	if givePrecedence {
		p.resolvers = append([]Resolver{r}, p.resolvers...)
	} else {
		p.resolvers = append(p.resolvers, r)
	}
}

// Resolve walks the resolver chain for a vector variant of name at the
// given width.
func (p *PlatformInfo) Resolve(name string, width int) (string, bool) {
	for _, r := range p.resolvers {
		if vec, ok := r.Resolve(name, width); ok {
			return vec, ok
		}
	}
	return "", false
}

// Print writes a one-line platform description.
func (p *PlatformInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "platform: isa=%s maxVectorBits=%d maxWidth=%d resolvers=%d",
		p.isa, p.maxVectorBits, p.MaxVectorWidth(), len(p.resolvers))
}

// ListResolver resolves from an explicit mapping table.
type ListResolver struct {
	mappings map[string]string // "name@width" -> vector name
}

// NewListResolver returns an empty mapping table.
func NewListResolver() *ListResolver {
	return &ListResolver{mappings: map[string]string{}}
}

// AddMapping registers a vector variant for one scalar callee and width.
func (lr *ListResolver) AddMapping(scalar string, width int, vector string) {
	lr.mappings[mappingKey(scalar, width)] = vector
}

// Resolve implements Resolver.
func (lr *ListResolver) Resolve(name string, width int) (string, bool) {
	vec, ok := lr.mappings[mappingKey(name, width)]
	return vec, ok
}

func mappingKey(name string, width int) string {
	return fmt.Sprintf("%s@%d", name, width)
}

// vecMathFuncs are the scalar math routines the builtin vector math
// library provides widened variants for, at widths 2 through 16.
var vecMathFuncs = []string{"sin", "cos", "exp", "log", "sqrt", "pow", "fma", "abs"}

// addVecMathResolver registers the builtin vector math table: every entry
// maps name to name_x<width>.
func addVecMathResolver(p *PlatformInfo) {
	lr := NewListResolver()
	for _, name := range vecMathFuncs {
		for w := 2; w <= 16; w *= 2 {
			lr.AddMapping(name, w, fmt.Sprintf("%s_x%d", name, w))
		}
	}
	p.AddResolverService(lr, false)
}

// recursiveResolver claims every callee, naming the widened variant it
// would generate. Used by greedy inter-procedural vectorization, where the
// sibling whole-function transform produces the variant on demand.
type recursiveResolver struct{}

func (recursiveResolver) Resolve(name string, width int) (string, bool) {
	return fmt.Sprintf("%s_x%d", name, width), true
}

// addRecursiveResolver enables greedy inter-procedural resolution.
func addRecursiveResolver(p *PlatformInfo) {
	p.AddResolverService(recursiveResolver{}, false)
}
