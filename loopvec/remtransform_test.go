package loopvec

import (
	"strings"
	"testing"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

func splitSaxpy(t *testing.T, n int64, dynamic bool, width int) (*ir.Func, *ir.Loop, []*ir.Value) {
	t.Helper()
	f := buildSaxpy(n, dynamic)
	l := topLoop(t, f)
	rt := NewRemainderTransform(f, ir.BuildDomTree(f))
	var overrides []*ir.Value
	prepared := rt.CreateVectorizableLoop(l, &overrides, width, getTripAlignment(l))
	if prepared == nil {
		t.Fatalf("CreateVectorizableLoop(n=%d, width=%d) = nil, want split", n, width)
	}
	return f, prepared, overrides
}

func TestRemainderSplitStructure(t *testing.T) {
	f, prepared, overrides := splitSaxpy(t, 10, false, 4)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("Verify() after split = %v", err)
	}
	if !strings.HasSuffix(prepared.Header.Name, ".vec") {
		t.Errorf("prepared header = %q, want .vec suffix", prepared.Header.Name)
	}
	bridge := prepared.ExitBlock()
	if bridge == nil || !strings.HasSuffix(bridge.Name, ".bridge") {
		t.Fatalf("prepared exit = %v, want the bridge block", bridge)
	}
	if len(bridge.Succs) != 1 {
		t.Fatalf("bridge successors = %d, want 1", len(bridge.Succs))
	}
	remHeader := bridge.Succs[0]
	if remHeader.Name != "loop" {
		t.Errorf("bridge target = %q, want the original header", remHeader.Name)
	}
	// The remainder header phis are seeded from the main loop's final
	// values along the bridge edge.
	bridgeIdx := remHeader.PredIndex(bridge)
	if bridgeIdx < 0 {
		t.Fatalf("bridge is not a predecessor of the remainder header")
	}
	for _, phi := range remHeader.Phis() {
		arg := phi.Args[bridgeIdx]
		if arg.Block != prepared.Header {
			t.Errorf("remainder phi v%d seeded from b%d, want the main header", phi.ID, arg.Block.ID)
		}
	}
	// Static trip count: the adjusted bound is a constant override.
	if len(overrides) == 0 {
		t.Errorf("overrides are empty, want adjusted bound and exit test")
	}
}

func TestRemainderSplitBoundMath(t *testing.T) {
	// Trip 17 at width 4: the main loop covers 16 iterations, the
	// remainder one.
	_, prepared, overrides := splitSaxpy(t, 17, false, 4)
	iv := ir.ParseIndVar(prepared, prepared.Header.Phis()[0])
	if iv == nil || iv.Bound == nil {
		t.Fatalf("prepared loop lost its induction")
	}
	if iv.Bound.Op != ir.OpConst || iv.Bound.AuxInt != 16 {
		t.Errorf("main loop bound = %v, want Const 16", iv.Bound)
	}
	if len(overrides) != 2 {
		t.Errorf("overrides = %d values, want adjusted bound and exit test", len(overrides))
	}
}

func TestRemainderSplitSemantics(t *testing.T) {
	widths := []int{2, 4, 8}
	trips := []int64{2, 3, 4, 5, 7, 8, 9, 16, 100}
	for _, w := range widths {
		for _, n := range trips {
			scalar := buildSaxpy(n, false)
			split, _, _ := splitSaxpy(t, n, false, w)
			runBoth(t, scalar, split, nil)
		}
	}
}

func TestRemainderSplitDynamicBound(t *testing.T) {
	for _, n := range []int64{0, 1, 3, 4, 9, 64, 100} {
		scalar := buildSaxpy(0, true)
		split, _, overrides := splitSaxpy(t, 0, true, 4)
		if len(overrides) < 4 {
			t.Fatalf("dynamic split overrides = %d, want bound chain and exit test", len(overrides))
		}
		runBoth(t, scalar, split, []int64{n})
	}
}

func TestRemainderSplitRejections(t *testing.T) {
	t.Run("WidthNotPow2", func(t *testing.T) {
		f := buildSaxpy(10, false)
		before := f.String()
		l := topLoop(t, f)
		rt := NewRemainderTransform(f, ir.BuildDomTree(f))
		var ov []*ir.Value
		if got := rt.CreateVectorizableLoop(l, &ov, 3, getTripAlignment(l)); got != nil {
			t.Fatalf("CreateVectorizableLoop(width=3) = %v, want nil", got)
		}
		if f.String() != before {
			t.Errorf("rejected split mutated the function")
		}
	})

	t.Run("WidthOne", func(t *testing.T) {
		f := buildSaxpy(10, false)
		l := topLoop(t, f)
		rt := NewRemainderTransform(f, ir.BuildDomTree(f))
		var ov []*ir.Value
		if got := rt.CreateVectorizableLoop(l, &ov, 1, getTripAlignment(l)); got != nil {
			t.Errorf("CreateVectorizableLoop(width=1) = %v, want nil", got)
		}
	})

	t.Run("DynamicBoundNonUnitStep", func(t *testing.T) {
		// i += 2 with an argument bound: the masked split formula is
		// only exact for unit stride.
		f := buildSaxpy(0, true)
		l := topLoop(t, f)
		var iv *ir.Value
		for _, phi := range l.Header.Phis() {
			iv = phi
		}
		pat := ir.ParseIndVar(l, iv)
		for i, a := range pat.Next.Args {
			if a.Op == ir.OpConst {
				pat.Next.Args[i] = pat.Next.Block.Const(2)
			}
		}
		before := f.String()
		rt := NewRemainderTransform(f, ir.BuildDomTree(f))
		var ov []*ir.Value
		if got := rt.CreateVectorizableLoop(l, &ov, 4, getTripAlignment(l)); got != nil {
			t.Fatalf("CreateVectorizableLoop(step=2, dynamic) = %v, want nil", got)
		}
		if f.String() != before {
			t.Errorf("rejected split mutated the function")
		}
	})
}

func TestRemainderSplitAlignedTrip(t *testing.T) {
	// Trip count divisible by the width: the main loop keeps the
	// original bound and the remainder never runs.
	scalar := buildSaxpy(16, false)
	split, prepared, _ := splitSaxpy(t, 16, false, 4)

	iv := ir.ParseIndVar(prepared, prepared.Header.Phis()[0])
	if iv == nil || iv.Bound == nil {
		t.Fatalf("prepared loop lost its induction")
	}
	if iv.Bound.Op != ir.OpConst || iv.Bound.AuxInt != 16 {
		t.Errorf("prepared bound = %v, want the original constant 16", iv.Bound)
	}
	runBoth(t, scalar, split, nil)
}
