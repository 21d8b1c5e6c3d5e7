package loopvec

import (
	"testing"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// buildTwoExitLoop leaves the loop both from the header test and from a
// break inside the body.
func buildTwoExitLoop(n int64) *ir.Func {
	f := ir.NewFunc("twoexit", 0)
	entry := f.NewBlock(ir.BlockPlain, "entry")
	header := f.NewBlock(ir.BlockIf, "loop")
	body := f.NewBlock(ir.BlockIf, "body")
	latch := f.NewBlock(ir.BlockPlain, "latch")
	exit := f.NewBlock(ir.BlockRet, "exit")

	zero := entry.Const(0)
	bound := entry.Const(n)
	limit := entry.Const(90)

	i := header.NewValue(ir.OpPhi, ir.Scalar)
	header.Control = header.NewValue(ir.OpCmpLT, ir.Scalar, i, bound)

	xv := body.NewValue(ir.OpLoad, ir.Scalar, i)
	body.Control = body.NewValue(ir.OpCmpLT, ir.Scalar, xv, limit)

	iNext := latch.NewValue(ir.OpAdd, ir.Scalar, i, latch.Const(1))

	entry.AddEdge(header)
	header.AddEdge(body)
	header.AddEdge(exit)
	body.AddEdge(latch)
	body.AddEdge(exit)
	latch.AddEdge(header)
	i.Args = []*ir.Value{zero, iNext}
	return f
}

func TestCanVectorizeLoop(t *testing.T) {
	t.Run("SingleExit", func(t *testing.T) {
		f := buildSaxpy(20, false)
		if !canVectorizeLoop(topLoop(t, f)) {
			t.Errorf("canVectorizeLoop(saxpy) = false, want true")
		}
	})

	t.Run("TwoExits", func(t *testing.T) {
		f := buildTwoExitLoop(20)
		if canVectorizeLoop(topLoop(t, f)) {
			t.Errorf("canVectorizeLoop(two exits) = true, want false")
		}
	})
}

func TestGetTripCount(t *testing.T) {
	if got := getTripCount(topLoop(t, buildSaxpy(20, false))); got != 20 {
		t.Errorf("getTripCount(constant bound) = %d, want 20", got)
	}
	if got := getTripCount(topLoop(t, buildSaxpy(0, true))); got != -1 {
		t.Errorf("getTripCount(dynamic bound) = %d, want -1", got)
	}
}

func TestGetTripAlignment(t *testing.T) {
	if got := getTripAlignment(topLoop(t, buildSaxpy(24, false))); got != 24 {
		t.Errorf("getTripAlignment(constant bound) = %d, want 24", got)
	}
	if got := getTripAlignment(topLoop(t, buildSaxpy(0, true))); got != 1 {
		t.Errorf("getTripAlignment(dynamic bound) = %d, want 1", got)
	}
}

func TestVectorizeTwoExitLoopRejected(t *testing.T) {
	f := buildTwoExitLoop(20)
	MarkLoopParallel(topLoop(t, f))
	before := f.String()
	lv := newTestVectorizer(f)
	lv.Env.ForceWidth = 4
	if lv.Run() {
		t.Errorf("Run() = true on a loop with two exits")
	}
	if f.String() != before {
		t.Errorf("rejected run mutated the function")
	}
}
