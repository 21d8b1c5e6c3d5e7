package loopvec

import (
	"testing"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// Test loops address a flat memory image: x lives at [0, n), y at
// [yBase, yBase+n).
const yBase = 512

// buildSaxpy is y[i] = 3*x[i] + y[i] over i in [0, n). With dynamicBound
// the bound is the function's first argument instead of a constant.
func buildSaxpy(n int64, dynamicBound bool) *ir.Func {
	numArgs := 0
	if dynamicBound {
		numArgs = 1
	}
	f := ir.NewFunc("saxpy", numArgs)
	entry := f.NewBlock(ir.BlockPlain, "entry")
	header := f.NewBlock(ir.BlockIf, "loop")
	body := f.NewBlock(ir.BlockPlain, "body")
	exit := f.NewBlock(ir.BlockRet, "exit")

	zero := entry.Const(0)
	var bound *ir.Value
	if dynamicBound {
		bound = entry.NewValue(ir.OpArg, ir.Scalar)
		bound.AuxInt = 0
	} else {
		bound = entry.Const(n)
	}
	base := entry.Const(yBase)
	three := entry.Const(3)

	i := header.NewValue(ir.OpPhi, ir.Scalar)
	header.Control = header.NewValue(ir.OpCmpLT, ir.Scalar, i, bound)

	xv := body.NewValue(ir.OpLoad, ir.Scalar, i)
	yAddr := body.NewValue(ir.OpAdd, ir.Scalar, i, base)
	yv := body.NewValue(ir.OpLoad, ir.Scalar, yAddr)
	prod := body.NewValue(ir.OpMul, ir.Scalar, three, xv)
	sum := body.NewValue(ir.OpAdd, ir.Scalar, prod, yv)
	body.NewValue(ir.OpStore, ir.Scalar, yAddr, sum)
	iNext := body.NewValue(ir.OpAdd, ir.Scalar, i, body.Const(1))

	entry.AddEdge(header)
	header.AddEdge(body)
	header.AddEdge(exit)
	body.AddEdge(header)
	i.Args = []*ir.Value{zero, iNext}
	return f
}

// buildSum is sum += x[i] over i in [0, n), returning the sum.
func buildSum(n int64) *ir.Func {
	f := ir.NewFunc("sum", 0)
	entry := f.NewBlock(ir.BlockPlain, "entry")
	header := f.NewBlock(ir.BlockIf, "loop")
	body := f.NewBlock(ir.BlockPlain, "body")
	exit := f.NewBlock(ir.BlockRet, "exit")

	zero := entry.Const(0)
	bound := entry.Const(n)

	i := header.NewValue(ir.OpPhi, ir.Scalar)
	acc := header.NewValue(ir.OpPhi, ir.Scalar)
	header.Control = header.NewValue(ir.OpCmpLT, ir.Scalar, i, bound)

	xv := body.NewValue(ir.OpLoad, ir.Scalar, i)
	accNext := body.NewValue(ir.OpAdd, ir.Scalar, acc, xv)
	iNext := body.NewValue(ir.OpAdd, ir.Scalar, i, body.Const(1))

	entry.AddEdge(header)
	header.AddEdge(body)
	header.AddEdge(exit)
	body.AddEdge(header)
	i.Args = []*ir.Value{zero, iNext}
	acc.Args = []*ir.Value{zero, accNext}
	exit.Control = acc
	return f
}

// buildCondStore is: if (x[i] < 50) y[i] = 2*x[i], a divergent triangle
// inside the loop.
func buildCondStore(n int64) *ir.Func {
	f := ir.NewFunc("condstore", 0)
	entry := f.NewBlock(ir.BlockPlain, "entry")
	header := f.NewBlock(ir.BlockIf, "loop")
	check := f.NewBlock(ir.BlockIf, "check")
	store := f.NewBlock(ir.BlockPlain, "store")
	latch := f.NewBlock(ir.BlockPlain, "latch")
	exit := f.NewBlock(ir.BlockRet, "exit")

	zero := entry.Const(0)
	bound := entry.Const(n)
	base := entry.Const(yBase)
	fifty := entry.Const(50)

	i := header.NewValue(ir.OpPhi, ir.Scalar)
	header.Control = header.NewValue(ir.OpCmpLT, ir.Scalar, i, bound)

	xv := check.NewValue(ir.OpLoad, ir.Scalar, i)
	check.Control = check.NewValue(ir.OpCmpLT, ir.Scalar, xv, fifty)

	two := store.Const(2)
	doubled := store.NewValue(ir.OpMul, ir.Scalar, two, xv)
	yAddr := store.NewValue(ir.OpAdd, ir.Scalar, i, base)
	store.NewValue(ir.OpStore, ir.Scalar, yAddr, doubled)

	iNext := latch.NewValue(ir.OpAdd, ir.Scalar, i, latch.Const(1))

	entry.AddEdge(header)
	header.AddEdge(check)
	header.AddEdge(exit)
	check.AddEdge(store)
	check.AddEdge(latch)
	store.AddEdge(latch)
	latch.AddEdge(header)
	i.Args = []*ir.Value{zero, iNext}
	return f
}

// topLoop rebuilds loop info and returns the first top-level loop.
func topLoop(t *testing.T, f *ir.Func) *ir.Loop {
	t.Helper()
	li := ir.BuildLoopInfo(f, ir.BuildDomTree(f))
	if len(li.TopLevel) == 0 {
		t.Fatalf("no loops found in %s", f.Name)
	}
	return li.TopLevel[0]
}

// fillMem seeds x[i] = seed + i over a 2*yBase image.
func fillMem(seed int64) []int64 {
	mem := make([]int64, 2*yBase)
	for i := 0; i < yBase; i++ {
		mem[i] = seed + int64(i)
		mem[yBase+i] = 7 * int64(i)
	}
	return mem
}

// runBoth executes the scalar and transformed functions on fresh copies of
// the same image and fails on any difference in memory or return value.
func runBoth(t *testing.T, scalar, transformed *ir.Func, args []int64) {
	t.Helper()
	in := &ir.Interp{}

	wantMem := fillMem(40)
	wantRet, err := in.Run(scalar, args, wantMem)
	if err != nil {
		t.Fatalf("scalar run: %v", err)
	}
	gotMem := fillMem(40)
	gotRet, err := in.Run(transformed, args, gotMem)
	if err != nil {
		t.Fatalf("transformed run: %v", err)
	}

	if len(wantRet) != len(gotRet) {
		t.Fatalf("return lanes = %d, want %d", len(gotRet), len(wantRet))
	}
	for i := range wantRet {
		if gotRet[i] != wantRet[i] {
			t.Fatalf("return[%d] = %d, want %d", i, gotRet[i], wantRet[i])
		}
	}
	for i := range wantMem {
		if gotMem[i] != wantMem[i] {
			t.Fatalf("mem[%d] = %d, want %d", i, gotMem[i], wantMem[i])
		}
	}
}

// defaultTestPlatform is wide enough for every width the tests force.
func defaultTestPlatform() *PlatformInfo {
	return NewPlatformInfo(512, "test")
}

func newTestVectorizer(f *ir.Func) *LoopVectorizer {
	return &LoopVectorizer{
		F:      f,
		Config: DefaultConfig(),
		Plat:   defaultTestPlatform(),
		Rep:    NewReporter(nil, false),
	}
}
