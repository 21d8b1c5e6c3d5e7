package ir

import "testing"

func TestBuildLoopInfo(t *testing.T) {
	cl := buildCountLoop(0, 10, 1)
	li, l := loopOf(cl.f)

	if len(li.TopLevel) != 1 {
		t.Fatalf("TopLevel loops = %d, want 1", len(li.TopLevel))
	}
	if l.Header != cl.header {
		t.Errorf("loop header = %v, want %v", l.Header.Name, cl.header.Name)
	}
	if l.Latch != cl.body {
		t.Errorf("loop latch = %v, want %v", l.Latch.Name, cl.body.Name)
	}
	if !l.Contains(cl.header) || !l.Contains(cl.body) {
		t.Errorf("loop misses its own blocks")
	}
	if l.Contains(cl.entry) || l.Contains(cl.exit) {
		t.Errorf("loop contains blocks outside the cycle")
	}
	if got := l.Preheader(); got != cl.entry {
		t.Errorf("Preheader() = %v, want entry", got)
	}
	if got := l.ExitingBlock(); got != cl.header {
		t.Errorf("ExitingBlock() = %v, want header", got)
	}
	if got := l.ExitBlock(); got != cl.exit {
		t.Errorf("ExitBlock() = %v, want exit", got)
	}
}

func TestBuildLoopInfoNested(t *testing.T) {
	// for (i = 0; i < 8; i++) { for (j = 0; j < 8; j++) {} }
	f := NewFunc("nested", 0)
	entry := f.NewBlock(BlockPlain, "entry")
	oh := f.NewBlock(BlockIf, "outer")
	opre := f.NewBlock(BlockPlain, "outer.body")
	ih := f.NewBlock(BlockIf, "inner")
	ibody := f.NewBlock(BlockPlain, "inner.body")
	olatch := f.NewBlock(BlockPlain, "outer.latch")
	exit := f.NewBlock(BlockRet, "exit")

	c0 := entry.Const(0)
	c8 := entry.Const(8)

	i := oh.NewValue(OpPhi, Scalar)
	oh.Control = oh.NewValue(OpCmpLT, Scalar, i, c8)

	j := ih.NewValue(OpPhi, Scalar)
	ih.Control = ih.NewValue(OpCmpLT, Scalar, j, c8)

	jnext := ibody.NewValue(OpAdd, Scalar, j, ibody.Const(1))
	inext := olatch.NewValue(OpAdd, Scalar, i, olatch.Const(1))

	entry.AddEdge(oh)
	oh.AddEdge(opre)
	oh.AddEdge(exit)
	opre.AddEdge(ih)
	ih.AddEdge(ibody)
	ih.AddEdge(olatch)
	ibody.AddEdge(ih)
	olatch.AddEdge(oh)
	i.Args = []*Value{c0, inext}
	j.Args = []*Value{c0, jnext}

	li, outer := loopOf(f)
	if len(li.TopLevel) != 1 {
		t.Fatalf("TopLevel loops = %d, want 1", len(li.TopLevel))
	}
	if outer.Header != oh {
		t.Fatalf("outer header = %v, want %v", outer.Header.Name, oh.Name)
	}
	if len(outer.Children) != 1 {
		t.Fatalf("outer children = %d, want 1", len(outer.Children))
	}
	inner := outer.Children[0]
	if inner.Header != ih {
		t.Errorf("inner header = %v, want %v", inner.Header.Name, ih.Name)
	}
	if inner.Parent != outer {
		t.Errorf("inner parent = %v, want outer", inner.Parent)
	}
	if !outer.Contains(ih) || !outer.Contains(ibody) {
		t.Errorf("outer loop does not contain the inner loop blocks")
	}
	if inner.Contains(olatch) {
		t.Errorf("inner loop contains the outer latch")
	}
	if got := li.LoopFor(ih); got != inner {
		t.Errorf("LoopFor(inner header) = %v, want inner", got)
	}
}

func TestParseIndVar(t *testing.T) {
	cl := buildCountLoop(2, 20, 3)
	_, l := loopOf(cl.f)

	iv := ParseIndVar(l, cl.iv)
	if iv == nil {
		t.Fatalf("ParseIndVar() = nil, want match")
	}
	if iv.Step != 3 {
		t.Errorf("Step = %d, want 3", iv.Step)
	}
	if iv.Init.AuxInt != 2 {
		t.Errorf("Init = %d, want 2", iv.Init.AuxInt)
	}
	if iv.Bound == nil || iv.Bound.AuxInt != 20 {
		t.Errorf("Bound = %v, want Const 20", iv.Bound)
	}
	if iv.Next != cl.next {
		t.Errorf("Next = %v, want the latch increment", iv.Next)
	}
}

func TestTripCount(t *testing.T) {
	tests := []struct {
		name   string
		init   int64
		bound  int64
		step   int64
		want   int64
		wantOK bool
	}{
		{"Simple", 0, 10, 1, 10, true},
		{"NonUnitStep", 0, 10, 3, 4, true},
		{"OffsetInit", 2, 20, 3, 6, true},
		{"Empty", 5, 5, 1, 0, false},
		{"Negative", 10, 5, 1, 0, false},
		{"TooShort", 0, 2, 1, 0, false},
		{"ThreeTrips", 0, 3, 1, 3, true},
		{"DownwardStep", 0, 10, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := buildCountLoop(tt.init, tt.bound, tt.step)
			_, l := loopOf(cl.f)
			got, ok := TripCount(l)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("TripCount(%d,%d,%d) = %d,%v, want %d,%v",
					tt.init, tt.bound, tt.step, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
