package loopvec

import (
	"testing"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

func TestPickWidthForRegion(t *testing.T) {
	f := buildSaxpy(64, false)
	l := topLoop(t, f)
	region := NewLoopRegion(l)

	tests := []struct {
		name    string
		bits    int
		initial int
		want    int
	}{
		{"AVX512", 512, 8, 8},
		{"AVX2", 256, 8, 4},
		{"ClampedInitial", 512, 3, 2},
		{"InitialOne", 512, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewCostModel(NewPlatformInfo(tt.bits, "test"), DefaultConfig())
			if got := cm.PickWidthForRegion(region, tt.initial); got != tt.want {
				t.Errorf("PickWidthForRegion(initial=%d, %d bits) = %d, want %d",
					tt.initial, tt.bits, got, tt.want)
			}
		})
	}
}

func TestPickWidthDeterministic(t *testing.T) {
	f := buildSaxpy(64, false)
	region := NewLoopRegion(topLoop(t, f))
	cm := NewCostModel(NewPlatformInfo(512, "test"), DefaultConfig())
	first := cm.PickWidthForRegion(region, 8)
	for i := 0; i < 10; i++ {
		if got := cm.PickWidthForRegion(region, 8); got != first {
			t.Fatalf("width flapped: %d then %d", first, got)
		}
	}
}

func TestPickWidthUnresolvableCall(t *testing.T) {
	// A loop whose body calls a function with no vector variant at any
	// width is infeasible for the whole search.
	f := ir.NewFunc("callloop", 0)
	entry := f.NewBlock(ir.BlockPlain, "entry")
	header := f.NewBlock(ir.BlockIf, "loop")
	body := f.NewBlock(ir.BlockPlain, "body")
	exit := f.NewBlock(ir.BlockRet, "exit")

	zero := entry.Const(0)
	bound := entry.Const(32)
	i := header.NewValue(ir.OpPhi, ir.Scalar)
	header.Control = header.NewValue(ir.OpCmpLT, ir.Scalar, i, bound)
	c := body.NewValue(ir.OpCall, ir.Scalar, i)
	c.Aux = "mystery"
	body.NewValue(ir.OpStore, ir.Scalar, i, c)
	iNext := body.NewValue(ir.OpAdd, ir.Scalar, i, body.Const(1))
	entry.AddEdge(header)
	header.AddEdge(body)
	header.AddEdge(exit)
	body.AddEdge(header)
	i.Args = []*ir.Value{zero, iNext}

	region := NewLoopRegion(topLoop(t, f))

	bare := NewCostModel(NewPlatformInfo(512, "test"), DefaultConfig())
	if got := bare.PickWidthForRegion(region, 8); got != 1 {
		t.Errorf("PickWidthForRegion without resolver = %d, want 1", got)
	}

	plat := NewPlatformInfo(512, "test")
	lr := NewListResolver()
	lr.AddMapping("mystery", 4, "mystery_x4")
	plat.AddResolverService(lr, false)
	cm := NewCostModel(plat, DefaultConfig())
	// Width 8 is infeasible, width 4 resolves and wins.
	if got := cm.PickWidthForRegion(region, 8); got != 4 {
		t.Errorf("PickWidthForRegion with width-4 mapping = %d, want 4", got)
	}
}

func TestFloorPow2(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 4}, {7, 4}, {8, 8}, {1000, 512},
	}
	for _, tt := range tests {
		if got := floorPow2(tt.n); got != tt.want {
			t.Errorf("floorPow2(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
