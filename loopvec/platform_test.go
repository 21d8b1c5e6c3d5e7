package loopvec

import (
	"strings"
	"testing"
)

func TestMaxVectorWidth(t *testing.T) {
	tests := []struct {
		bits int
		want int
	}{
		{512, 8},
		{256, 4},
		{128, 2},
		{64, 1},
		{0, 1},
	}
	for _, tt := range tests {
		p := NewPlatformInfo(tt.bits, "test")
		if got := p.MaxVectorWidth(); got != tt.want {
			t.Errorf("MaxVectorWidth(%d bits) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}

func TestResolverChainOrder(t *testing.T) {
	p := NewPlatformInfo(256, "test")

	first := NewListResolver()
	first.AddMapping("f", 4, "f_first")
	second := NewListResolver()
	second.AddMapping("f", 4, "f_second")
	second.AddMapping("g", 4, "g_second")

	p.AddResolverService(first, false)
	p.AddResolverService(second, false)

	if got, ok := p.Resolve("f", 4); !ok || got != "f_first" {
		t.Errorf("Resolve(f, 4) = %q,%v, want f_first", got, ok)
	}
	if got, ok := p.Resolve("g", 4); !ok || got != "g_second" {
		t.Errorf("Resolve(g, 4) = %q,%v, want g_second", got, ok)
	}
	if _, ok := p.Resolve("f", 8); ok {
		t.Errorf("Resolve(f, 8) = ok, want miss")
	}

	// givePrecedence puts a late addition in front.
	third := NewListResolver()
	third.AddMapping("f", 4, "f_third")
	p.AddResolverService(third, true)
	if got, _ := p.Resolve("f", 4); got != "f_third" {
		t.Errorf("Resolve(f, 4) after precedence = %q, want f_third", got)
	}
}

func TestVecMathResolver(t *testing.T) {
	p := NewPlatformInfo(512, "test")
	addVecMathResolver(p)

	tests := []struct {
		name  string
		width int
		want  string
		ok    bool
	}{
		{"sin", 4, "sin_x4", true},
		{"exp", 8, "exp_x8", true},
		{"sqrt", 2, "sqrt_x2", true},
		{"sin", 3, "", false},
		{"tan", 4, "", false},
	}
	for _, tt := range tests {
		got, ok := p.Resolve(tt.name, tt.width)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Resolve(%q, %d) = %q,%v, want %q,%v", tt.name, tt.width, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecursiveResolver(t *testing.T) {
	p := NewPlatformInfo(256, "test")
	addRecursiveResolver(p)
	if got, ok := p.Resolve("anything", 4); !ok || got != "anything_x4" {
		t.Errorf("Resolve(anything, 4) = %q,%v, want anything_x4", got, ok)
	}
}

func TestPlatformPrint(t *testing.T) {
	p := NewPlatformInfo(256, "avx2")
	var sb strings.Builder
	p.Print(&sb)
	if !strings.Contains(sb.String(), "avx2") || !strings.Contains(sb.String(), "256") {
		t.Errorf("Print() = %q, want isa and bits", sb.String())
	}
}
