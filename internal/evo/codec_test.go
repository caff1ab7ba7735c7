package evo

import (
	"math"
	"math/rand"
	"testing"

	"goad/internal/surface"
)

func TestCodecRandomBounds(t *testing.T) {
	codec, err := NewCodec(surface.Profile{
		CenterXY: [2]float64{5, 5},
		ZMax:     10,
	}, 3)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		g := codec.Random(rng, "g")

		dx := g.Position[0] - 5
		dy := g.Position[1] - 5
		if math.Hypot(dx, dy) > codec.SearchRadius {
			t.Fatalf("lateral position outside search disk: %v", g.Position)
		}
		if g.Position[2] < 10+codec.SurfaceBuffer || g.Position[2] > 10+codec.MaxHeight {
			t.Fatalf("height outside band: %v", g.Position[2])
		}
		for _, angle := range g.Orientation {
			if angle < 0 || angle >= 360 {
				t.Fatalf("orientation out of range: %v", angle)
			}
		}
		if len(g.Torsions) != 3 {
			t.Fatalf("torsion count: got %d want 3", len(g.Torsions))
		}
		for _, angle := range g.Torsions {
			if angle < 0 || angle >= 360 {
				t.Fatalf("torsion out of range: %v", angle)
			}
		}
		if g.Evaluated() {
			t.Fatal("random genome must start unevaluated")
		}
	}
}

func TestCodecRejectsNegativeTorsionCount(t *testing.T) {
	if _, err := NewCodec(surface.Profile{}, -1); err == nil {
		t.Fatal("expected error for negative torsion count")
	}
}

func TestCodecRandomIsSeeded(t *testing.T) {
	codec, err := NewCodec(surface.Profile{ZMax: 3}, 2)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	a := codec.Random(rand.New(rand.NewSource(42)), "a")
	b := codec.Random(rand.New(rand.NewSource(42)), "b")
	if a.Position != b.Position || a.Orientation != b.Orientation {
		t.Fatal("same seed must produce the same genome")
	}
}
