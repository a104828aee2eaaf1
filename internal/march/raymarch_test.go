package march

import (
	"math"
	"testing"

	"sdfterm/raymarch/internal/scene"
	"sdfterm/raymarch/internal/vecmath"
)

var unitSphere = scene.SampleFunc(scene.SphereSDF)

func TestShortestDistanceHitsSphere(t *testing.T) {
	m := Default()
	depth := m.ShortestDistance(unitSphere, vecmath.Vec3{Z: 5}, vecmath.Vec3{Z: -1}, MinDist, MaxDist)
	//1.- Ray should touch the unit sphere four units along the negative Z axis.
	if math.Abs(depth-4) > Epsilon {
		t.Fatalf("expected depth 4, got %f", depth)
	}
	if m.Missed(depth, MaxDist) {
		t.Fatal("expected a hit")
	}
}

func TestShortestDistanceMissReturnsBudget(t *testing.T) {
	m := Default()
	depth := m.ShortestDistance(unitSphere, vecmath.Vec3{Z: 5}, vecmath.Vec3{Z: 1}, MinDist, MaxDist)
	if depth != MaxDist {
		t.Fatalf("expected exactly %f, got %f", MaxDist, depth)
	}
	if !m.Missed(depth, MaxDist) {
		t.Fatal("expected miss")
	}
}

func TestShortestDistanceStartingOnSurface(t *testing.T) {
	m := Default()
	//1.- The start offset lands exactly on the sphere so no step is taken.
	depth := m.ShortestDistance(unitSphere, vecmath.Vec3{Z: 1.25}, vecmath.Vec3{Z: -1}, 0.25, MaxDist)
	if math.Abs(depth-0.25) > Epsilon {
		t.Fatalf("expected start distance 0.25, got %f", depth)
	}
}

func TestShortestDistanceExhaustionIsMiss(t *testing.T) {
	m := Marcher{MaxSteps: 3, Epsilon: Epsilon}
	crawl := scene.SampleFunc(func(vecmath.Vec3) float64 { return 0.01 })
	depth := m.ShortestDistance(crawl, vecmath.Vec3{}, vecmath.Vec3{X: 1}, 0, MaxDist)
	if depth != MaxDist {
		t.Fatalf("expected exhausted march to return %f, got %f", MaxDist, depth)
	}
}

func TestShortestDistanceGrazingRayMisses(t *testing.T) {
	m := Default()
	dir := vecmath.Vec3{X: 1.2, Z: -5}.Normalize()
	depth := m.ShortestDistance(unitSphere, vecmath.Vec3{Z: 5}, dir, MinDist, MaxDist)
	if !m.Missed(depth, MaxDist) {
		t.Fatalf("expected grazing ray to miss, got depth %f", depth)
	}
}
