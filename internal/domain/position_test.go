package domain

import (
	"math"
	"testing"
)

func TestRectClamp(t *testing.T) {
	box := Rect{Min: Vec{0, 0}, Max: Vec{100, 50}}

	t.Run("inside point is unchanged", func(t *testing.T) {
		p := box.Clamp(Vec{10, 20})
		if p != (Vec{10, 20}) {
			t.Errorf("expected (10,20), got %v", p)
		}
	})

	t.Run("outside point moves to nearest edge", func(t *testing.T) {
		p := box.Clamp(Vec{-5, 80})
		if p != (Vec{0, 50}) {
			t.Errorf("expected (0,50), got %v", p)
		}
	})

	t.Run("infinite components clamp to the box", func(t *testing.T) {
		p := box.Clamp(Vec{math.Inf(1), math.Inf(-1)})
		if p != (Vec{100, 0}) {
			t.Errorf("expected (100,0), got %v", p)
		}
	})

	t.Run("NaN collapses to center", func(t *testing.T) {
		p := box.Clamp(Vec{math.NaN(), math.NaN()})
		if p != box.Center() {
			t.Errorf("expected center %v, got %v", box.Center(), p)
		}
	})
}

func TestVecFinite(t *testing.T) {
	if !(Vec{1, 2}).Finite() {
		t.Error("expected finite vector")
	}
	if (Vec{math.NaN(), 0}).Finite() {
		t.Error("expected NaN vector to be non-finite")
	}
	if (Vec{0, math.Inf(1)}).Finite() {
		t.Error("expected Inf vector to be non-finite")
	}
}

func TestVecLen(t *testing.T) {
	if got := (Vec{3, 4}).Len(); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
}
