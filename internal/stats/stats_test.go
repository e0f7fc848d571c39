package stats

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); !almostEqual(got, 5) {
		t.Errorf("Mean = %v, want 5", got)
	}
	if got := StdDev(values); !almostEqual(got, 2) {
		t.Errorf("StdDev = %v, want 2", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	cv, err := CoefficientOfVariation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(cv, 0.4) {
		t.Errorf("CV = %v, want 0.4", cv)
	}

	if _, err := CoefficientOfVariation([]float64{-1, 1}); !errors.Is(err, ErrZeroMean) {
		t.Errorf("expected ErrZeroMean, got %v", err)
	}
	if _, err := CoefficientOfVariation(nil); !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestPointBiserial(t *testing.T) {
	t.Run("perfect separation", func(t *testing.T) {
		r, err := PointBiserial([]float64{1, 1, 3, 3}, []bool{false, false, true, true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(r, 1) {
			t.Errorf("r = %v, want 1", r)
		}
	})

	t.Run("matches pearson", func(t *testing.T) {
		values := []float64{10, 20, 30, 25, 5}
		outcomes := []bool{false, true, true, false, false}
		r, err := PointBiserial(values, outcomes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Pearson with 0/1 coding
		ys := []float64{0, 1, 1, 0, 0}
		mx, my := Mean(values), Mean(ys)
		var cov float64
		for i := range values {
			cov += (values[i] - mx) * (ys[i] - my)
		}
		cov /= float64(len(values))
		want := cov / (StdDev(values) * StdDev(ys))
		if !almostEqual(r, want) {
			t.Errorf("r = %v, want %v", r, want)
		}
	})

	t.Run("zero variance outcome", func(t *testing.T) {
		_, err := PointBiserial([]float64{1, 2}, []bool{true, true})
		if !errors.Is(err, ErrZeroVariance) {
			t.Errorf("expected ErrZeroVariance, got %v", err)
		}
	})

	t.Run("zero variance values", func(t *testing.T) {
		_, err := PointBiserial([]float64{4, 4}, []bool{true, false})
		if !errors.Is(err, ErrZeroVariance) {
			t.Errorf("expected ErrZeroVariance, got %v", err)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := PointBiserial([]float64{1, 2, 3}, []bool{true})
		if !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
	})
}

func TestWilsonInterval(t *testing.T) {
	low, high := WilsonInterval(0, 0, 1.96)
	if low != 0 || high != 0 {
		t.Errorf("empty interval = [%v, %v]", low, high)
	}

	low, high = WilsonInterval(5, 10, 1.96)
	if !(low < 0.5 && high > 0.5) {
		t.Errorf("interval [%v, %v] should contain 0.5", low, high)
	}
	if low < 0 || high > 1 {
		t.Errorf("interval [%v, %v] out of bounds", low, high)
	}
}
