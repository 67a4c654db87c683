package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"pvbt/internal/domain"
)

func nativeMinuteBars(t0 time.Time, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		open := t0.Add(time.Duration(i) * time.Minute)
		bars[i] = domain.Bar{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute),
			Open:      c, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: 10,
		}
	}
	return bars
}

func TestParseCadence(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30m", 30 * time.Minute},
		{"30min", 30 * time.Minute},
		{"30 minutes", 30 * time.Minute},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1 day", 24 * time.Hour},
		{"2days", 48 * time.Hour},
		// Unit words ending in "d" are durations, not day counts.
		{"1second", time.Second},
		{"1 second", time.Second},
		{"30 seconds", 30 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseCadence(tt.in)
		if err != nil {
			t.Errorf("ParseCadence(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCadence(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCadenceInvalid(t *testing.T) {
	for _, in := range []string{"banana", "-30m", "0m", "0d", "x1d"} {
		_, err := ParseCadence(in)
		if err == nil {
			t.Errorf("ParseCadence(%q) accepted invalid cadence", in)
			continue
		}
		if !errors.Is(err, ErrInvalidCadence) {
			t.Errorf("ParseCadence(%q) error = %v, want ErrInvalidCadence", in, err)
		}
	}
}

func TestBuildTradeBarsIdentity(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 101, 102})

	got, err := BuildTradeBars(bars, 0, Boundary{})
	if err != nil {
		t.Fatalf("BuildTradeBars: %v", err)
	}
	if len(got) != len(bars) {
		t.Fatalf("identity produced %d trade bars, want %d", len(got), len(bars))
	}
	for i := range got {
		if got[i].Close != bars[i].Close || !got[i].OpenTime.Equal(bars[i].OpenTime) {
			t.Errorf("trade bar %d differs from native bar", i)
		}
	}
}

// Resampling at the native cadence must reproduce the unresampled sequence.
func TestBuildTradeBarsNativeCadenceIdentity(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 101, 102, 99, 100})

	native, err := BuildTradeBars(bars, 0, Boundary{})
	if err != nil {
		t.Fatal(err)
	}
	resampled, err := BuildTradeBars(bars, time.Minute, Boundary{})
	if err != nil {
		t.Fatal(err)
	}

	if len(resampled) != len(native) {
		t.Fatalf("native-cadence resample produced %d bars, want %d", len(resampled), len(native))
	}
	for i := range native {
		n, r := native[i], resampled[i]
		if n.Open != r.Open || n.High != r.High || n.Low != r.Low || n.Close != r.Close || n.Volume != r.Volume {
			t.Errorf("bar %d: resampled OHLCV %+v != native %+v", i, r, n)
		}
		if !n.OpenTime.Equal(r.OpenTime) || !n.CloseTime.Equal(r.CloseTime) {
			t.Errorf("bar %d: boundary mismatch", i)
		}
	}
}

func TestBuildTradeBarsAggregation(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 104, 98, 102})

	got, err := BuildTradeBars(bars, 2*time.Minute, Boundary{})
	if err != nil {
		t.Fatalf("BuildTradeBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d trade bars, want 2", len(got))
	}

	// First bucket aggregates minutes 0-1: open=first, high=max, low=min,
	// close=last, volume=sum.
	b := got[0]
	if b.Open != 100 {
		t.Errorf("Open = %v, want 100", b.Open)
	}
	if b.High != 104.5 {
		t.Errorf("High = %v, want 104.5", b.High)
	}
	if b.Low != 99.5 {
		t.Errorf("Low = %v, want 99.5", b.Low)
	}
	if b.Close != 104 {
		t.Errorf("Close = %v, want 104", b.Close)
	}
	if b.Volume != 20 {
		t.Errorf("Volume = %v, want 20", b.Volume)
	}
	if !b.OpenTime.Equal(t0) || !b.CloseTime.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("bucket boundaries = [%v, %v), want [%v, %v)", b.OpenTime, b.CloseTime, t0, t0.Add(2*time.Minute))
	}
}

func TestBuildTradeBarsDropsIncompleteIntervals(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 101, 102, 103})
	// Wipe all prices in the second bucket.
	for i := 2; i <= 3; i++ {
		bars[i].Open = math.NaN()
		bars[i].High = math.NaN()
		bars[i].Low = math.NaN()
		bars[i].Close = math.NaN()
	}

	got, err := BuildTradeBars(bars, 2*time.Minute, Boundary{})
	if err != nil {
		t.Fatalf("BuildTradeBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d trade bars, want 1 (incomplete interval dropped, not zero-filled)", len(got))
	}
	if !got[0].OpenTime.Equal(t0) {
		t.Errorf("surviving bar OpenTime = %v, want %v", got[0].OpenTime, t0)
	}
}

func TestBuildTradeBarsMissingColumn(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 101})
	for i := range bars {
		bars[i].Open = math.NaN()
		bars[i].High = math.NaN()
		bars[i].Low = math.NaN()
		bars[i].Close = math.NaN()
	}

	_, err := BuildTradeBars(bars, time.Minute, Boundary{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("resampling without OHLC data returned %v, want ErrMissingColumn", err)
	}
}

func TestBuildTradeBarsBoundaryConventions(t *testing.T) {
	// A bar opening exactly on a bucket boundary belongs to the interval
	// starting there under left-closed bucketing, and to the interval ending
	// there under right-closed bucketing.
	t0 := time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC)
	bars := []domain.Bar{{
		OpenTime:  t0,
		CloseTime: t0.Add(time.Minute),
		Open:      100, High: 100, Low: 100, Close: 100,
	}}

	left, err := BuildTradeBars(bars, 30*time.Minute, Boundary{Closed: ClosedLeft})
	if err != nil {
		t.Fatal(err)
	}
	if !left[0].OpenTime.Equal(t0) {
		t.Errorf("left-closed bucket starts at %v, want %v", left[0].OpenTime, t0)
	}

	right, err := BuildTradeBars(bars, 30*time.Minute, Boundary{Closed: ClosedRight})
	if err != nil {
		t.Fatal(err)
	}
	if !right[0].CloseTime.Equal(t0) {
		t.Errorf("right-closed bucket ends at %v, want %v", right[0].CloseTime, t0)
	}
}

func TestBuildTradeBarsLabeling(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := nativeMinuteBars(t0, []float64{100, 101})

	open, err := BuildTradeBars(bars, 2*time.Minute, Boundary{Label: LabelOpen})
	if err != nil {
		t.Fatal(err)
	}
	if !open[0].Label.Equal(open[0].OpenTime) {
		t.Errorf("open-labeled bar Label = %v, want %v", open[0].Label, open[0].OpenTime)
	}

	closed, err := BuildTradeBars(bars, 2*time.Minute, Boundary{Label: LabelClose})
	if err != nil {
		t.Fatal(err)
	}
	if !closed[0].Label.Equal(closed[0].CloseTime) {
		t.Errorf("close-labeled bar Label = %v, want %v", closed[0].Label, closed[0].CloseTime)
	}
}
