package timegrid

import (
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSnapProperties(t *testing.T) {
	for _, step := range []int{5, 15} {
		for m := 0; m < MinutesPerDay; m++ {
			got := Snap(m, step)
			if got%step != 0 {
				t.Fatalf("Snap(%d,%d)=%d, not a multiple", m, step, got)
			}
			diff := got - m
			if diff < 0 {
				diff = -diff
			}
			if float64(diff) > float64(step)/2 {
				t.Fatalf("Snap(%d,%d)=%d, off by %d", m, step, got, diff)
			}
			if again := Snap(got, step); again != got {
				t.Fatalf("Snap not idempotent: Snap(%d,%d)=%d", got, step, again)
			}
		}
	}
}

func TestSnapFloat(t *testing.T) {
	tests := []struct {
		in   float64
		step int
		want int
	}{
		{90, 5, 90},
		{92.4, 5, 90},
		{92.5, 5, 95},
		{100.00000001, 5, 100},
		{7, 15, 0},
		{8, 15, 15},
		{-2, 5, 0},
		{-3, 5, -5},
	}
	for _, tt := range tests {
		if got := SnapFloat(tt.in, tt.step); got != tt.want {
			t.Fatalf("SnapFloat(%v,%d)=%d, want %d", tt.in, tt.step, got, tt.want)
		}
	}
}

func TestPixelGeometry(t *testing.T) {
	if !approx(DayHeight, 1584) {
		t.Fatalf("DayHeight=%v, want 1584", DayHeight)
	}
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	end := start.Add(time.Hour)
	top := PixelOffset(float64(MinutesSinceStart(start)))
	height := math.Max(MinCardHeight, PixelOffset(float64(DurationMinutes(start, end))))
	if !approx(top, 594) {
		t.Fatalf("top=%v, want 594", top)
	}
	if !approx(height, 66) {
		t.Fatalf("height=%v, want 66", height)
	}
	if !approx(MinutesAt(594), 540) {
		t.Fatalf("MinutesAt(594)=%v, want 540", MinutesAt(594))
	}
}

func TestDayHelpers(t *testing.T) {
	loc := time.FixedZone("test", -3*3600)
	ts := time.Date(2026, 1, 31, 22, 45, 10, 0, loc)

	if got := MinutesSinceStart(ts); got != 22*60+45 {
		t.Fatalf("MinutesSinceStart=%d", got)
	}
	sod := StartOfDay(ts)
	if sod.Hour() != 0 || sod.Minute() != 0 || sod.Day() != 31 || sod.Location() != loc {
		t.Fatalf("StartOfDay=%v", sod)
	}
	if next := AddDays(ts, 1); next.Month() != time.February || next.Day() != 1 {
		t.Fatalf("AddDays=%v", next)
	}
	if !IsSameDay(ts, sod) || IsSameDay(ts, AddDays(ts, 1)) {
		t.Fatalf("IsSameDay mismatch")
	}
	if got := AtMinutes(ts, 90); got.Hour() != 1 || got.Minute() != 30 || got.Day() != 31 {
		t.Fatalf("AtMinutes=%v", got)
	}
	if got := AtMinutes(ts, MinutesPerDay); got.Day() != 1 || got.Hour() != 0 {
		t.Fatalf("AtMinutes(1440)=%v, want next midnight", got)
	}
	if got := AddMinutes(ts, 30); got.Day() != 31 || got.Hour() != 23 || got.Minute() != 15 {
		t.Fatalf("AddMinutes=%v", got)
	}
}

func TestDensityTier(t *testing.T) {
	tests := map[int]Tier{5: TierShort, 19: TierShort, 20: TierMedium, 44: TierMedium, 45: TierLong, 240: TierLong}
	for m, want := range tests {
		if got := DensityTier(m); got != want {
			t.Fatalf("DensityTier(%d)=%v, want %v", m, got, want)
		}
	}
}

func TestFormatting(t *testing.T) {
	start := time.Date(2026, 3, 10, 1, 30, 0, 0, time.Local)
	if got := FormatRange(start, start.Add(time.Hour)); got != "01:30 - 02:30" {
		t.Fatalf("FormatRange=%q", got)
	}
	if got := FormatMinutes(MinutesPerDay); got != "24:00" {
		t.Fatalf("FormatMinutes=%q", got)
	}
}

func TestAutoScrollOffset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	got := AutoScrollOffset(now, 400)
	if !approx(got, 720*PixelsPerMinute-140) {
		t.Fatalf("AutoScrollOffset=%v", got)
	}
	early := time.Date(2026, 3, 10, 0, 10, 0, 0, time.Local)
	if got := AutoScrollOffset(early, 400); got != 0 {
		t.Fatalf("AutoScrollOffset early=%v, want 0", got)
	}
}
