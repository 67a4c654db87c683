package backtest

import (
	"math"
	"testing"
	"time"
)

func recordAt(label time.Time, pnl, turnover float64) PositionRecord {
	return PositionRecord{
		Bar:      TradeBar{Label: label, OpenTime: label, CloseTime: label.Add(time.Minute)},
		PnL:      pnl,
		Turnover: turnover,
	}
}

func TestAggregateDailyGrouping(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	records := []PositionRecord{
		recordAt(d1, 0.01, 1),
		recordAt(d1.Add(time.Hour), 0.02, 0),
		recordAt(d2, -0.01, 2),
	}

	daily := AggregateDaily(records, 1, time.UTC)

	if len(daily) != 2 {
		t.Fatalf("got %d daily records, want 2", len(daily))
	}
	if math.Abs(daily[0].PnL-0.03) > 1e-12 {
		t.Errorf("day 1 PnL = %v, want 0.03", daily[0].PnL)
	}
	if daily[0].Bars != 2 || daily[1].Bars != 1 {
		t.Errorf("bar counts = %d,%d, want 2,1", daily[0].Bars, daily[1].Bars)
	}
	if daily[0].Turnover != 1 || daily[1].Turnover != 2 {
		t.Errorf("turnovers = %v,%v, want 1,2", daily[0].Turnover, daily[1].Turnover)
	}
}

func TestAggregateDailyTimezoneBoundary(t *testing.T) {
	// 17:30 and 18:30 UTC on June 1 fall on June 2 in Asia/Hong_Kong
	// (UTC+8), so the timezone decides which calendar day owns them.
	hk, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	t1 := time.Date(2025, 6, 1, 17, 30, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	records := []PositionRecord{
		recordAt(t1, 0.01, 1),
		recordAt(t2, 0.01, 1),
	}

	utcDaily := AggregateDaily(records, 1, time.UTC)
	if len(utcDaily) != 1 {
		t.Fatalf("UTC grouping produced %d days, want 1", len(utcDaily))
	}
	if utcDaily[0].Day.Day() != 1 {
		t.Errorf("UTC day = %v, want June 1", utcDaily[0].Day)
	}

	hkDaily := AggregateDaily(records, 1, hk)
	if len(hkDaily) != 1 {
		t.Fatalf("HK grouping produced %d days, want 1", len(hkDaily))
	}
	if hkDaily[0].Day.Day() != 2 {
		t.Errorf("HK day = %v, want June 2", hkDaily[0].Day)
	}
}

func TestAggregateDailyEquityCurve(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []PositionRecord{
		recordAt(t0, 0.10, 1),
		recordAt(t0.AddDate(0, 0, 1), -0.05, 1),
		recordAt(t0.AddDate(0, 0, 2), 0.02, 1),
	}

	daily := AggregateDaily(records, 1, time.UTC)

	// equity[d] = equity[d-1] * (1 + return[d]), seeded at 1.0.
	prev := 1.0
	for i := range daily {
		want := prev * (1 + daily[i].Return)
		if math.Abs(daily[i].Equity-want) > 1e-12 {
			t.Errorf("Equity[%d] = %v, want %v", i, daily[i].Equity, want)
		}
		prev = daily[i].Equity
	}
}

func TestAggregateDailyNotionalScalesReturn(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []PositionRecord{recordAt(t0, 5.0, 1)}

	daily := AggregateDaily(records, 100, time.UTC)

	if math.Abs(daily[0].Return-0.05) > 1e-12 {
		t.Errorf("Return = %v, want 0.05 (pnl / notional)", daily[0].Return)
	}
}

func TestAggregateDailyZeroTurnoverSentinel(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []PositionRecord{recordAt(t0, 0.01, 0)}

	daily := AggregateDaily(records, 1, time.UTC)

	if !math.IsNaN(daily[0].ProfitOverTurnover) {
		t.Errorf("ProfitOverTurnover = %v, want NaN on a zero-turnover day", daily[0].ProfitOverTurnover)
	}
}

func TestSharpeRatio(t *testing.T) {
	daily := []DailyRecord{
		{Return: 0.01},
		{Return: 0.02},
		{Return: -0.01},
		{Return: 0.03},
	}

	got := SharpeRatio(daily)

	// mean = 0.0125, sample std = sqrt(sum((x-m)^2)/3).
	mean := 0.0125
	ss := 0.0
	for _, d := range daily {
		ss += (d.Return - mean) * (d.Return - mean)
	}
	want := mean / math.Sqrt(ss/3) * math.Sqrt(252)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("SharpeRatio = %v, want %v", got, want)
	}
}

func TestSharpeRatioUndefined(t *testing.T) {
	// Fewer than two days.
	if s := SharpeRatio([]DailyRecord{{Return: 0.01}}); !math.IsNaN(s) {
		t.Errorf("SharpeRatio with one day = %v, want NaN", s)
	}
	if s := SharpeRatio(nil); !math.IsNaN(s) {
		t.Errorf("SharpeRatio with no days = %v, want NaN", s)
	}
	// Zero variance.
	flat := []DailyRecord{{Return: 0.01}, {Return: 0.01}, {Return: 0.01}}
	if s := SharpeRatio(flat); !math.IsNaN(s) {
		t.Errorf("SharpeRatio with zero variance = %v, want NaN", s)
	}
}

func TestTotalReturn(t *testing.T) {
	daily := []DailyRecord{{Return: 0.10}, {Return: -0.05}}

	got := TotalReturn(daily)

	want := 1.10*0.95 - 1
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("TotalReturn = %v, want %v", got, want)
	}

	if tr := TotalReturn(nil); tr != 0 {
		t.Errorf("TotalReturn with no days = %v, want 0", tr)
	}
}
