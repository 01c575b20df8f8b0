package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null/v6"
)

func TestSortBars_OrdersAndDedupes(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []PriceBar{
		{Timestamp: t0.AddDate(0, 0, 2), Close: 3},
		{Timestamp: t0, Close: 1},
		{Timestamp: t0.AddDate(0, 0, 1), Close: 2},
		{Timestamp: t0, Close: 1.5},
	}
	got := SortBars(bars)
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	want := []float64{1.5, 2, 3}
	for i, b := range got {
		if b.Close != want[i] {
			t.Errorf("bar %d: close=%v, want %v", i, b.Close, want[i])
		}
	}
}

func TestDateLayoutFor(t *testing.T) {
	daily := []PriceBar{
		{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	if got := DateLayoutFor(daily); got != DateLayout {
		t.Errorf("daily: got %q", got)
	}
	intraday := append(daily, PriceBar{Timestamp: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)})
	if got := DateLayoutFor(intraday); got != DateTimeLayout {
		t.Errorf("intraday: got %q", got)
	}
}

func TestTable_MarshalJSON(t *testing.T) {
	bars := []PriceBar{
		{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 200},
	}
	cols := []Column{{Name: "SMA", Values: []null.Float{{}, null.FloatFrom(11)}}}
	tbl, err := NewTable("AAPL", bars, cols)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	raw, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"symbol":"AAPL","data":[` +
		`{"Date":"2024-03-01","Open":10,"High":11,"Low":9,"Close":10.5,"Volume":100,"SMA":null},` +
		`{"Date":"2024-03-04","Open":10.5,"High":12,"Low":10,"Close":11.5,"Volume":200,"SMA":11}]}`
	if string(raw) != want {
		t.Errorf("got  %s\nwant %s", raw, want)
	}
}

func TestNewTable_RejectsMisalignedColumn(t *testing.T) {
	bars := []PriceBar{{Timestamp: time.Now()}}
	_, err := NewTable("X", bars, []Column{{Name: "EMA", Values: nil}})
	if err == nil {
		t.Fatal("expected error for misaligned column")
	}
}

func TestCacheEntry_Fresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := CacheEntry{FetchedAt: now.Add(-9 * time.Minute)}
	if !e.Fresh(now, 10*time.Minute) {
		t.Error("9m old entry should be fresh under 10m TTL")
	}
	e.FetchedAt = now.Add(-10 * time.Minute)
	if e.Fresh(now, 10*time.Minute) {
		t.Error("10m old entry should be stale under 10m TTL")
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("TD.TO", "1y", Interval1d, "price"); got != "TD.TO-1y-1d-price" {
		t.Errorf("got %q", got)
	}
}
