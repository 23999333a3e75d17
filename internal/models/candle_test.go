package models

import (
	"errors"
	"testing"
)

func TestParseCandle(t *testing.T) {
	raw := []any{
		float64(1620000000000), "100", "110", "90", "105", "50",
		float64(1620000899999), "5250", float64(42), "0", "0", "0",
	}

	candle, err := ParseCandle(raw, "15m")
	if err != nil {
		t.Fatalf("ParseCandle failed: %v", err)
	}

	if candle.StartTimestamp != 1620000000000 {
		t.Errorf("Expected start 1620000000000, got %d", candle.StartTimestamp)
	}
	if candle.EndTimestamp != 1620000899999 {
		t.Errorf("Expected end 1620000899999, got %d", candle.EndTimestamp)
	}
	if candle.Open != 100 || candle.High != 110 || candle.Low != 90 || candle.Close != 105 {
		t.Errorf("Unexpected OHLC: %+v", candle)
	}
	if candle.VolumeBase != 50 {
		t.Errorf("Expected base volume 50, got %v", candle.VolumeBase)
	}
	if candle.VolumeQuote != 5250 {
		t.Errorf("Expected quote volume 5250, got %v", candle.VolumeQuote)
	}
	if candle.NumOfTrades != 42 {
		t.Errorf("Expected 42 trades, got %d", candle.NumOfTrades)
	}
	if candle.TimeFrame != 15 {
		t.Errorf("Expected timeframe 15, got %d", candle.TimeFrame)
	}
}

func TestParseCandleInvalid(t *testing.T) {
	tests := []struct {
		name     string
		raw      []any
		interval string
	}{
		{
			"too short",
			[]any{float64(1), "100"},
			"15m",
		},
		{
			"end before start",
			[]any{float64(2000), "100", "110", "90", "105", "50", float64(1000), "5250", float64(1)},
			"15m",
		},
		{
			"high below close",
			[]any{float64(1000), "100", "101", "90", "105", "50", float64(2000), "5250", float64(1)},
			"15m",
		},
		{
			"non-numeric open",
			[]any{float64(1000), "abc", "110", "90", "105", "50", float64(2000), "5250", float64(1)},
			"15m",
		},
		{
			"bad interval",
			[]any{float64(1000), "100", "110", "90", "105", "50", float64(2000), "5250", float64(1)},
			"banana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCandle(tt.raw, tt.interval)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			var malformed *MalformedPayloadError
			if !errors.As(err, &malformed) {
				t.Errorf("Expected MalformedPayloadError, got %T", err)
			}
		})
	}
}

func TestTimeframeMinutes(t *testing.T) {
	tests := []struct {
		interval string
		minutes  int
		wantErr  bool
	}{
		{"1m", 1, false},
		{"15m", 15, false},
		{"1h", 60, false},
		{"4h", 240, false},
		{"1d", 1440, false},
		{"1w", 10080, false},
		{"1M", 43200, false},
		{"", 0, true},
		{"m", 0, true},
		{"0m", 0, true},
		{"15x", 0, true},
	}

	for _, tt := range tests {
		got, err := TimeframeMinutes(tt.interval)
		if tt.wantErr {
			if err == nil {
				t.Errorf("TimeframeMinutes(%q): expected error", tt.interval)
			}
			continue
		}
		if err != nil {
			t.Errorf("TimeframeMinutes(%q): %v", tt.interval, err)
			continue
		}
		if got != tt.minutes {
			t.Errorf("TimeframeMinutes(%q) = %d, want %d", tt.interval, got, tt.minutes)
		}
	}
}

func TestParseKline(t *testing.T) {
	k := map[string]any{
		"t": float64(1620000000000),
		"T": float64(1620000899999),
		"i": "15m",
		"o": "100", "h": "110", "l": "90", "c": "105",
		"v": "50", "q": "5250", "n": float64(42),
	}

	candle, err := ParseKline(k)
	if err != nil {
		t.Fatalf("ParseKline failed: %v", err)
	}
	if candle.Close != 105 || candle.TimeFrame != 15 || candle.NumOfTrades != 42 {
		t.Errorf("Unexpected candle: %+v", candle)
	}

	delete(k, "c")
	if _, err := ParseKline(k); err == nil {
		t.Error("Expected error for missing close")
	}
}
