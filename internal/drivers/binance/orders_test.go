package binance

import (
	"math"
	"testing"

	"github.com/emre-gn/tradeflow/internal/models"
)

func TestNormalizeQuantity(t *testing.T) {
	contract := models.Contract{
		Symbol:            "BTCUSDT",
		LotSize:           0.001,
		QuantityPrecision: 3,
	}

	tests := []struct {
		name     string
		quantity float64
		price    float64
		want     float64
	}{
		{"already above minimum", 0.5, 20000, 0.5},
		{"single bump clears notional", 0.0004, 20000, 0.001},
		{"multiple bumps needed", 0.0001, 5000, 0.002},
		{"exactly at minimum", 0.0005, 20000, 0.001},
		{"rounded to precision", 0.0014999, 20000, 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeQuantity(contract, tt.quantity, tt.price)
			if err != nil {
				t.Fatalf("normalizeQuantity failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if got*tt.price < minNotional-1e-6 {
				t.Errorf("Normalized notional %v still below minimum", got*tt.price)
			}
		})
	}
}

func TestNormalizeQuantityRejectsNonPositivePrice(t *testing.T) {
	contract := models.Contract{
		Symbol:            "BTCUSDT",
		LotSize:           0.001,
		QuantityPrecision: 3,
	}
	for _, price := range []float64{0, -20000} {
		if _, err := normalizeQuantity(contract, 0.5, price); err == nil {
			t.Errorf("Expected error for price %v", price)
		}
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		value     float64
		precision int
		want      float64
	}{
		{1.23456, 2, 1.23},
		{1.23556, 2, 1.24},
		{42.0, 0, 42.0},
		{0.0001234, 5, 0.00012},
	}
	for _, tt := range tests {
		got := roundTo(tt.value, tt.precision)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("roundTo(%v, %d): expected %v, got %v", tt.value, tt.precision, tt.want, got)
		}
	}
}

func TestNormalizeSide(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"buy", "BUY", false},
		{"SELL", "SELL", false},
		{" Buy ", "BUY", false},
		{"hold", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeSide(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizeSide(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeSide(%q): unexpected error %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("normalizeSide(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}
