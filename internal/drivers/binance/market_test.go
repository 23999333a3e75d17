package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
)

func symbolRecord(symbol, base, quote, contractType, status string) map[string]any {
	return map[string]any{
		"symbol":                symbol,
		"contractType":          contractType,
		"status":                status,
		"baseAsset":             base,
		"quoteAsset":            quote,
		"marginAsset":           quote,
		"requiredMarginPercent": "4.0",
		"pricePrecision":        float64(2),
		"quantityPrecision":     float64(3),
		"orderTypes":            []any{"LIMIT", "MARKET"},
		"timeInForce":           []any{"GTC", "IOC"},
		"filters": []any{
			map[string]any{"filterType": "PRICE_FILTER", "tickSize": "0.10"},
			map[string]any{"filterType": "LOT_SIZE", "minQty": "0.001"},
			map[string]any{"filterType": "MAX_NUM_ORDERS", "limit": float64(200)},
		},
	}
}

func TestContractsFilter(t *testing.T) {
	exchangeInfo := map[string]any{
		"assets": []any{map[string]any{"asset": "USDT"}},
		"symbols": []any{
			symbolRecord("BTCUSDT", "BTC", "USDT", "PERPETUAL", "TRADING"),
			symbolRecord("ETHUSDT", "ETH", "USDT", "PERPETUAL", "BREAK"),
			symbolRecord("BTCDAI", "BTC", "DAI", "PERPETUAL", "TRADING"),
			symbolRecord("BTCUSDT_230929", "BTC", "USDT", "CURRENT_QUARTER", "TRADING"),
		},
	}
	brackets := []any{
		map[string]any{
			"symbol":   "BTCUSDT",
			"brackets": []any{map[string]any{"initialLeverage": float64(125)}},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(exchangeInfo)
	})
	mux.HandleFunc("/fapi/v1/leverageBracket", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(brackets)
	})

	client, _ := testRESTClient(t, mux)
	contracts, err := client.Contracts(context.Background())
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}

	if len(contracts) != 1 {
		t.Fatalf("Expected exactly 1 tradable contract, got %d: %v", len(contracts), contracts)
	}
	contract, ok := contracts["BTCUSDT"]
	if !ok {
		t.Fatal("Expected BTCUSDT to survive the filter")
	}
	if contract.Leverage != 125 {
		t.Errorf("Expected bracket leverage 125, got %d", contract.Leverage)
	}
	if contract.TickSize != 0.10 || contract.LotSize != 0.001 {
		t.Errorf("Unexpected trading rules: %+v", contract)
	}
}

func TestCandlesLimitClamp(t *testing.T) {
	var gotLimit atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/continuousKlines", func(w http.ResponseWriter, r *http.Request) {
		gotLimit.Store(r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]any{
			[]any{
				float64(1620000000000), "100", "110", "90", "105", "50",
				float64(1620000899999), "5250", float64(42),
			},
		})
	})
	client, _ := testRESTClient(t, mux)

	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{"above maximum", 99999, "1500"},
		{"zero defaults to maximum", 0, "1500"},
		{"in range passes through", 500, "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles, err := client.Candles(context.Background(), "BTCUSDT", "15m", tt.limit, 0, 0)
			if err != nil {
				t.Fatalf("Candles failed: %v", err)
			}
			if gotLimit.Load() != tt.want {
				t.Errorf("Expected limit %s on the wire, got %v", tt.want, gotLimit.Load())
			}
			if len(candles) != 1 || candles[0].Close != 105 {
				t.Errorf("Unexpected candles: %+v", candles)
			}
		})
	}
}
