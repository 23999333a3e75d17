package models

import (
	"errors"
	"testing"
)

func validContractRecord() map[string]any {
	return map[string]any{
		"symbol":                "BTCUSDT",
		"baseAsset":             "BTC",
		"quoteAsset":            "USDT",
		"marginAsset":           "USDT",
		"requiredMarginPercent": "4.0",
		"pricePrecision":        float64(2),
		"quantityPrecision":     float64(3),
		"orderTypes":            []any{"LIMIT", "MARKET", "STOP"},
		"timeInForce":           []any{"GTC", "IOC", "FOK"},
		"filters": []any{
			map[string]any{"filterType": "PRICE_FILTER", "tickSize": "0.10"},
			map[string]any{"filterType": "LOT_SIZE", "minQty": "0.001", "stepSize": "0.001"},
			map[string]any{"filterType": "MAX_NUM_ORDERS", "limit": float64(200)},
		},
	}
}

func TestParseContract(t *testing.T) {
	contract, err := ParseContract(validContractRecord(), 125)
	if err != nil {
		t.Fatalf("ParseContract failed: %v", err)
	}

	if contract.Symbol != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", contract.Symbol)
	}
	if contract.TickSize != 0.10 {
		t.Errorf("Expected tick size 0.10, got %v", contract.TickSize)
	}
	if contract.LotSize != 0.001 {
		t.Errorf("Expected lot size 0.001, got %v", contract.LotSize)
	}
	if contract.MaxOrderLimit != 200 {
		t.Errorf("Expected max order limit 200, got %d", contract.MaxOrderLimit)
	}
	if contract.PricePrecision != 2 || contract.QuantityPrecision != 3 {
		t.Errorf("Unexpected precisions: %+v", contract)
	}
	if contract.Leverage != 125 {
		t.Errorf("Expected leverage 125, got %d", contract.Leverage)
	}
	if len(contract.OrderTypes) != 3 || len(contract.TimeInForces) != 3 {
		t.Errorf("Unexpected order types / tifs: %+v", contract)
	}
}

func TestParseContractMissingField(t *testing.T) {
	for _, field := range []string{"symbol", "baseAsset", "quoteAsset", "marginAsset", "filters"} {
		record := validContractRecord()
		delete(record, field)

		_, err := ParseContract(record, 1)
		if err == nil {
			t.Errorf("Expected error for missing %s", field)
			continue
		}
		var malformed *MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("Expected MalformedPayloadError for %s, got %T", field, err)
		}
	}
}

func TestParseContractNegativePrecision(t *testing.T) {
	for _, field := range []string{"pricePrecision", "quantityPrecision"} {
		record := validContractRecord()
		record[field] = float64(-1)

		_, err := ParseContract(record, 1)
		if err == nil {
			t.Errorf("Expected error for negative %s", field)
			continue
		}
		var malformed *MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("Expected MalformedPayloadError for %s, got %T", field, err)
			continue
		}
		if malformed.Field != field {
			t.Errorf("Expected error to name %s, got %s", field, malformed.Field)
		}
	}
}

func TestParseContractBadFilters(t *testing.T) {
	record := validContractRecord()
	record["filters"] = []any{
		map[string]any{"filterType": "PRICE_FILTER", "tickSize": "0"},
		map[string]any{"filterType": "LOT_SIZE", "minQty": "0.001"},
	}
	if _, err := ParseContract(record, 1); err == nil {
		t.Error("Expected error for zero tick size")
	}

	record = validContractRecord()
	record["filters"] = []any{
		map[string]any{"filterType": "PRICE_FILTER", "tickSize": "0.10"},
	}
	if _, err := ParseContract(record, 1); err == nil {
		t.Error("Expected error for missing lot size filter")
	}
}
