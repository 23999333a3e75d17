package binance

import (
	"context"
	"fmt"

	"github.com/emre-gn/tradeflow/internal/models"
)

// ServerTime returns the venue clock in epoch milliseconds. Cheap liveness
// probe used during bootstrap.
func (c *restClient) ServerTime(ctx context.Context) (int64, error) {
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/time", map[string]any{}, &out); err != nil {
		return 0, err
	}
	return out.ServerTime, nil
}

// Contracts fetches the instrument catalog and leverage brackets and returns
// the tradable map: perpetual, actively trading, quoted in a known settlement
// asset. The map replaces any previous snapshot wholesale.
func (c *restClient) Contracts(ctx context.Context) (map[string]models.Contract, error) {
	var info struct {
		Assets []struct {
			Asset string `json:"asset"`
		} `json:"assets"`
		Symbols []map[string]any `json:"symbols"`
	}
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/exchangeInfo", map[string]any{}, &info); err != nil {
		return nil, err
	}

	var brackets []struct {
		Symbol   string `json:"symbol"`
		Brackets []struct {
			InitialLeverage int `json:"initialLeverage"`
		} `json:"brackets"`
	}
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/leverageBracket", map[string]any{}, &brackets); err != nil {
		return nil, err
	}
	leverage := make(map[string]int, len(brackets))
	for _, b := range brackets {
		if len(b.Brackets) > 0 {
			leverage[b.Symbol] = b.Brackets[0].InitialLeverage
		}
	}

	assets := make(map[string]bool, len(info.Assets))
	for _, a := range info.Assets {
		assets[a.Asset] = true
	}

	contracts := make(map[string]models.Contract)
	for _, raw := range info.Symbols {
		if raw["contractType"] != "PERPETUAL" || raw["status"] != "TRADING" {
			continue
		}
		quote, _ := raw["quoteAsset"].(string)
		if !assets[quote] {
			continue
		}
		symbol, _ := raw["symbol"].(string)
		contract, err := models.ParseContract(raw, leverage[symbol])
		if err != nil {
			return nil, err
		}
		contracts[contract.Symbol] = contract
	}
	return contracts, nil
}

// Candles fetches up to limit historical bars for the perpetual pair.
// start/end are epoch milliseconds; zero means unbounded on that side.
// limit is clamped to the venue maximum.
func (c *restClient) Candles(ctx context.Context, symbol, interval string, limit int, start, end int64) ([]models.Candle, error) {
	if _, err := models.TimeframeMinutes(interval); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxCandleLimit {
		limit = maxCandleLimit
	}

	params := map[string]any{
		"pair":         symbol,
		"contractType": "PERPETUAL",
		"interval":     interval,
		"limit":        limit,
	}
	if start > 0 {
		params["startTime"] = start
	}
	if end > 0 {
		params["endTime"] = end
	}

	var raw [][]any
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/continuousKlines", params, &raw); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, bar := range raw {
		candle, err := models.ParseCandle(bar, interval)
		if err != nil {
			// One-shot REST decode fails fast: a bad bar means the
			// whole range is suspect.
			return nil, fmt.Errorf("%s %s klines: %w", symbol, interval, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// LastTrade returns the most recent executed trade for symbol. Used as the
// notional reference price for market orders.
func (c *restClient) LastTrade(ctx context.Context, symbol string) (models.Trade, error) {
	var raw []map[string]any
	params := map[string]any{"symbol": symbol, "limit": 1}
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/trades", params, &raw); err != nil {
		return models.Trade{}, err
	}
	if len(raw) == 0 {
		return models.Trade{}, fmt.Errorf("no recent trades for %s", symbol)
	}
	return models.ParseTrade(raw[0], symbol)
}

// CommissionRates returns the account's maker and taker fee rates for symbol.
func (c *restClient) CommissionRates(ctx context.Context, symbol string) (maker, taker float64, err error) {
	var out struct {
		Maker string `json:"makerCommissionRate"`
		Taker string `json:"takerCommissionRate"`
	}
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/commissionRate", map[string]any{"symbol": symbol}, &out); err != nil {
		return 0, 0, err
	}
	maker, err = parseFloat(out.Maker)
	if err != nil {
		return 0, 0, fmt.Errorf("commission rate: %w", err)
	}
	taker, err = parseFloat(out.Taker)
	if err != nil {
		return 0, 0, fmt.Errorf("commission rate: %w", err)
	}
	return maker, taker, nil
}
