package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/emre-gn/tradeflow/internal/models"
)

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Balances fetches the full account snapshot.
func (c *restClient) Balances(ctx context.Context) (models.Wallet, error) {
	body, err := c.request(ctx, "GET", "/fapi/v2/account", map[string]any{})
	if err != nil {
		return models.Wallet{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Wallet{}, fmt.Errorf("decode account response: %w", err)
	}
	return models.ParseWallet(raw)
}

// Positions fetches open-position records, optionally narrowed to one symbol.
func (c *restClient) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	params := map[string]any{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	var raw []map[string]any
	if err := c.requestJSON(ctx, "GET", "/fapi/v2/positionRisk", params, &raw); err != nil {
		return nil, err
	}
	positions := make([]models.Position, 0, len(raw))
	for _, record := range raw {
		position, err := models.ParsePosition(record)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// SetLeverage changes the initial leverage for a symbol.
func (c *restClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := map[string]any{"symbol": symbol, "leverage": leverage}
	if _, err := c.request(ctx, "POST", "/fapi/v1/leverage", params); err != nil {
		c.logger.Errorf("Failed to set leverage to %dx for %s: %v", leverage, symbol, err)
		return err
	}
	c.logger.Infof("Leverage for %s set to %dx", symbol, leverage)
	return nil
}

// SetMarginType switches a symbol between ISOLATED and CROSSED margin.
func (c *restClient) SetMarginType(ctx context.Context, symbol, marginType string) error {
	marginType = strings.ToUpper(strings.TrimSpace(marginType))
	if marginType != "ISOLATED" && marginType != "CROSSED" {
		return fmt.Errorf("invalid margin type %q", marginType)
	}
	params := map[string]any{"symbol": symbol, "marginType": marginType}
	if _, err := c.request(ctx, "POST", "/fapi/v1/marginType", params); err != nil {
		c.logger.Errorf("Failed to change margin type to %s for %s: %v", marginType, symbol, err)
		return err
	}
	c.logger.Infof("Margin type for %s set to %s", symbol, marginType)
	return nil
}
