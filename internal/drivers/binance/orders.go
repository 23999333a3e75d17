package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/emre-gn/tradeflow/internal/models"
)

// normalizeQuantity bumps quantity in lot-size increments until the notional
// clears the venue minimum, then rounds to the instrument's quantity
// precision. Applied identically for every order type so a too-small order is
// corrected client-side instead of rejected by the venue.
func normalizeQuantity(contract models.Contract, quantity, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("non-positive reference price %v for %s", price, contract.Symbol)
	}
	for quantity*price < minNotional {
		quantity += contract.LotSize
	}
	return roundTo(quantity, contract.QuantityPrecision), nil
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

func normalizeSide(side string) (string, error) {
	side = strings.ToUpper(strings.TrimSpace(side))
	if side != "BUY" && side != "SELL" {
		return "", fmt.Errorf("invalid order side %q", side)
	}
	return side, nil
}

func (c *restClient) placeOrder(ctx context.Context, params map[string]any) (models.Order, error) {
	body, err := c.request(ctx, "POST", "/fapi/v1/order", params)
	if err != nil {
		return models.Order{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Order{}, fmt.Errorf("decode order response: %w", err)
	}
	return models.ParseOrder(raw)
}

// PlaceMarketOrder submits a market order. The latest trade price is fetched
// as the notional reference so the same minimum-notional normalization
// applies as for priced orders.
func (c *restClient) PlaceMarketOrder(ctx context.Context, contract models.Contract, quantity float64, side string) (models.Order, error) {
	side, err := normalizeSide(side)
	if err != nil {
		return models.Order{}, err
	}
	last, err := c.LastTrade(ctx, contract.Symbol)
	if err != nil {
		return models.Order{}, fmt.Errorf("reference price for %s: %w", contract.Symbol, err)
	}
	if quantity, err = normalizeQuantity(contract, quantity, last.Price); err != nil {
		return models.Order{}, err
	}

	order, err := c.placeOrder(ctx, map[string]any{
		"symbol":   contract.Symbol,
		"side":     side,
		"type":     "MARKET",
		"quantity": quantity,
	})
	if err != nil {
		c.logger.Errorf("Market order failed: %s / %s / q:%v: %v", contract.Symbol, side, quantity, err)
		return models.Order{}, err
	}
	c.logger.Infof("Market order placed: %s / %s / q:%v", contract.Symbol, side, quantity)
	return order, nil
}

// PlaceLimitOrder submits a limit order with the given time in force.
func (c *restClient) PlaceLimitOrder(ctx context.Context, contract models.Contract, quantity float64, side string, price float64, tif string) (models.Order, error) {
	side, err := normalizeSide(side)
	if err != nil {
		return models.Order{}, err
	}
	if tif == "" {
		tif = "GTC"
	}
	if quantity, err = normalizeQuantity(contract, quantity, price); err != nil {
		return models.Order{}, err
	}
	price = roundTo(price, contract.PricePrecision)

	order, err := c.placeOrder(ctx, map[string]any{
		"symbol":      contract.Symbol,
		"side":        side,
		"type":        "LIMIT",
		"timeInForce": tif,
		"quantity":    quantity,
		"price":       price,
	})
	if err != nil {
		c.logger.Errorf("Limit order failed: %s / %s / q:%v / price:%v: %v", contract.Symbol, side, quantity, price, err)
		return models.Order{}, err
	}
	c.logger.Infof("Limit order placed: %s / %s / q:%v / price:%v", contract.Symbol, side, quantity, price)
	return order, nil
}

// PlaceStopOrder submits a stop-limit order.
func (c *restClient) PlaceStopOrder(ctx context.Context, contract models.Contract, quantity float64, side string, price, stopPrice float64, tif string) (models.Order, error) {
	side, err := normalizeSide(side)
	if err != nil {
		return models.Order{}, err
	}
	if tif == "" {
		tif = "GTC"
	}
	if quantity, err = normalizeQuantity(contract, quantity, price); err != nil {
		return models.Order{}, err
	}
	price = roundTo(price, contract.PricePrecision)
	stopPrice = roundTo(stopPrice, contract.PricePrecision)

	order, err := c.placeOrder(ctx, map[string]any{
		"symbol":      contract.Symbol,
		"side":        side,
		"type":        "STOP",
		"timeInForce": tif,
		"quantity":    quantity,
		"price":       price,
		"stopPrice":   stopPrice,
	})
	if err != nil {
		c.logger.Errorf("Stop order failed: %s / %s / q:%v: %v", contract.Symbol, side, quantity, err)
		return models.Order{}, err
	}
	c.logger.Infof("Stop order placed: %s / %s / q:%v / price:%v / stop @%v", contract.Symbol, side, quantity, price, stopPrice)
	return order, nil
}

// CancelOrder cancels one order by id.
func (c *restClient) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	params := map[string]any{"symbol": symbol, "orderId": orderID}
	if _, err := c.request(ctx, "DELETE", "/fapi/v1/order", params); err != nil {
		c.logger.Errorf("%s order id:%d cancel failed: %v", symbol, orderID, err)
		return err
	}
	c.logger.Infof("%s order id:%d canceled", symbol, orderID)
	return nil
}

// CancelAllOrders arms the venue's dead-man switch: all open orders for the
// symbol are canceled after the countdown unless it is re-armed.
func (c *restClient) CancelAllOrders(ctx context.Context, symbol string, countdown time.Duration) error {
	if countdown < time.Second {
		countdown = time.Second
	}
	params := map[string]any{
		"symbol":        symbol,
		"countdownTime": countdown.Milliseconds(),
	}
	if _, err := c.request(ctx, "POST", "/fapi/v1/countdownCancelAll", params); err != nil {
		return err
	}
	c.logger.Infof("%s orders will cancel in %v", symbol, countdown)
	return nil
}

// OpenOrder fetches a single open order by id.
func (c *restClient) OpenOrder(ctx context.Context, symbol string, orderID int64) (models.Order, error) {
	params := map[string]any{"symbol": symbol, "orderId": orderID}
	var raw map[string]any
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/openOrder", params, &raw); err != nil {
		return models.Order{}, err
	}
	return models.ParseOrder(raw)
}

// OpenOrders fetches all open orders, optionally narrowed to one symbol.
func (c *restClient) OpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	params := map[string]any{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	var raw []map[string]any
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/openOrders", params, &raw); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(raw))
	for _, record := range raw {
		order, err := models.ParseOrder(record)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// OrderBuckets classifies a symbol's order history at query time. Derived
// snapshot only; the exchange stays authoritative.
type OrderBuckets struct {
	Standing []models.Order
	History  []models.Order
	Failed   []models.Order
}

// OrdersForSymbol fetches the full order history for symbol and buckets it
// into standing (working), history (filled) and failed (everything else).
func (c *restClient) OrdersForSymbol(ctx context.Context, symbol string) (OrderBuckets, error) {
	var raw []map[string]any
	if err := c.requestJSON(ctx, "GET", "/fapi/v1/allOrders", map[string]any{"symbol": symbol}, &raw); err != nil {
		return OrderBuckets{}, err
	}

	var buckets OrderBuckets
	for _, record := range raw {
		order, err := models.ParseOrder(record)
		if err != nil {
			return OrderBuckets{}, err
		}
		switch {
		case order.Status.Standing():
			buckets.Standing = append(buckets.Standing, order)
		case order.Status == models.OrderFilled:
			buckets.History = append(buckets.History, order)
		default:
			buckets.Failed = append(buckets.Failed, order)
		}
	}
	return buckets, nil
}
