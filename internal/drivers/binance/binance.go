package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emre-gn/tradeflow/internal/models"
	"github.com/emre-gn/tradeflow/internal/sink"
)

// Config carries client construction parameters. Credentials are held but
// never logged.
type Config struct {
	PublicKey  string
	SecretKey  string
	Testnet    bool
	RecvWindow int64
	Timeout    time.Duration

	// UserStream enables the private account event stream via listen key.
	UserStream bool
}

// Client is the exchange facade: signed REST operations plus the stream
// subscription manager, composed behind one construction point.
type Client struct {
	logger *logrus.Logger
	rest   *restClient
	stream *streamManager

	mu        sync.RWMutex
	contracts map[string]models.Contract
	wallet    models.Wallet

	streamDone chan struct{}
}

// New builds a client for the selected environment. events may be nil when
// the caller only needs REST operations.
func New(cfg Config, events sink.Sink, logger *logrus.Logger) *Client {
	baseURL, streamURL := prodBaseURL, prodStreamURL
	if cfg.Testnet {
		baseURL, streamURL = testBaseURL, testStreamURL
		logger.Info("Using testnet endpoints")
	}

	rest := newRESTClient(baseURL, cfg.PublicKey, cfg.SecretKey, cfg.RecvWindow, cfg.Timeout, logger)
	return &Client{
		logger: logger,
		rest:   rest,
		stream: newStreamManager(streamURL, rest, events, cfg.UserStream, logger),
	}
}

// Init bootstraps the client: liveness probe, account snapshot, instrument
// catalog, then the streaming connection on a background goroutine. Trading
// calls are valid once Init returns.
func (c *Client) Init(ctx context.Context) error {
	serverTime, err := c.rest.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("api connection failure: %w", err)
	}
	c.logger.Infof("API connected, server time %s", time.UnixMilli(serverTime).UTC().Format(time.RFC3339))

	wallet, err := c.rest.Balances(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap balances: %w", err)
	}
	contracts, err := c.rest.Contracts(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap contracts: %w", err)
	}

	c.mu.Lock()
	c.wallet = wallet
	c.contracts = contracts
	c.mu.Unlock()
	c.logger.Infof("Bootstrap complete: %d tradable contracts", len(contracts))

	c.streamDone = make(chan struct{})
	go func() {
		defer close(c.streamDone)
		if err := c.stream.Run(ctx); err != nil {
			c.logger.Errorf("Stream manager stopped: %v", err)
		}
	}()
	return nil
}

// Wait blocks until the stream manager has shut down after ctx cancellation.
func (c *Client) Wait() {
	if c.streamDone != nil {
		<-c.streamDone
	}
}

// Contract looks up a bootstrapped instrument by symbol.
func (c *Client) Contract(symbol string) (models.Contract, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contract, ok := c.contracts[symbol]
	return contract, ok
}

// Contracts returns the bootstrapped instrument map snapshot.
func (c *Client) Contracts() map[string]models.Contract {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.Contract, len(c.contracts))
	for symbol, contract := range c.contracts {
		out[symbol] = contract
	}
	return out
}

// RefreshContracts refetches the instrument catalog and replaces the cached
// map wholesale.
func (c *Client) RefreshContracts(ctx context.Context) error {
	contracts, err := c.rest.Contracts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.contracts = contracts
	c.mu.Unlock()
	return nil
}

// Wallet returns the last fetched account snapshot.
func (c *Client) Wallet() models.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wallet
}

// RefreshWallet refetches the account snapshot and replaces it wholesale.
func (c *Client) RefreshWallet(ctx context.Context) (models.Wallet, error) {
	wallet, err := c.rest.Balances(ctx)
	if err != nil {
		return models.Wallet{}, err
	}
	c.mu.Lock()
	c.wallet = wallet
	c.mu.Unlock()
	return wallet, nil
}

// REST delegates. Each returns a fresh snapshot; nothing is cached besides
// the bootstrap wallet and contract map above.

func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	return c.rest.ServerTime(ctx)
}

func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int, start, end int64) ([]models.Candle, error) {
	return c.rest.Candles(ctx, symbol, interval, limit, start, end)
}

func (c *Client) LastTrade(ctx context.Context, symbol string) (models.Trade, error) {
	return c.rest.LastTrade(ctx, symbol)
}

func (c *Client) CommissionRates(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return c.rest.CommissionRates(ctx, symbol)
}

func (c *Client) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	return c.rest.Positions(ctx, symbol)
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return c.rest.SetLeverage(ctx, symbol, leverage)
}

func (c *Client) SetMarginType(ctx context.Context, symbol, marginType string) error {
	return c.rest.SetMarginType(ctx, symbol, marginType)
}

func (c *Client) PlaceMarketOrder(ctx context.Context, contract models.Contract, quantity float64, side string) (models.Order, error) {
	return c.rest.PlaceMarketOrder(ctx, contract, quantity, side)
}

func (c *Client) PlaceLimitOrder(ctx context.Context, contract models.Contract, quantity float64, side string, price float64, tif string) (models.Order, error) {
	return c.rest.PlaceLimitOrder(ctx, contract, quantity, side, price, tif)
}

func (c *Client) PlaceStopOrder(ctx context.Context, contract models.Contract, quantity float64, side string, price, stopPrice float64, tif string) (models.Order, error) {
	return c.rest.PlaceStopOrder(ctx, contract, quantity, side, price, stopPrice, tif)
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return c.rest.CancelOrder(ctx, symbol, orderID)
}

func (c *Client) CancelAllOrders(ctx context.Context, symbol string, countdown time.Duration) error {
	return c.rest.CancelAllOrders(ctx, symbol, countdown)
}

func (c *Client) OpenOrder(ctx context.Context, symbol string, orderID int64) (models.Order, error) {
	return c.rest.OpenOrder(ctx, symbol, orderID)
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	return c.rest.OpenOrders(ctx, symbol)
}

func (c *Client) OrdersForSymbol(ctx context.Context, symbol string) (OrderBuckets, error) {
	return c.rest.OrdersForSymbol(ctx, symbol)
}

// Stream delegates.

func (c *Client) Subscribe(ctx context.Context, channel string, symbols []string) (int, <-chan error, error) {
	return c.stream.Subscribe(ctx, channel, symbols)
}

func (c *Client) Unsubscribe(ctx context.Context, id int) error {
	return c.stream.Unsubscribe(ctx, id)
}

func (c *Client) CancelStreamCommand(ctx context.Context, id int) error {
	return c.stream.Cancel(ctx, id)
}

func (c *Client) StreamState() StreamState {
	return c.stream.State()
}

func (c *Client) Subscription(id int) ([]string, bool) {
	return c.stream.Subscription(id)
}
