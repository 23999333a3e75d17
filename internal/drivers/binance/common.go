// Package binance is the connectivity layer for Binance USD-M futures: the
// signed REST client, the stream subscription manager and the facade that
// composes them.
package binance

import "time"

const (
	prodBaseURL    = "https://fapi.binance.com"
	prodStreamURL  = "wss://fstream.binance.com/ws"
	testBaseURL    = "https://testnet.binancefuture.com"
	testStreamURL  = "wss://testnet.binancefuture.com/ws"

	apiKeyHeader = "X-MBX-APIKEY"

	// recvWindow bounds signed-request staleness on the server side. The
	// request timeout below is a separate client-side bound.
	defaultRecvWindow     = 5000
	defaultRequestTimeout = 10 * time.Second

	maxRequestAttempts = 5
	retryBaseDelay     = 250 * time.Millisecond
	retryMaxDelay      = 5 * time.Second

	// Venue weight limit is 2400/min for USD-M futures; stay under it.
	requestsPerSecond = 20
	requestBurst      = 10

	maxCandleLimit = 1500
	minNotional    = 10.0

	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
	reconnectMin     = 1 * time.Second
	reconnectMax     = 30 * time.Second

	// Listen keys expire after 60 minutes without a keepalive.
	listenKeyKeepalive = 30 * time.Minute
)
