// Package sink delivers normalized stream events to whatever the caller wires
// in: a log, a Kafka topic, or a strategy layer's own implementation.
package sink

import (
	"context"

	"github.com/emre-gn/tradeflow/internal/models"
)

// Kind tags the entity an Event carries.
type Kind string

const (
	KindTrade  Kind = "trade"
	KindCandle Kind = "candle"
	KindOrder  Kind = "order"
	KindWallet Kind = "wallet"
)

// Event is one normalized push event. Exactly one of the entity pointers is
// set, matching Kind.
type Event struct {
	Kind   Kind            `json:"kind"`
	Symbol string          `json:"symbol,omitempty"`
	Trade  *models.Trade   `json:"trade,omitempty"`
	Candle *models.Candle  `json:"candle,omitempty"`
	Order  *models.Order   `json:"order,omitempty"`
	Wallet *models.Wallet  `json:"wallet,omitempty"`
}

// Sink receives normalized events in arrival order.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}
