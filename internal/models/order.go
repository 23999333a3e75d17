package models

// OrderStatus is the venue-side state of an order at query time.
type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderReplaced        OrderStatus = "REPLACED"
	OrderStopped         OrderStatus = "STOPPED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
	OrderNewInsurance    OrderStatus = "NEW_INSURANCE"
	OrderNewADL          OrderStatus = "NEW_ADL"
)

var validOrderStatus = map[OrderStatus]bool{
	OrderNew:             true,
	OrderPartiallyFilled: true,
	OrderFilled:          true,
	OrderCanceled:        true,
	OrderReplaced:        true,
	OrderStopped:         true,
	OrderRejected:        true,
	OrderExpired:         true,
	OrderNewInsurance:    true,
	OrderNewADL:          true,
}

// Standing reports whether the order is still working on the book.
func (s OrderStatus) Standing() bool {
	return s == OrderNew || s == OrderPartiallyFilled
}

// Order is a snapshot of exchange-side order state. Each query yields a fresh
// snapshot; the exchange is authoritative.
type Order struct {
	Symbol      string      `json:"symbol"`
	OrderID     int64       `json:"order_id"`
	Side        string      `json:"side"`
	Type        string      `json:"type"`
	Status      OrderStatus `json:"status"`
	OrigQty     float64     `json:"orig_qty"`
	ExecutedQty float64     `json:"executed_qty"`
	Price       float64     `json:"price"`
	StopPrice   float64     `json:"stop_price,omitempty"`
	TimeInForce string      `json:"time_in_force"`
	Timestamp   int64       `json:"timestamp"`
}

// ParseOrder maps a REST order record to an Order.
func ParseOrder(raw map[string]any) (Order, error) {
	const entity = "order"

	var o Order
	var err error

	if o.Symbol, err = stringField(raw, entity, "symbol"); err != nil {
		return Order{}, err
	}
	if o.OrderID, err = intField(raw, entity, "orderId"); err != nil {
		return Order{}, err
	}
	if o.Side, err = stringField(raw, entity, "side"); err != nil {
		return Order{}, err
	}
	if o.Type, err = stringField(raw, entity, "type"); err != nil {
		return Order{}, err
	}

	status, err := stringField(raw, entity, "status")
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	if !validOrderStatus[o.Status] {
		return Order{}, malformed(entity, "status")
	}

	if o.OrigQty, err = floatField(raw, entity, "origQty"); err != nil {
		return Order{}, err
	}
	if o.ExecutedQty, err = floatField(raw, entity, "executedQty"); err != nil {
		return Order{}, err
	}
	if o.Price, err = floatField(raw, entity, "price"); err != nil {
		return Order{}, err
	}
	if o.TimeInForce, err = stringField(raw, entity, "timeInForce"); err != nil {
		return Order{}, err
	}

	// stopPrice is absent on plain market/limit orders.
	if _, ok := raw["stopPrice"]; ok {
		if o.StopPrice, err = floatField(raw, entity, "stopPrice"); err != nil {
			return Order{}, err
		}
	}

	// Placement responses carry updateTime, query responses carry time.
	if _, ok := raw["time"]; ok {
		o.Timestamp, err = intField(raw, entity, "time")
	} else {
		o.Timestamp, err = intField(raw, entity, "updateTime")
	}
	if err != nil {
		return Order{}, err
	}

	return o, nil
}

// ParseOrderUpdate maps the "o" object of a streamed ORDER_TRADE_UPDATE event
// to an Order. The stream uses abbreviated field names.
func ParseOrderUpdate(raw map[string]any) (Order, error) {
	const entity = "order"

	var o Order
	var err error

	if o.Symbol, err = stringField(raw, entity, "s"); err != nil {
		return Order{}, err
	}
	if o.OrderID, err = intField(raw, entity, "i"); err != nil {
		return Order{}, err
	}
	if o.Side, err = stringField(raw, entity, "S"); err != nil {
		return Order{}, err
	}
	if o.Type, err = stringField(raw, entity, "o"); err != nil {
		return Order{}, err
	}

	status, err := stringField(raw, entity, "X")
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	if !validOrderStatus[o.Status] {
		return Order{}, malformed(entity, "X")
	}

	if o.OrigQty, err = floatField(raw, entity, "q"); err != nil {
		return Order{}, err
	}
	if o.ExecutedQty, err = floatField(raw, entity, "z"); err != nil {
		return Order{}, err
	}
	if o.Price, err = floatField(raw, entity, "p"); err != nil {
		return Order{}, err
	}
	if o.TimeInForce, err = stringField(raw, entity, "f"); err != nil {
		return Order{}, err
	}
	if _, ok := raw["sp"]; ok {
		if o.StopPrice, err = floatField(raw, entity, "sp"); err != nil {
			return Order{}, err
		}
	}
	if o.Timestamp, err = intField(raw, entity, "T"); err != nil {
		return Order{}, err
	}

	return o, nil
}
