package models

// Trade is one executed trade, from the recent-trades query or the aggTrade
// stream. BuyerMaker is true when the resting side of the match was a bid.
type Trade struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Time       int64   `json:"time"`
	BuyerMaker bool    `json:"buyer_maker"`
}

// ParseTrade maps one REST recent-trade record to a Trade.
func ParseTrade(raw map[string]any, symbol string) (Trade, error) {
	const entity = "trade"

	t := Trade{Symbol: symbol}
	var err error

	if t.Price, err = floatField(raw, entity, "price"); err != nil {
		return Trade{}, err
	}
	if t.Quantity, err = floatField(raw, entity, "qty"); err != nil {
		return Trade{}, err
	}
	if t.Time, err = intField(raw, entity, "time"); err != nil {
		return Trade{}, err
	}
	if t.BuyerMaker, err = boolField(raw, entity, "isBuyerMaker"); err != nil {
		return Trade{}, err
	}
	return t, nil
}

// ParseAggTrade maps a streamed aggTrade event to a Trade.
func ParseAggTrade(raw map[string]any) (Trade, error) {
	const entity = "trade"

	var t Trade
	var err error

	if t.Symbol, err = stringField(raw, entity, "s"); err != nil {
		return Trade{}, err
	}
	if t.Price, err = floatField(raw, entity, "p"); err != nil {
		return Trade{}, err
	}
	if t.Quantity, err = floatField(raw, entity, "q"); err != nil {
		return Trade{}, err
	}
	if t.Time, err = intField(raw, entity, "T"); err != nil {
		return Trade{}, err
	}
	if t.BuyerMaker, err = boolField(raw, entity, "m"); err != nil {
		return Trade{}, err
	}
	return t, nil
}
