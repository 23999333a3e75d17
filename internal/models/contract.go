package models

// Contract describes a tradable perpetual instrument and its trading rules.
// Contracts are built once per bootstrap cycle from the venue's instrument
// catalog and replaced wholesale on refresh, never mutated in place.
type Contract struct {
	Symbol            string   `json:"symbol"`
	BaseAsset         string   `json:"base_asset"`
	QuoteAsset        string   `json:"quote_asset"`
	MarginAsset       string   `json:"margin_asset"`
	MarginPercent     float64  `json:"margin_percent"`
	PricePrecision    int      `json:"price_precision"`
	QuantityPrecision int      `json:"quantity_precision"`
	TickSize          float64  `json:"tick_size"`
	LotSize           float64  `json:"lot_size"`
	MaxOrderLimit     int      `json:"max_order_limit"`
	OrderTypes        []string `json:"order_types"`
	TimeInForces      []string `json:"time_in_forces"`
	Leverage          int      `json:"leverage"`
}

// ParseContract maps one exchangeInfo symbol record to a Contract. leverage is
// the initial leverage of the instrument's first bracket, resolved separately
// by the caller. Filters are matched by filterType, not array position.
func ParseContract(raw map[string]any, leverage int) (Contract, error) {
	const entity = "contract"

	var c Contract
	var err error

	if c.Symbol, err = stringField(raw, entity, "symbol"); err != nil {
		return Contract{}, err
	}
	if c.BaseAsset, err = stringField(raw, entity, "baseAsset"); err != nil {
		return Contract{}, err
	}
	if c.QuoteAsset, err = stringField(raw, entity, "quoteAsset"); err != nil {
		return Contract{}, err
	}
	if c.MarginAsset, err = stringField(raw, entity, "marginAsset"); err != nil {
		return Contract{}, err
	}
	if c.MarginPercent, err = floatField(raw, entity, "requiredMarginPercent"); err != nil {
		return Contract{}, err
	}

	pricePrec, err := intField(raw, entity, "pricePrecision")
	if err != nil {
		return Contract{}, err
	}
	qtyPrec, err := intField(raw, entity, "quantityPrecision")
	if err != nil {
		return Contract{}, err
	}
	if pricePrec < 0 {
		return Contract{}, malformed(entity, "pricePrecision")
	}
	if qtyPrec < 0 {
		return Contract{}, malformed(entity, "quantityPrecision")
	}
	c.PricePrecision = int(pricePrec)
	c.QuantityPrecision = int(qtyPrec)

	if c.OrderTypes, err = stringSlice(raw, entity, "orderTypes"); err != nil {
		return Contract{}, err
	}
	if c.TimeInForces, err = stringSlice(raw, entity, "timeInForce"); err != nil {
		return Contract{}, err
	}

	filters, ok := raw["filters"].([]any)
	if !ok {
		return Contract{}, malformed(entity, "filters")
	}
	for _, f := range filters {
		filter, ok := f.(map[string]any)
		if !ok {
			continue
		}
		switch filter["filterType"] {
		case "PRICE_FILTER":
			if c.TickSize, err = floatField(filter, entity, "tickSize"); err != nil {
				return Contract{}, err
			}
		case "LOT_SIZE":
			if c.LotSize, err = floatField(filter, entity, "minQty"); err != nil {
				return Contract{}, err
			}
		case "MAX_NUM_ORDERS":
			limit, err := intField(filter, entity, "limit")
			if err != nil {
				return Contract{}, err
			}
			c.MaxOrderLimit = int(limit)
		}
	}
	if c.TickSize <= 0 {
		return Contract{}, malformed(entity, "tickSize")
	}
	if c.LotSize <= 0 {
		return Contract{}, malformed(entity, "lotSize")
	}

	c.Leverage = leverage
	return c, nil
}
