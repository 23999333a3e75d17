package models

// Position is one open-position record from the venue's position risk query.
// PositionAmt is signed: positive long, negative short.
type Position struct {
	Symbol           string  `json:"symbol"`
	PositionAmt      float64 `json:"position_amt"`
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	LiquidationPrice float64 `json:"liquidation_price"`
	Leverage         int     `json:"leverage"`
	Isolated         bool    `json:"isolated"`
	IsolatedMargin   float64 `json:"isolated_margin"`
}

// ParsePosition maps one position risk record to a Position.
func ParsePosition(raw map[string]any) (Position, error) {
	const entity = "position"

	var p Position
	var err error

	if p.Symbol, err = stringField(raw, entity, "symbol"); err != nil {
		return Position{}, err
	}
	if p.PositionAmt, err = floatField(raw, entity, "positionAmt"); err != nil {
		return Position{}, err
	}
	if p.EntryPrice, err = floatField(raw, entity, "entryPrice"); err != nil {
		return Position{}, err
	}
	if p.MarkPrice, err = floatField(raw, entity, "markPrice"); err != nil {
		return Position{}, err
	}
	if p.UnrealizedPnL, err = floatField(raw, entity, "unRealizedProfit"); err != nil {
		return Position{}, err
	}
	if p.LiquidationPrice, err = floatField(raw, entity, "liquidationPrice"); err != nil {
		return Position{}, err
	}

	leverage, err := intField(raw, entity, "leverage")
	if err != nil {
		return Position{}, err
	}
	p.Leverage = int(leverage)

	marginType, err := stringField(raw, entity, "marginType")
	if err != nil {
		return Position{}, err
	}
	p.Isolated = marginType == "isolated"

	if p.Isolated {
		if p.IsolatedMargin, err = floatField(raw, entity, "isolatedMargin"); err != nil {
			return Position{}, err
		}
	}

	return p, nil
}
