package models

// AssetBalance is an account balance line for a single asset.
type AssetBalance struct {
	Asset          string  `json:"asset"`
	Available      float64 `json:"available"`
	Total          float64 `json:"total"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
	RequiredMargin float64 `json:"required_margin"`
}

// PositionSummary is the per-symbol open-position line of an account snapshot.
type PositionSummary struct {
	Symbol         string  `json:"symbol"`
	EntryPrice     float64 `json:"entry_price"`
	RequiredMargin float64 `json:"required_margin"`
	Isolated       bool    `json:"isolated"`
	Leverage       int     `json:"leverage"`
	PositionAmt    float64 `json:"position_amt"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
}

// Wallet is a full account snapshot, replaced wholesale on each refresh.
type Wallet struct {
	Assets             map[string]AssetBalance    `json:"assets"`
	Positions          map[string]PositionSummary `json:"positions"`
	TotalWalletBalance float64                    `json:"total_wallet_balance"`
	TotalUnrealizedPnL float64                    `json:"total_unrealized_pnl"`
	TotalMarginBalance float64                    `json:"total_margin_balance"`
	CanTrade           bool                       `json:"can_trade"`
	CanDeposit         bool                       `json:"can_deposit"`
	CanWithdraw        bool                       `json:"can_withdraw"`
	FeeTier            int                        `json:"fee_tier"`
	UpdateTime         int64                      `json:"update_time"`
}

// ParseWallet maps a full account record to a Wallet. A missing field fails
// the whole decode; no partial wallet is ever returned.
func ParseWallet(raw map[string]any) (Wallet, error) {
	const entity = "wallet"

	var w Wallet
	var err error

	if w.TotalWalletBalance, err = floatField(raw, entity, "totalWalletBalance"); err != nil {
		return Wallet{}, err
	}
	if w.TotalUnrealizedPnL, err = floatField(raw, entity, "totalUnrealizedProfit"); err != nil {
		return Wallet{}, err
	}
	if w.TotalMarginBalance, err = floatField(raw, entity, "totalMarginBalance"); err != nil {
		return Wallet{}, err
	}
	if w.CanTrade, err = boolField(raw, entity, "canTrade"); err != nil {
		return Wallet{}, err
	}
	if w.CanDeposit, err = boolField(raw, entity, "canDeposit"); err != nil {
		return Wallet{}, err
	}
	if w.CanWithdraw, err = boolField(raw, entity, "canWithdraw"); err != nil {
		return Wallet{}, err
	}

	feeTier, err := intField(raw, entity, "feeTier")
	if err != nil {
		return Wallet{}, err
	}
	w.FeeTier = int(feeTier)

	if w.UpdateTime, err = intField(raw, entity, "updateTime"); err != nil {
		return Wallet{}, err
	}

	assets, ok := raw["assets"].([]any)
	if !ok {
		return Wallet{}, malformed(entity, "assets")
	}
	w.Assets = make(map[string]AssetBalance, len(assets))
	for _, a := range assets {
		record, ok := a.(map[string]any)
		if !ok {
			return Wallet{}, malformed(entity, "assets")
		}
		bal, err := parseAssetBalance(record)
		if err != nil {
			return Wallet{}, err
		}
		w.Assets[bal.Asset] = bal
	}

	positions, ok := raw["positions"].([]any)
	if !ok {
		return Wallet{}, malformed(entity, "positions")
	}
	w.Positions = make(map[string]PositionSummary, len(positions))
	for _, p := range positions {
		record, ok := p.(map[string]any)
		if !ok {
			return Wallet{}, malformed(entity, "positions")
		}
		pos, err := parsePositionSummary(record)
		if err != nil {
			return Wallet{}, err
		}
		w.Positions[pos.Symbol] = pos
	}

	return w, nil
}

func parseAssetBalance(raw map[string]any) (AssetBalance, error) {
	const entity = "wallet"

	var b AssetBalance
	var err error

	if b.Asset, err = stringField(raw, entity, "asset"); err != nil {
		return AssetBalance{}, err
	}
	if b.Available, err = floatField(raw, entity, "availableBalance"); err != nil {
		return AssetBalance{}, err
	}
	if b.Total, err = floatField(raw, entity, "walletBalance"); err != nil {
		return AssetBalance{}, err
	}
	if b.UnrealizedPnL, err = floatField(raw, entity, "unrealizedProfit"); err != nil {
		return AssetBalance{}, err
	}
	if b.RequiredMargin, err = floatField(raw, entity, "initialMargin"); err != nil {
		return AssetBalance{}, err
	}
	return b, nil
}

func parsePositionSummary(raw map[string]any) (PositionSummary, error) {
	const entity = "wallet"

	var p PositionSummary
	var err error

	if p.Symbol, err = stringField(raw, entity, "symbol"); err != nil {
		return PositionSummary{}, err
	}
	if p.EntryPrice, err = floatField(raw, entity, "entryPrice"); err != nil {
		return PositionSummary{}, err
	}
	if p.RequiredMargin, err = floatField(raw, entity, "initialMargin"); err != nil {
		return PositionSummary{}, err
	}
	if p.Isolated, err = boolField(raw, entity, "isolated"); err != nil {
		return PositionSummary{}, err
	}

	leverage, err := intField(raw, entity, "leverage")
	if err != nil {
		return PositionSummary{}, err
	}
	p.Leverage = int(leverage)

	if p.PositionAmt, err = floatField(raw, entity, "positionAmt"); err != nil {
		return PositionSummary{}, err
	}
	if p.UnrealizedPnL, err = floatField(raw, entity, "unrealizedProfit"); err != nil {
		return PositionSummary{}, err
	}
	return p, nil
}

// ParseAccountUpdate maps the "a" object of a streamed ACCOUNT_UPDATE event to
// a partial Wallet carrying only the balances and positions the event touched.
func ParseAccountUpdate(raw map[string]any, eventTime int64) (Wallet, error) {
	const entity = "wallet"

	w := Wallet{
		Assets:     make(map[string]AssetBalance),
		Positions:  make(map[string]PositionSummary),
		UpdateTime: eventTime,
	}

	if balances, ok := raw["B"].([]any); ok {
		for _, b := range balances {
			record, ok := b.(map[string]any)
			if !ok {
				return Wallet{}, malformed(entity, "B")
			}
			asset, err := stringField(record, entity, "a")
			if err != nil {
				return Wallet{}, err
			}
			total, err := floatField(record, entity, "wb")
			if err != nil {
				return Wallet{}, err
			}
			w.Assets[asset] = AssetBalance{Asset: asset, Total: total}
		}
	}

	if positions, ok := raw["P"].([]any); ok {
		for _, p := range positions {
			record, ok := p.(map[string]any)
			if !ok {
				return Wallet{}, malformed(entity, "P")
			}
			symbol, err := stringField(record, entity, "s")
			if err != nil {
				return Wallet{}, err
			}
			amt, err := floatField(record, entity, "pa")
			if err != nil {
				return Wallet{}, err
			}
			entry, err := floatField(record, entity, "ep")
			if err != nil {
				return Wallet{}, err
			}
			pnl, err := floatField(record, entity, "up")
			if err != nil {
				return Wallet{}, err
			}
			w.Positions[symbol] = PositionSummary{
				Symbol:        symbol,
				PositionAmt:   amt,
				EntryPrice:    entry,
				UnrealizedPnL: pnl,
			}
		}
	}

	return w, nil
}
