package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Candle is one immutable OHLCV bar. Timestamps are epoch milliseconds and
// TimeFrame is the bar length in minutes.
type Candle struct {
	StartTimestamp int64   `json:"start_timestamp"`
	EndTimestamp   int64   `json:"end_timestamp"`
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	VolumeBase     float64 `json:"volume_base"`
	VolumeQuote    float64 `json:"volume_quote"`
	NumOfTrades    int64   `json:"num_of_trades"`
	TimeFrame      int     `json:"time_frame"`
}

// TimeframeMinutes converts a venue interval string such as "15m", "1h" or
// "1d" to a minute count.
func TimeframeMinutes(interval string) (int, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	unit := interval[len(interval)-1:]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	switch unit {
	case "m":
		return n, nil
	case "h":
		return n * 60, nil
	case "d":
		return n * 60 * 24, nil
	case "w":
		return n * 60 * 24 * 7, nil
	case "M":
		return n * 60 * 24 * 30, nil
	}
	return 0, fmt.Errorf("invalid interval %q", interval)
}

// ParseCandle maps one raw kline array to a Candle. The venue's array layout:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...].
func ParseCandle(raw []any, interval string) (Candle, error) {
	const entity = "candle"

	if len(raw) < 9 {
		return Candle{}, malformed(entity, "length")
	}

	tf, err := TimeframeMinutes(interval)
	if err != nil {
		return Candle{}, malformed(entity, "interval")
	}

	elemFloat := func(i int, name string) (float64, error) {
		switch v := raw[i].(type) {
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, malformed(entity, name)
			}
			return f, nil
		}
		return 0, malformed(entity, name)
	}

	var c Candle
	fields := []struct {
		idx  int
		name string
		dst  *float64
	}{
		{1, "open", &c.Open},
		{2, "high", &c.High},
		{3, "low", &c.Low},
		{4, "close", &c.Close},
		{5, "volume", &c.VolumeBase},
		{7, "quoteVolume", &c.VolumeQuote},
	}
	for _, f := range fields {
		v, err := elemFloat(f.idx, f.name)
		if err != nil {
			return Candle{}, err
		}
		*f.dst = v
	}

	start, err := elemFloat(0, "openTime")
	if err != nil {
		return Candle{}, err
	}
	end, err := elemFloat(6, "closeTime")
	if err != nil {
		return Candle{}, err
	}
	trades, err := elemFloat(8, "trades")
	if err != nil {
		return Candle{}, err
	}
	c.StartTimestamp = int64(start)
	c.EndTimestamp = int64(end)
	c.NumOfTrades = int64(trades)
	c.TimeFrame = tf

	if err := c.validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// ParseKline maps the "k" object of a streamed kline event to a Candle.
func ParseKline(k map[string]any) (Candle, error) {
	const entity = "candle"

	interval, err := stringField(k, entity, "i")
	if err != nil {
		return Candle{}, err
	}
	tf, err := TimeframeMinutes(interval)
	if err != nil {
		return Candle{}, malformed(entity, "i")
	}

	var c Candle
	c.TimeFrame = tf
	if c.StartTimestamp, err = intField(k, entity, "t"); err != nil {
		return Candle{}, err
	}
	if c.EndTimestamp, err = intField(k, entity, "T"); err != nil {
		return Candle{}, err
	}
	if c.Open, err = floatField(k, entity, "o"); err != nil {
		return Candle{}, err
	}
	if c.High, err = floatField(k, entity, "h"); err != nil {
		return Candle{}, err
	}
	if c.Low, err = floatField(k, entity, "l"); err != nil {
		return Candle{}, err
	}
	if c.Close, err = floatField(k, entity, "c"); err != nil {
		return Candle{}, err
	}
	if c.VolumeBase, err = floatField(k, entity, "v"); err != nil {
		return Candle{}, err
	}
	if c.VolumeQuote, err = floatField(k, entity, "q"); err != nil {
		return Candle{}, err
	}
	if c.NumOfTrades, err = intField(k, entity, "n"); err != nil {
		return Candle{}, err
	}

	if err := c.validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

func (c Candle) validate() error {
	const entity = "candle"
	if c.EndTimestamp <= c.StartTimestamp {
		return malformed(entity, "closeTime")
	}
	if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
		return malformed(entity, "high/low")
	}
	return nil
}
