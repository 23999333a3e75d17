package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
)

// sign computes the HMAC-SHA256 authentication code over the canonical query
// encoding of params. url.Values.Encode sorts keys, and the exact same
// encoding is what goes on the wire, so the signed bytes always match the
// transmitted bytes.
func sign(params url.Values, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildParams coerces scalar request parameters to their query-string form.
func buildParams(in map[string]any) (url.Values, error) {
	values := url.Values{}
	for key, raw := range in {
		s, err := coerceParam(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q", ErrEncoding, key)
		}
		values.Set(key, s)
	}
	return values, nil
}

func coerceParam(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	}
	return "", fmt.Errorf("unsupported parameter type %T", v)
}
