package instrument

import (
	"fmt"
	"strings"
)

// CanonicalBytes returns a's deterministic, order-fixed byte encoding. Two
// Attrs values that are semantically the same instrument always produce the
// same canonical bytes (address case, for instance, is normalized), and the
// encoding is stable across process restarts and builds since it is used as
// the hash input for the instrument's ID.
func CanonicalBytes(a Attrs) ([]byte, error) {
	switch a.Kind {
	case KindSpotPair:
		return []byte(fmt.Sprintf("spot|%s|%s|%s", a.SpotPair.Venue, a.SpotPair.Base, a.SpotPair.Quote)), nil
	case KindToken:
		return []byte(fmt.Sprintf("token|%d|%s", a.Token.ChainID, strings.ToLower(a.Token.Address))), nil
	case KindStock:
		return []byte(fmt.Sprintf("stock|%s|%s|%s", a.Stock.MIC, a.Stock.Ticker, a.Stock.ISIN)), nil
	case KindOption:
		side := "P"
		if a.Option.Call {
			side = "C"
		}
		return []byte(fmt.Sprintf("option|%s|%s|%d|%s", a.Option.Underlying, a.Option.Expiry, a.Option.Strike, side)), nil
	case KindPool:
		return []byte(fmt.Sprintf("pool|%d|%s|%s|%s|%d",
			a.Pool.ChainID, a.Pool.Factory, strings.ToLower(a.Pool.Token0), strings.ToLower(a.Pool.Token1), a.Pool.FeeTier)), nil
	default:
		return nil, fmt.Errorf("instrument: unknown kind %v", a.Kind)
	}
}
