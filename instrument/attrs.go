// Package instrument implements instrument identity: deterministic,
// content-derived IDs for the securities, tokens, and pools AlphaPulse
// trades, plus the concurrent registry that maps IDs back to attributes.
package instrument

import "fmt"

// Kind discriminates the Attrs variants. Attrs is a closed sum type: exactly
// one of the Kind-named fields below is populated depending on Kind.
type Kind uint8

const (
	KindSpotPair Kind = iota + 1
	KindToken
	KindStock
	KindOption
	KindPool
)

func (k Kind) String() string {
	switch k {
	case KindSpotPair:
		return "spot_pair"
	case KindToken:
		return "token"
	case KindStock:
		return "stock"
	case KindOption:
		return "option"
	case KindPool:
		return "pool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// SpotPair identifies a venue-quoted spot trading pair, e.g. Coinbase
// BTC-USD.
type SpotPair struct {
	Venue string
	Base  string
	Quote string
}

// Token identifies an on-chain fungible token by chain and contract address.
// Address is always lower-cased before hashing so checksum-case variants of
// the same address collapse to one ID.
type Token struct {
	ChainID uint64
	Address string
}

// Stock identifies a listed equity by primary exchange MIC and ticker.
type Stock struct {
	MIC    string
	Ticker string
	ISIN   string
}

// Option identifies a listed option contract.
type Option struct {
	Underlying string
	Expiry     string // YYYY-MM-DD
	Strike     int64  // fixed-point, 8 implied decimals, matching protocol.TradePayload
	Call       bool
}

// Pool identifies an on-chain liquidity pool (e.g. a Uniswap-style AMM
// pair) by its two constituent tokens and fee tier.
type Pool struct {
	ChainID uint64
	Factory string
	Token0  string
	Token1  string
	FeeTier uint32
}

// Attrs is the closed sum type describing one instrument's identity
// attributes. Kind selects which of the variant fields is meaningful; the
// others are zero. Callers build one via NewSpotPair/NewToken/etc. rather
// than populating the struct directly, so Kind and its field always agree.
type Attrs struct {
	Kind Kind

	SpotPair SpotPair
	Token    Token
	Stock    Stock
	Option   Option
	Pool     Pool
}

func NewSpotPair(venue, base, quote string) Attrs {
	return Attrs{Kind: KindSpotPair, SpotPair: SpotPair{Venue: venue, Base: base, Quote: quote}}
}

func NewToken(chainID uint64, address string) Attrs {
	return Attrs{Kind: KindToken, Token: Token{ChainID: chainID, Address: address}}
}

func NewStock(mic, ticker, isin string) Attrs {
	return Attrs{Kind: KindStock, Stock: Stock{MIC: mic, Ticker: ticker, ISIN: isin}}
}

func NewOption(underlying, expiry string, strike int64, call bool) Attrs {
	return Attrs{Kind: KindOption, Option: Option{Underlying: underlying, Expiry: expiry, Strike: strike, Call: call}}
}

func NewPool(chainID uint64, factory, token0, token1 string, feeTier uint32) Attrs {
	return Attrs{Kind: KindPool, Pool: Pool{ChainID: chainID, Factory: factory, Token0: token0, Token1: token1, FeeTier: feeTier}}
}
