package protocol

import (
	"encoding/binary"
	"fmt"
)

// Side is the taker side of a trade.
type Side uint8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// TradePayload is the TLVTrade body. Price is a signed fixed-point integer
// with 8 implied decimal places (spec §4.1 precision contract: "Exchange
// prices are carried as signed fixed-point integers with 8 implied decimal
// places"); Volume is likewise 8-decimal fixed point. No floating point
// ever appears on the wire.
type TradePayload struct {
	InstrumentID uint64
	Price        int64
	Volume       int64
	Side         Side
	TimestampNS  uint64
}

const tradePayloadLen = 8 + 8 + 8 + 1 + 8

func EncodeTradePayload(t TradePayload) []byte {
	out := make([]byte, tradePayloadLen)
	binary.LittleEndian.PutUint64(out[0:8], t.InstrumentID)
	binary.LittleEndian.PutUint64(out[8:16], uint64(t.Price))
	binary.LittleEndian.PutUint64(out[16:24], uint64(t.Volume))
	out[24] = byte(t.Side)
	binary.LittleEndian.PutUint64(out[25:33], t.TimestampNS)
	return out
}

func DecodeTradePayload(b []byte) (TradePayload, error) {
	if len(b) != tradePayloadLen {
		return TradePayload{}, fmt.Errorf("protocol: trade: invalid payload length %d", len(b))
	}
	return TradePayload{
		InstrumentID: binary.LittleEndian.Uint64(b[0:8]),
		Price:        int64(binary.LittleEndian.Uint64(b[8:16])),
		Volume:       int64(binary.LittleEndian.Uint64(b[16:24])),
		Side:         Side(b[24]),
		TimestampNS:  binary.LittleEndian.Uint64(b[25:33]),
	}, nil
}

// QuotePayload is the TLVQuote body: best bid/ask, same 8-decimal
// fixed-point price convention as TradePayload.
type QuotePayload struct {
	InstrumentID uint64
	BidPrice     int64
	BidSize      int64
	AskPrice     int64
	AskSize      int64
	TimestampNS  uint64
}

const quotePayloadLen = 8 + 8 + 8 + 8 + 8 + 8

func EncodeQuotePayload(q QuotePayload) []byte {
	out := make([]byte, quotePayloadLen)
	binary.LittleEndian.PutUint64(out[0:8], q.InstrumentID)
	binary.LittleEndian.PutUint64(out[8:16], uint64(q.BidPrice))
	binary.LittleEndian.PutUint64(out[16:24], uint64(q.BidSize))
	binary.LittleEndian.PutUint64(out[24:32], uint64(q.AskPrice))
	binary.LittleEndian.PutUint64(out[32:40], uint64(q.AskSize))
	binary.LittleEndian.PutUint64(out[40:48], q.TimestampNS)
	return out
}

func DecodeQuotePayload(b []byte) (QuotePayload, error) {
	if len(b) != quotePayloadLen {
		return QuotePayload{}, fmt.Errorf("protocol: quote: invalid payload length %d", len(b))
	}
	return QuotePayload{
		InstrumentID: binary.LittleEndian.Uint64(b[0:8]),
		BidPrice:     int64(binary.LittleEndian.Uint64(b[8:16])),
		BidSize:      int64(binary.LittleEndian.Uint64(b[16:24])),
		AskPrice:     int64(binary.LittleEndian.Uint64(b[24:32])),
		AskSize:      int64(binary.LittleEndian.Uint64(b[32:40])),
		TimestampNS:  binary.LittleEndian.Uint64(b[40:48]),
	}, nil
}

// PoolSwapPayload is the TLVPoolSwap body for an on-chain DEX swap event.
// AmountIn/AmountOut are unsigned integers at the token's native decimal
// precision (spec §4.1: "Crypto token amounts are carried as unsigned
// integers at the token's native decimal precision ... plus a decimals
// byte"); DecimalsIn/DecimalsOut record that precision per leg since a
// swap's two tokens need not share a decimals count (e.g. 18-decimal WETH
// against 6-decimal USDC).
type PoolSwapPayload struct {
	PoolID      uint64
	AmountIn    uint64
	AmountOut   uint64
	DecimalsIn  uint8
	DecimalsOut uint8
	TimestampNS uint64
}

const poolSwapPayloadLen = 8 + 8 + 8 + 1 + 1 + 8

func EncodePoolSwapPayload(p PoolSwapPayload) []byte {
	out := make([]byte, poolSwapPayloadLen)
	binary.LittleEndian.PutUint64(out[0:8], p.PoolID)
	binary.LittleEndian.PutUint64(out[8:16], p.AmountIn)
	binary.LittleEndian.PutUint64(out[16:24], p.AmountOut)
	out[24] = p.DecimalsIn
	out[25] = p.DecimalsOut
	binary.LittleEndian.PutUint64(out[26:34], p.TimestampNS)
	return out
}

func DecodePoolSwapPayload(b []byte) (PoolSwapPayload, error) {
	if len(b) != poolSwapPayloadLen {
		return PoolSwapPayload{}, fmt.Errorf("protocol: pool_swap: invalid payload length %d", len(b))
	}
	return PoolSwapPayload{
		PoolID:      binary.LittleEndian.Uint64(b[0:8]),
		AmountIn:    binary.LittleEndian.Uint64(b[8:16]),
		AmountOut:   binary.LittleEndian.Uint64(b[16:24]),
		DecimalsIn:  b[24],
		DecimalsOut: b[25],
		TimestampNS: binary.LittleEndian.Uint64(b[26:34]),
	}, nil
}

// HeartbeatPayload is empty-bodied; its sole purpose is keeping an idle
// connection's read deadline from firing (spec §5 "Heartbeat TLV").
type HeartbeatPayload struct{}

func EncodeHeartbeatPayload() []byte { return nil }
