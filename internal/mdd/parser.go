package mdd

import (
	"encoding/json"
	"strconv"
	"time"
)

// ingestTick is the exchange-agnostic shape produced by Layer 1 parsing,
// before Layer 2 enrichment computes the derived fields.
type ingestTick struct {
	Symbol      string
	TimestampMS int64
	Price       float64
	Volume      float64
	BestBid     float64
	BestAsk     float64
	Exchange    string
	Anomaly     AnomalyType
}

// Parser turns one exchange's wire message into an ingestTick. Validation
// tolerates unknown fields; a message missing a required field is still
// returned, flagged AnomalyMissingField, per §7 ("never dropped in-flight").
type Parser interface {
	Parse(payload []byte) (ingestTick, error)
}

func floatField(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// genericTickerParser handles the common "flat JSON object with named
// fields" shape shared (after field-name mapping) by Binance book-ticker,
// OKX tickers channel, Coinbase ticker channel, and Kraken's ticker message
// once unwrapped from its array envelope.
type genericTickerParser struct {
	exchange  string
	symbolKey string
	priceKey  string
	volumeKey string
	bidKey    string
	askKey    string
	tsKey     string // empty means "stamp receipt time"
}

func (p genericTickerParser) Parse(payload []byte) (ingestTick, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return ingestTick{}, err
	}

	t := ingestTick{Exchange: p.exchange, TimestampMS: time.Now().UnixMilli()}

	if sym, ok := stringField(m, p.symbolKey); ok {
		t.Symbol = sym
	} else {
		t.Anomaly = AnomalyMissingField
	}

	if price, ok := floatField(m, p.priceKey); ok {
		t.Price = price
	} else {
		t.Anomaly = AnomalyMissingField
	}

	if vol, ok := floatField(m, p.volumeKey); ok {
		t.Volume = vol
	}
	if bid, ok := floatField(m, p.bidKey); ok {
		t.BestBid = bid
	}
	if ask, ok := floatField(m, p.askKey); ok {
		t.BestAsk = ask
	}
	if p.tsKey != "" {
		if ts, ok := floatField(m, p.tsKey); ok {
			t.TimestampMS = int64(ts)
		}
	}

	return t, nil
}

// NewParser returns the field-mapping parser for a supported exchange.
func NewParser(exchange string) Parser {
	switch exchange {
	case "binance":
		return genericTickerParser{exchange: exchange, symbolKey: "s", priceKey: "c", volumeKey: "v", bidKey: "b", askKey: "a", tsKey: "E"}
	case "okx":
		return genericTickerParser{exchange: exchange, symbolKey: "instId", priceKey: "last", volumeKey: "vol24h", bidKey: "bidPx", askKey: "askPx", tsKey: "ts"}
	case "coinbase":
		return genericTickerParser{exchange: exchange, symbolKey: "product_id", priceKey: "price", volumeKey: "volume_24h", bidKey: "best_bid", askKey: "best_ask"}
	case "kraken":
		return genericTickerParser{exchange: exchange, symbolKey: "pair", priceKey: "c", volumeKey: "v", bidKey: "b", askKey: "a"}
	default:
		return genericTickerParser{exchange: exchange, symbolKey: "symbol", priceKey: "price", volumeKey: "volume", bidKey: "bid", askKey: "ask"}
	}
}
