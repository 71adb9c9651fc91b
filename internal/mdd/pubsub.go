package mdd

import "sync"

// Callback receives a published payload; the concrete type depends on the
// topic (MarketDataSnapshot for ticker/phase* routes, KlineData for kline,
// OrderBookSnapshot for orderbook, Trade for trade, MarkPrice for mark_price).
type Callback func(payload interface{})

// Bus fans out published payloads to topic subscribers asynchronously, the
// Layer 3 distribution primitive (§4.1).
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]Callback
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]Callback)}
}

// Subscribe registers cb for topic. Matches the public contract's
// subscribe(topic, callback).
func (b *Bus) Subscribe(topic Topic, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], cb)
}

// Publish fans payload out to every subscriber of topic. Each callback runs
// on its own goroutine so a slow subscriber cannot stall the pipeline —
// "subscribers fan-out asynchronously" per §4.1 concurrency notes.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	b.mu.RLock()
	cbs := append([]Callback(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, cb := range cbs {
		go cb(payload)
	}
}

// routesFor returns the logical routes a raw message type fans out to,
// per the §4.1 Layer 3 routing table.
func routesFor(kind Topic) []Topic {
	switch kind {
	case TopicKline, TopicTrade:
		return []Topic{kind, TopicPhase1A, TopicIndicators, TopicUSCP}
	case TopicOrderBook, TopicMarkPrice:
		return []Topic{kind, TopicPhase1B, TopicUSCP}
	default:
		return []Topic{kind, TopicUSCP}
	}
}
