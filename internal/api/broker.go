package api

import (
    "sync"
)

// Event is a typed message fanned out to stream subscribers. Data must
// survive a JSON round trip when the Redis broker is in use.
type Event struct {
    Type string `json:"type"`
    Data any    `json:"data"`
}

// EventBroker fans events out by topic. Delivery is best effort: slow
// subscribers drop events rather than block publishers.
type EventBroker interface {
    Subscribe(topic string) (chan Event, error)
    Unsubscribe(topic string, ch chan Event)
    Publish(topic string, evt Event) error
}

// Broker is the in-process EventBroker.
type Broker struct {
    mu      sync.Mutex
    subs    map[string]map[chan Event]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(topic string) (chan Event, error) {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[topic] == nil { b.subs[topic] = map[chan Event]struct{}{} }
    b.subs[topic][ch] = struct{}{}
    b.mu.Unlock()
    return ch, nil
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *Broker) Unsubscribe(topic string, ch chan Event) {
    b.mu.Lock()
    m := b.subs[topic]
    _, ok := m[ch]
    if ok {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, topic) }
    }
    b.mu.Unlock()
    if ok { close(ch) }
}

func (b *Broker) Publish(topic string, evt Event) error {
    b.mu.Lock()
    for ch := range b.subs[topic] {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
    return nil
}

// Subscribers reports how many channels listen on topic.
func (b *Broker) Subscribers(topic string) int {
    b.mu.Lock()
    defer b.mu.Unlock()
    return len(b.subs[topic])
}
