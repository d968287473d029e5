package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultInboundCapacity  = 100
	defaultOutboundCapacity = 1000
	defaultResponseTimeout  = 30 * time.Second
)

// Config tunes a Bus; zero values take the spec defaults.
type Config struct {
	InboundCapacity  int
	OutboundCapacity int
	ResponseTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.InboundCapacity <= 0 {
		c.InboundCapacity = defaultInboundCapacity
	}
	if c.OutboundCapacity <= 0 {
		c.OutboundCapacity = defaultOutboundCapacity
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	return c
}

// Callback is a synchronous per-recipient hook invoked on a background task
// after a message is enqueued to that recipient's inbound channel (spec §4.3
// routing rule 5). Panics are logged, never propagated.
type Callback func(Message)

// Bus is the Message Bus of spec §4.3.
type Bus struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	inboxes   map[string]chan Message
	callbacks map[string]Callback

	outbound chan Message

	corrMu sync.Mutex
	waiters map[string]chan Message

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Bus and starts its single dispatch loop.
func New(cfg Config, logger *slog.Logger) *Bus {
	cfg = cfg.withDefaults()
	b := &Bus{
		cfg:       cfg,
		logger:    logger,
		inboxes:   make(map[string]chan Message),
		callbacks: make(map[string]Callback),
		outbound:  make(chan Message, cfg.OutboundCapacity),
		waiters:   make(map[string]chan Message),
		stopCh:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	return b
}

// Stop halts the dispatch loop. Pending inbound channels are left as-is;
// callers that have registered agents are responsible for draining them.
func (b *Bus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

// Register installs agentID's inbound channel, optionally with a callback.
// Idempotent: a second Register for the same agentID replaces the callback
// but keeps the existing inbound channel and any messages already queued on
// it.
func (b *Bus) Register(agentID string, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inboxes[agentID]; !ok {
		b.inboxes[agentID] = make(chan Message, b.cfg.InboundCapacity)
	}
	if cb != nil {
		b.callbacks[agentID] = cb
	}
}

// Unregister drains and drops agentID's pending inbound messages, then
// removes it. Idempotent.
func (b *Bus) Unregister(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.inboxes[agentID]; ok {
		for {
			select {
			case <-ch:
			default:
				delete(b.inboxes, agentID)
				delete(b.callbacks, agentID)
				return
			}
		}
	}
}

// Inbox returns agentID's inbound channel for direct consumption, and
// whether agentID is registered.
func (b *Bus) Inbox(agentID string) (<-chan Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.inboxes[agentID]
	return ch, ok
}

// Waiter is returned by Send for a message with RequiresResponse set.
type Waiter struct {
	id  string
	ch  chan Message
	bus *Bus
}

// Wait blocks until the correlated Response/Result arrives, ctx is done, or
// the bus's response timeout elapses.
func (w *Waiter) Wait(ctx context.Context) (Message, error) {
	timer := time.NewTimer(w.bus.cfg.ResponseTimeout)
	defer timer.Stop()
	select {
	case msg := <-w.ch:
		if cancelled, _ := msg.Context["cancelled"].(bool); cancelled {
			return msg, ErrCancelled
		}
		return msg, nil
	case <-ctx.Done():
		w.bus.cancelWaiter(w.id)
		return Message{}, ctx.Err()
	case <-timer.C:
		w.bus.cancelWaiter(w.id)
		return Message{}, ErrResponseTimeout
	}
}

func (b *Bus) cancelWaiter(id string) {
	b.corrMu.Lock()
	defer b.corrMu.Unlock()
	delete(b.waiters, id)
}

// Send enqueues msg onto the global outbound queue and returns immediately,
// unless msg.RequiresResponse, in which case it also returns a Waiter handle
// (spec §4.3).
func (b *Bus) Send(msg Message) (*Waiter, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	var w *Waiter
	if msg.RequiresResponse {
		ch := make(chan Message, 1)
		b.corrMu.Lock()
		b.waiters[msg.ID] = ch
		b.corrMu.Unlock()
		w = &Waiter{id: msg.ID, ch: ch, bus: b}
	}

	select {
	case b.outbound <- msg:
		return w, nil
	default:
		if w != nil {
			b.cancelWaiter(msg.ID)
		}
		b.logger.Warn("dropping message, outbound queue full", "id", msg.ID, "sender", msg.Sender)
		return nil, ErrQueueFull
	}
}

// Broadcast sends msg to every registered agent except msg.Sender.
func (b *Bus) Broadcast(msg Message) {
	msg.Recipient = ""
	msg.Type = TypeBroadcast
	_, _ = b.Send(msg)
}

// RespondTo satisfies the waiter registered for originalID, if any.
// Idempotent: a second call for the same originalID is a no-op.
func (b *Bus) RespondTo(originalID string, response Message) {
	b.corrMu.Lock()
	ch, ok := b.waiters[originalID]
	if ok {
		delete(b.waiters, originalID)
	}
	b.corrMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- response:
	default:
	}
}

// ReleaseAll fulfils every pending waiter with a message flagged
// "cancelled", which Wait reports as ErrCancelled; used by Cancel (spec §5
// step d).
func (b *Bus) ReleaseAll() {
	b.corrMu.Lock()
	defer b.corrMu.Unlock()
	for id, ch := range b.waiters {
		select {
		case ch <- Message{ID: id, Type: TypeEvent, Context: map[string]interface{}{"cancelled": true}}:
		default:
		}
		delete(b.waiters, id)
	}
}

func (b *Bus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopCh:
			return
		case msg := <-b.outbound:
			b.dispatchOne(msg)
		}
	}
}

func (b *Bus) dispatchOne(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus dispatcher panic, recovering", "panic", fmt.Sprint(r))
		}
	}()

	if msg.expired(time.Now()) {
		b.logger.Warn("dropping expired message", "id", msg.ID, "sender", msg.Sender)
		return
	}

	if msg.isBroadcast() {
		b.mu.RLock()
		recipients := make([]string, 0, len(b.inboxes))
		for id := range b.inboxes {
			if id != msg.Sender {
				recipients = append(recipients, id)
			}
		}
		b.mu.RUnlock()
		for _, id := range recipients {
			b.deliverTo(id, msg)
		}
		return
	}

	b.deliverTo(msg.Recipient, msg)
}

func (b *Bus) deliverTo(recipient string, msg Message) {
	b.mu.RLock()
	ch, ok := b.inboxes[recipient]
	cb := b.callbacks[recipient]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("dropping message to unknown recipient", "recipient", recipient, "sender", msg.Sender)
		return
	}

	select {
	case ch <- msg:
	default:
		b.logger.Warn("dropping message, recipient queue full", "recipient", recipient, "sender", msg.Sender)
		return
	}

	if cb != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("bus callback panic, recovering", "recipient", recipient, "panic", fmt.Sprint(r))
				}
			}()
			cb(msg)
		}()
	}
}
