package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodecrypt/nodecrypt/lib/keys"
	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/sirupsen/logrus"
)

type roomEventKind int

const (
	evJoin roomEventKind = iota
	evFrame
	evDetach
)

type roomEvent struct {
	kind  roomEventKind
	sess  *ClientSession
	inner *protocol.Envelope
}

// Room is the per-channel singleton. A single goroutine drains its event
// queue, so joins, leaves, forwards and the idle sweep are linearized in
// arrival order and the Channel membership needs no locking. Session fields
// the loop touches across goroutines (state, lastSeen) are atomic, because
// each session is concurrently driven by its own connection goroutine. For a
// given sender, a broadcast reaches every recipient before the sender's next
// frame is processed, which yields per-sender delivery order.
type Room struct {
	name     string
	channel  *Channel
	keystore *keys.RelayKeystore

	idleTimeout  time.Duration
	tickInterval time.Duration

	events   chan roomEvent
	done     chan struct{}
	stopOnce sync.Once

	memberCount  atomic.Int64
	lastActivity atomic.Int64
}

// NewRoom creates the singleton for one channel name.
func NewRoom(name string, ks *keys.RelayKeystore, idleTimeout, tickInterval time.Duration) *Room {
	r := &Room{
		name:         name,
		channel:      NewChannel(name),
		keystore:     ks,
		idleTimeout:  idleTimeout,
		tickInterval: tickInterval,
		events:       make(chan roomEvent, 256),
		done:         make(chan struct{}),
	}
	r.lastActivity.Store(time.Now().UnixNano())
	return r
}

// Run drains the event queue until Stop. It owns all channel state.
func (r *Room) Run() {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			for _, m := range r.channel.Members() {
				m.Close()
			}
			return
		case ev := <-r.events:
			r.handle(ev)
		case <-ticker.C:
			r.sweepIdle(time.Now())
			if err := r.keystore.RotateIfDue(time.Now()); err != nil {
				log.WithError(err).Warn("relay identity rotation failed")
			}
		}
	}
}

func (r *Room) handle(ev roomEvent) {
	switch ev.kind {
	case evJoin:
		r.channel.Join(ev.sess)
		r.memberCount.Store(int64(len(r.channel.Members())))
	case evFrame:
		switch ev.inner.Action {
		case protocol.ActionClient:
			r.channel.ForwardUnicast(ev.sess, ev.inner)
		case protocol.ActionChannel:
			r.channel.ForwardBroadcast(ev.sess, ev.inner)
		}
	case evDetach:
		ev.sess.Close()
		r.channel.Leave(ev.sess)
		r.memberCount.Store(int64(len(r.channel.Members())))
	}
}

// sweepIdle closes sessions with no frame inside the idle timeout. Closing a
// transport is the only cancellation signal; the connection goroutine's read
// fails and its detach event finishes the leave broadcast.
func (r *Room) sweepIdle(now time.Time) {
	for _, m := range r.channel.Members() {
		if m.IdleExpired(now, r.idleTimeout) {
			log.WithFields(logrus.Fields{
				"at":        "relay.Room.sweepIdle",
				"channel":   r.name,
				"client_id": m.ID,
			}).Info("closing_idle_session")
			m.Close()
		}
	}
}

// Join enqueues a join for a session that has completed its handshake.
// Returns false if the room has stopped.
func (r *Room) Join(sess *ClientSession) bool {
	return r.enqueue(roomEvent{kind: evJoin, sess: sess})
}

// Frame enqueues a decrypted inner chat envelope.
func (r *Room) Frame(sess *ClientSession, inner *protocol.Envelope) bool {
	return r.enqueue(roomEvent{kind: evFrame, sess: sess, inner: inner})
}

// Detach enqueues the removal of a session whose transport ended.
func (r *Room) Detach(sess *ClientSession) bool {
	return r.enqueue(roomEvent{kind: evDetach, sess: sess})
}

func (r *Room) enqueue(ev roomEvent) bool {
	r.lastActivity.Store(time.Now().UnixNano())
	select {
	case <-r.done:
		return false
	case r.events <- ev:
		return true
	}
}

// MemberCount reports the current membership, readable from other goroutines.
func (r *Room) MemberCount() int {
	return int(r.memberCount.Load())
}

// Idle reports whether the room is empty and has seen no event for at least
// grace. A room with a join still queued is never idle.
func (r *Room) Idle(grace time.Duration) bool {
	return r.memberCount.Load() == 0 &&
		time.Since(time.Unix(0, r.lastActivity.Load())) >= grace
}

// Stop shuts the room down and closes any remaining member transports.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}
