package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State of the broker connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Broker is the pub/sub client port. The production implementation is the
// paho MQTT adapter; tests use a fake.
type Broker interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// Dialer creates a fresh broker connection. onLost is called once when an
// established connection drops.
type Dialer func(onLost func(err error)) Broker

// Events are the listener's typed callbacks. Nil fields are skipped.
type Events struct {
	// OnAnomaly fires once per matched anomaly payload.
	OnAnomaly func(message string)
	// OnState fires on every connection state transition.
	OnState func(s State)
	// OnDeviceOnline fires when the tracked device flips between online
	// and offline.
	OnDeviceOnline func(online bool)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules f after d; injectable for tests.
type TimerFactory func(d time.Duration, f func()) Timer

type realTimer struct{ *time.Timer }

func stdTimer(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

// anomalySentence is the single hardcoded signal the device publishes.
// Everything else on the topic is ignored. A pattern/category system was
// considered and deliberately not built; the matcher is one function so
// such a system could slot in later.
const anomalySentence = "anomaly detected: no qr code detected for over 10 seconds!"

// matchesAnomaly normalizes case and whitespace, then requires an exact
// match against the one expected sentence.
func matchesAnomaly(payload []byte) bool {
	return strings.ToLower(strings.TrimSpace(string(payload))) == anomalySentence
}

// Options configure a Listener.
type Options struct {
	AnomalyTopic     string
	PresenceTopic    string // empty disables device-presence tracking
	ReconnectDelay   time.Duration
	HeartbeatTimeout time.Duration
}

// Listener subscribes to the anomaly topic (and optionally a
// device-presence topic) and drives the reconnect policy: on any error or
// close it schedules exactly one reconnect attempt after a fixed delay,
// forever, until Close cancels everything. No backoff, no attempt cap.
type Listener struct {
	opts   Options
	dial   Dialer
	events Events
	log    *slog.Logger

	newTimer TimerFactory
	now      func() time.Time

	mu             sync.Mutex
	state          State
	broker         Broker
	reconnectTimer Timer
	watchdog       Timer
	deviceOnline   bool
	lastHeartbeat  time.Time
	closed         bool
}

func NewListener(opts Options, dial Dialer, events Events, log *slog.Logger) *Listener {
	return NewListenerWithTimers(opts, dial, events, log, stdTimer, time.Now)
}

// NewListenerWithTimers allows injecting the timer factory and clock.
func NewListenerWithTimers(opts Options, dial Dialer, events Events, log *slog.Logger, newTimer TimerFactory, now func() time.Time) *Listener {
	return &Listener{
		opts:     opts,
		dial:     dial,
		events:   events,
		log:      log,
		newTimer: newTimer,
		now:      now,
	}
}

// Start kicks off the first connection attempt. It returns immediately;
// connection progress is reported through Events.OnState.
func (l *Listener) Start(ctx context.Context) {
	go l.connect(ctx)
}

func (l *Listener) connect(ctx context.Context) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.setStateLocked(StateConnecting)
	broker := l.dial(func(err error) { l.onConnectionLost(ctx, err) })
	l.broker = broker
	l.mu.Unlock()

	if err := broker.Connect(ctx); err != nil {
		l.log.Warn("broker connect failed", "error", err)
		l.mu.Lock()
		l.setStateLocked(StateDisconnected)
		l.scheduleReconnectLocked(ctx)
		l.mu.Unlock()
		return
	}

	if err := broker.Subscribe(l.opts.AnomalyTopic, 1, l.handleMessage); err != nil {
		l.log.Warn("anomaly subscribe failed", "topic", l.opts.AnomalyTopic, "error", err)
	}
	if l.opts.PresenceTopic != "" {
		if err := broker.Subscribe(l.opts.PresenceTopic, 1, l.handleMessage); err != nil {
			l.log.Warn("presence subscribe failed", "topic", l.opts.PresenceTopic, "error", err)
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.setStateLocked(StateConnected)
	l.mu.Unlock()
	l.log.Info("broker connected", "anomaly_topic", l.opts.AnomalyTopic)
}

func (l *Listener) handleMessage(topic string, payload []byte) {
	switch topic {
	case l.opts.AnomalyTopic:
		if !matchesAnomaly(payload) {
			return
		}
		l.log.Info("anomaly received")
		if l.events.OnAnomaly != nil {
			l.events.OnAnomaly(strings.TrimSpace(string(payload)))
		}
	case l.opts.PresenceTopic:
		l.handlePresence(payload)
	}
}

func (l *Listener) handlePresence(payload []byte) {
	var msg struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.log.Warn("bad presence payload", "error", err)
		return
	}

	l.mu.Lock()
	online := msg.Status == "online"
	changed := online != l.deviceOnline
	l.deviceOnline = online
	if online {
		l.lastHeartbeat = l.now()
		l.resetWatchdogLocked()
	} else if l.watchdog != nil {
		l.watchdog.Stop()
		l.watchdog = nil
	}
	l.mu.Unlock()

	if changed && l.events.OnDeviceOnline != nil {
		l.events.OnDeviceOnline(online)
	}
}

// resetWatchdogLocked rearms the heartbeat watchdog. If no heartbeat
// arrives within the timeout the device is flipped offline even without
// an explicit offline message.
func (l *Listener) resetWatchdogLocked() {
	if l.watchdog != nil {
		l.watchdog.Stop()
	}
	l.watchdog = l.newTimer(l.opts.HeartbeatTimeout, func() {
		l.mu.Lock()
		l.watchdog = nil
		changed := l.deviceOnline
		l.deviceOnline = false
		l.mu.Unlock()
		if changed {
			l.log.Warn("device heartbeat timed out")
			if l.events.OnDeviceOnline != nil {
				l.events.OnDeviceOnline(false)
			}
		}
	})
}

func (l *Listener) onConnectionLost(ctx context.Context, err error) {
	l.log.Warn("broker connection lost", "error", err)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.setStateLocked(StateDisconnected)
	l.scheduleReconnectLocked(ctx)
}

// scheduleReconnectLocked arms at most one pending reconnect attempt.
func (l *Listener) scheduleReconnectLocked(ctx context.Context) {
	if l.closed || l.reconnectTimer != nil {
		return
	}
	l.reconnectTimer = l.newTimer(l.opts.ReconnectDelay, func() {
		l.mu.Lock()
		l.reconnectTimer = nil
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return
		}
		l.log.Info("reconnecting to broker")
		l.connect(ctx)
	})
}

func (l *Listener) setStateLocked(s State) {
	if l.state == s {
		return
	}
	l.state = s
	if l.events.OnState != nil {
		go l.events.OnState(s)
	}
}

// State reports the current connection state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// DeviceOnline reports the tracked device's presence flag and its last
// heartbeat time.
func (l *Listener) DeviceOnline() (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deviceOnline, l.lastHeartbeat
}

// Close unsubscribes, force-closes the connection and cancels the pending
// reconnect and watchdog timers. The listener cannot be restarted.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.reconnectTimer != nil {
		l.reconnectTimer.Stop()
		l.reconnectTimer = nil
	}
	if l.watchdog != nil {
		l.watchdog.Stop()
		l.watchdog = nil
	}
	broker := l.broker
	l.broker = nil
	l.setStateLocked(StateDisconnected)
	l.mu.Unlock()

	if broker != nil {
		topics := []string{l.opts.AnomalyTopic}
		if l.opts.PresenceTopic != "" {
			topics = append(topics, l.opts.PresenceTopic)
		}
		if err := broker.Unsubscribe(topics...); err != nil {
			l.log.Warn("unsubscribe failed", "error", err)
		}
		broker.Disconnect()
	}
}
