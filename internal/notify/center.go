package notify

import (
	"strconv"
	"sync"
	"time"
)

// Notification is a locally-created anomaly alert. It is never persisted:
// it lives in the panel list until dismissed and in the transient toast
// list until the toast TTL expires.
type Notification struct {
	ID        string
	Message   string
	Timestamp time.Time
	Read      bool
}

// Timer is the cancellable handle the center keeps per toast.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules f after d. Injectable so tests can fire expiry
// by hand instead of sleeping.
type TimerFactory func(d time.Duration, f func()) Timer

type realTimer struct{ *time.Timer }

func stdTimer(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

// Center owns the notification lifecycle: head-ordered panel list,
// transient toast list, unread counter clamped at zero.
type Center struct {
	mu       sync.Mutex
	panel    []Notification
	toast    []string // notification IDs still in the toast view, head first
	unread   int
	toastTTL time.Duration
	timers   map[string]Timer
	newTimer TimerFactory
	now      func() time.Time
	closed   bool
}

func NewCenter(toastTTL time.Duration) *Center {
	return NewCenterWithTimers(toastTTL, stdTimer, time.Now)
}

// NewCenterWithTimers allows injecting the timer factory and clock.
func NewCenterWithTimers(toastTTL time.Duration, newTimer TimerFactory, now func() time.Time) *Center {
	return &Center{
		toastTTL: toastTTL,
		timers:   make(map[string]Timer),
		newTimer: newTimer,
		now:      now,
	}
}

// Add creates an unread notification at the head of both lists and
// schedules its toast expiry.
func (c *Center) Add(message string) Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Notification{}
	}

	n := Notification{
		ID:        strconv.FormatInt(c.now().UnixNano(), 10),
		Message:   message,
		Timestamp: c.now(),
	}
	c.panel = append([]Notification{n}, c.panel...)
	c.toast = append([]string{n.ID}, c.toast...)
	c.unread++

	id := n.ID
	c.timers[id] = c.newTimer(c.toastTTL, func() { c.expireToast(id) })
	return n
}

// expireToast removes a notification from the toast view only; the panel
// entry stays until the user dismisses it.
func (c *Center) expireToast(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, id)
	c.toast = removeID(c.toast, id)
}

// Dismiss drops a notification from both lists. Dismissing an unread one
// decrements the counter, never below zero.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.toast = removeID(c.toast, id)

	for i, n := range c.panel {
		if n.ID != id {
			continue
		}
		if !n.Read && c.unread > 0 {
			c.unread--
		}
		c.panel = append(c.panel[:i], c.panel[i+1:]...)
		return
	}
}

// MarkAllRead flags every notification read without removing any from the
// panel.
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.panel {
		c.panel[i].Read = true
	}
	c.unread = 0
}

// Unread is the count of not-yet-read notifications.
func (c *Center) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// Panel returns a copy of the persistent list, newest first.
func (c *Center) Panel() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.panel))
	copy(out, c.panel)
	return out
}

// Toasts returns the notifications still in the transient toast view,
// newest first.
func (c *Center) Toasts() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	inToast := make(map[string]bool, len(c.toast))
	for _, id := range c.toast {
		inToast[id] = true
	}
	var out []Notification
	for _, n := range c.panel {
		if inToast[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Close cancels every pending toast timer. Adds after Close are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
