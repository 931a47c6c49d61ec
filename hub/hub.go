// SPDX-License-Identifier: GPL-3.0-or-later

// Package hub fans new-detection events out to live dashboard subscribers.
package hub

import (
	"sync"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/sirupsen/logrus"
)

type Subscriber interface {
	Send(event domain.Event) error
	Close() error
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[Subscriber]struct{}

	l *logrus.Logger
}

func NewHub() *Hub {
	return &Hub{
		subscribers: map[Subscriber]struct{}{},
		l:           log.Logger(log.LOG_HUB),
	}
}

func (h *Hub) Add(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers[s] = struct{}{}
	h.l.WithField("subscribers", len(h.subscribers)).Debug("Subscriber connected")
}

func (h *Hub) Remove(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(s)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Broadcast delivers the event to every currently connected subscriber.
// Delivery is best-effort: a failed send drops that subscriber and the
// remaining ones still receive the event. The set is locked for the whole
// iteration so concurrent Add/Remove cannot mutate it mid-delivery.
func (h *Hub) Broadcast(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := []Subscriber{}
	for s := range h.subscribers {
		err := s.Send(event)
		if err != nil {
			h.l.WithFields(logrus.Fields{"error": err}).Debug("Dropping broken subscriber")
			failed = append(failed, s)
		}
	}

	for _, s := range failed {
		h.removeLocked(s)
	}

	h.l.WithFields(logrus.Fields{"type": event.Type, "delivered": len(h.subscribers)}).Debug("Broadcast event")
}

func (h *Hub) removeLocked(s Subscriber) {
	if _, ok := h.subscribers[s]; !ok {
		return
	}

	delete(h.subscribers, s)
	_ = s.Close()
	h.l.WithField("subscribers", len(h.subscribers)).Debug("Subscriber removed")
}
