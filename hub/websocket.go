// SPDX-License-Identifier: GPL-3.0-or-later
package hub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin than the api
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsSubscriber struct {
	conn *websocket.Conn

	// gorilla connections allow only one concurrent writer
	writeMu sync.Mutex
}

func (w *wsSubscriber) Send(event domain.Event) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return fmt.Errorf("could not set write deadline: %w", err)
	}

	return w.conn.WriteJSON(event)
}

func (w *wsSubscriber) Close() error {
	return w.conn.Close()
}

// ServeWs upgrades an http request to a websocket subscriber and keeps it
// registered until the connection breaks. Clients may only send keepalives,
// incoming frames are read and discarded.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("could not upgrade connection: %w", err)
	}

	sub := &wsSubscriber{conn: conn}
	h.Add(sub)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Remove(sub)
				return
			}
		}
	}()

	return nil
}
