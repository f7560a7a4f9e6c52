package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RealtimeFeed subscribes to Supabase realtime change broadcasts over a
// websocket using the phoenix channel protocol.
type RealtimeFeed struct {
	conn   *websocket.Conn
	events chan Event
	log    *logrus.Logger

	closeOnce sync.Once
	done      chan struct{}
}

type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

const heartbeatInterval = 30 * time.Second

// DialRealtime connects to the project's realtime endpoint and joins one
// channel per table.
func DialRealtime(ctx context.Context, baseURL, apiKey string, tables []string, log *logrus.Logger) (*RealtimeFeed, error) {
	wsURL := strings.TrimRight(baseURL, "/")
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = fmt.Sprintf("%s/realtime/v1/websocket?apikey=%s&vsn=1.0.0", wsURL, apiKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}

	feed := &RealtimeFeed{
		conn:   conn,
		events: make(chan Event, 16),
		log:    log,
		done:   make(chan struct{}),
	}

	for i, table := range tables {
		join := phoenixMessage{
			Topic:   "realtime:public:" + table,
			Event:   "phx_join",
			Payload: json.RawMessage(`{}`),
			Ref:     fmt.Sprintf("%d", i+1),
		}
		if err := conn.WriteJSON(join); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to join channel for %s: %w", table, err)
		}
	}

	go feed.heartbeatLoop()
	go feed.readLoop()
	return feed, nil
}

func (f *RealtimeFeed) Events() <-chan Event { return f.events }

func (f *RealtimeFeed) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	ref := 1000
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			ref++
			beat := phoenixMessage{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage(`{}`),
				Ref:     fmt.Sprintf("%d", ref),
			}
			if err := f.conn.WriteJSON(beat); err != nil {
				f.log.WithError(err).Warn("Realtime heartbeat failed")
				return
			}
		}
	}
}

func (f *RealtimeFeed) readLoop() {
	defer close(f.events)
	for {
		var msg phoenixMessage
		if err := f.conn.ReadJSON(&msg); err != nil {
			select {
			case <-f.done:
			default:
				f.log.WithError(err).Warn("Realtime connection lost")
			}
			return
		}
		switch msg.Event {
		case "INSERT", "UPDATE", "DELETE":
			table := strings.TrimPrefix(msg.Topic, "realtime:public:")
			select {
			case f.events <- Event{Table: table, Type: msg.Event}:
			default:
				// Consumer is behind; dropping is fine, the interval
				// refetch covers it.
			}
		case "phx_reply", "phx_close", "heartbeat":
		}
	}
}

// Close shuts the websocket down and ends both loops.
func (f *RealtimeFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}
