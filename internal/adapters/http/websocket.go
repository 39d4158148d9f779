package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/civic311/internal/adapters/nats"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action       string `json:"action"`       // "subscribe" | "unsubscribe"
	Jurisdiction string `json:"jurisdiction"` // jurisdiction filter for "routed" and "boundaries"
	Channel      string `json:"channel"`      // "requests" | "routed" | "unrouted" | "boundaries"
}

// wsSubject maps a client subscription to a NATS subject.
func wsSubject(channel, jurisdiction string) (string, error) {
	switch channel {
	case "", "requests":
		return natsadapter.RequestsSubjects, nil
	case "routed":
		if jurisdiction == "" {
			return "civic.requests.routed.>", nil
		}
		return natsadapter.RoutedSubject(jurisdiction), nil
	case "unrouted":
		return natsadapter.UnroutedSubject, nil
	case "boundaries":
		if jurisdiction == "" {
			return natsadapter.BoundariesSubjects, nil
		}
		return natsadapter.BoundaryChangedSubject(jurisdiction), nil
	}
	return "", fmt.Errorf("unknown channel: %s", channel)
}

// subscription is the part of *nats.Subscription a feed needs.
type subscription interface {
	Unsubscribe() error
}

// wsFeed tracks one client's subscriptions. The client starts on the default
// feed of every request event; its first explicit subscribe replaces that
// feed, so narrowing to one jurisdiction does not deliver events twice.
type wsFeed struct {
	subscribe func(subject string) (subscription, error)
	subs      map[string]subscription
	defaulted bool
}

func newWSFeed(subscribe func(subject string) (subscription, error)) *wsFeed {
	return &wsFeed{subscribe: subscribe, subs: make(map[string]subscription)}
}

func (f *wsFeed) start() error {
	s, err := f.subscribe(natsadapter.RequestsSubjects)
	if err != nil {
		return err
	}
	f.subs[natsadapter.RequestsSubjects] = s
	f.defaulted = true
	return nil
}

// add subscribes to subject and returns the status reported to the client.
func (f *wsFeed) add(subject string) (string, error) {
	if f.defaulted {
		f.defaulted = false
		if subject == natsadapter.RequestsSubjects {
			return "subscribed", nil
		}
		if s, ok := f.subs[natsadapter.RequestsSubjects]; ok {
			_ = s.Unsubscribe()
			delete(f.subs, natsadapter.RequestsSubjects)
		}
	}
	if _, exists := f.subs[subject]; exists {
		return "already subscribed", nil
	}
	s, err := f.subscribe(subject)
	if err != nil {
		return "", err
	}
	f.subs[subject] = s
	return "subscribed", nil
}

// remove reports whether subject was subscribed.
func (f *wsFeed) remove(subject string) bool {
	s, exists := f.subs[subject]
	if !exists {
		return false
	}
	_ = s.Unsubscribe()
	delete(f.subs, subject)
	f.defaulted = false
	return true
}

func (f *wsFeed) close() {
	for subject, s := range f.subs {
		_ = s.Unsubscribe()
		delete(f.subs, subject)
	}
}

// WebSocketHandler returns a handler that relays service request events
// from NATS to connected clients. Every client starts on all request events;
// {"action":"subscribe","channel":"routed","jurisdiction":"..."} switches to
// the named feeds, and further subscribes add to them.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		if nc == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"event stream unavailable"}`))
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		feed := newWSFeed(func(subject string) (subscription, error) {
			return nc.Subscribe(subject, relay)
		})
		if err := feed.start(); err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}
		defer feed.close()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, err := wsSubject(m.Channel, m.Jurisdiction)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error()})
				continue
			}

			switch m.Action {
			case "subscribe":
				status, err := feed.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": status, "subject": subject})

			case "unsubscribe":
				if feed.remove(subject) {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
