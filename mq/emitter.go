// Package mq relays user notifications between app instances over Redis
// Pub/Sub so a socket held by any instance receives the event.
package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"agromart/rdx"
)

const publishTimeout = 2 * time.Second

// Envelope is the message published on the notifications channel.
type Envelope struct {
	UserID  string          `json:"userId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Sink receives relayed events, normally the local notify.Hub.
type Sink interface {
	Notify(userID, event string, payload any)
}

type Publisher struct {
	client  *rdx.Client
	channel string
}

func NewPublisher(c *rdx.Client) *Publisher {
	return &Publisher{client: c, channel: c.Key("notifications")}
}

// Notify publishes the event. Failures are logged; notifications are best
// effort and never fail the operation that triggered them.
func (p *Publisher) Notify(userID, event string, payload any) {
	data, err := encode(userID, event, payload)
	if err != nil {
		slog.Error("encode relayed notification", "event", event, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Conn.Publish(ctx, p.channel, data).Err(); err != nil {
		slog.Warn("publish notification", "event", event, "userId", userID, "error", err)
	}
}

func encode(userID, event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{UserID: userID, Event: event, Payload: raw})
}

// deliver hands one published message to sink.
func deliver(msg string, sink Sink) error {
	var env Envelope
	if err := json.Unmarshal([]byte(msg), &env); err != nil {
		return err
	}
	var payload any
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		payload = env.Payload
	}
	sink.Notify(env.UserID, env.Event, payload)
	return nil
}

// StartWorker subscribes to the notifications channel and forwards every
// message to sink until ctx is cancelled.
func StartWorker(ctx context.Context, c *rdx.Client, sink Sink) {
	sub := c.Conn.Subscribe(ctx, c.Key("notifications"))
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		slog.Info("notification relay listening")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := deliver(msg.Payload, sink); err != nil {
					slog.Warn("bad relayed notification", "error", err)
				}
			}
		}
	}()
}
