package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConcertsPubSub fans out "concert changed" notices so other replicas can
// drop their cached views.
type ConcertsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewConcertsPubSub(rdb *redis.Client) *ConcertsPubSub {
	return &ConcertsPubSub{
		rdb:     rdb,
		channel: ChannelConcertsChanged(),
	}
}

type concertChangedMsg struct {
	Type      string `json:"type"`
	ConcertID int64  `json:"concert_id"`
	TsUnix    int64  `json:"ts_unix"`
}

func (p *ConcertsPubSub) PublishConcertChanged(ctx context.Context, concertID int64) error {
	msg := concertChangedMsg{
		Type:      "concert_changed",
		ConcertID: concertID,
		TsUnix:    time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every notice, until ctx is done.
func (p *ConcertsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, concertID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var msg concertChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.ConcertID != 0 {
				handler(ctx, msg.ConcertID)
			}
		}
	}
}
