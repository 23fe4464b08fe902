package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"boardroom/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DeliverFunc hands a frame to the local connections of a room.
type DeliverFunc func(meetingID string, msg []byte, exceptID string) int

// Broadcaster fans room frames out to every instance serving the room.
type Broadcaster interface {
	Publish(ctx context.Context, meetingID string, msg []byte, exceptID string) error
	Close() error
}

// LocalBroadcaster delivers in process only.
type LocalBroadcaster struct {
	deliver DeliverFunc
}

func NewLocalBroadcaster(deliver DeliverFunc) *LocalBroadcaster {
	return &LocalBroadcaster{deliver: deliver}
}

func (b *LocalBroadcaster) Publish(_ context.Context, meetingID string, msg []byte, exceptID string) error {
	b.deliver(meetingID, msg, exceptID)
	return nil
}

func (b *LocalBroadcaster) Close() error { return nil }

// roomEnvelope is what travels over the Redis channel.
type roomEnvelope struct {
	MeetingID string          `json:"meetingId"`
	ExceptID  string          `json:"exceptId,omitempty"`
	Frame     json.RawMessage `json:"frame"`
}

// RedisBroadcaster publishes room frames on one pub/sub channel; every
// instance, the publisher included, delivers them from its subscription.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	deliver DeliverFunc
	log     *logrus.Entry

	once   sync.Once
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroadcaster(client *redis.Client, channel string, deliver DeliverFunc) *RedisBroadcaster {
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		deliver: deliver,
		log:     utils.Component("realtime.redis"),
		done:    make(chan struct{}),
	}
}

// Start subscribes and delivers incoming envelopes until ctx ends or Close
// is called.
func (b *RedisBroadcaster) Start(ctx context.Context) error {
	b.pubsub = b.client.Subscribe(ctx, b.channel)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		b.pubsub = nil
		return err
	}
	ch := b.pubsub.Channel()
	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env roomEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.WithError(err).Warn("Dropping malformed room envelope")
					continue
				}
				b.deliver(env.MeetingID, env.Frame, env.ExceptID)
			}
		}
	}()
	b.log.WithField("channel", b.channel).Info("Subscribed to room fan-out channel")
	return nil
}

func (b *RedisBroadcaster) Publish(ctx context.Context, meetingID string, msg []byte, exceptID string) error {
	payload, err := json.Marshal(roomEnvelope{MeetingID: meetingID, ExceptID: exceptID, Frame: msg})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroadcaster) Close() error {
	var err error
	b.once.Do(func() {
		if b.pubsub != nil {
			err = b.pubsub.Close()
			<-b.done
		}
	})
	return err
}
