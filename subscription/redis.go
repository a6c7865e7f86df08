package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/internal/consts"
)

// RedisChannel receives push frames relayed onto Redis pub/sub, one channel
// per board.
type RedisChannel struct {
	Client         *redis.Client
	Logger         *log.Logger
	ReconnectDelay time.Duration
}

// NewRedisChannel returns a channel reading from rc.
func NewRedisChannel(rc *redis.Client, logger *log.Logger) *RedisChannel {
	return &RedisChannel{Client: rc, Logger: logger, ReconnectDelay: time.Second}
}

func (r *RedisChannel) Subscribe(ctx context.Context, boardID string, handler Handler) (Subscription, error) {
	if boardID == "" {
		return nil, fmt.Errorf("%w: board id is required", domain.ErrValidation)
	}
	ctx, cancel := context.WithCancel(ctx)
	channel := consts.BoardChannel(boardID)
	ps := r.Client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", domain.ErrTransport, channel, err)
	}
	s := &redisSubscription{
		disp:   newDispatcher(boardID, handler, r.Logger, "redis"),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		r.listen(ctx, s, ps, channel)
	}()
	return s, nil
}

// listen consumes the pubsub channel and resubscribes whenever it closes
// until ctx ends.
func (r *RedisChannel) listen(ctx context.Context, s *redisSubscription, ps *redis.PubSub, channel string) {
	delay := r.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	for {
		ch := ps.Channel()
	consume:
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break consume
				}
				s.disp.frame([]byte(msg.Payload))
			}
		}
		_ = ps.Close()
		if ctx.Err() != nil {
			return
		}
		s.disp.logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		ps = r.Client.Subscribe(ctx, channel)
	}
}

type redisSubscription struct {
	disp   *dispatcher
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.disp.stop()
		s.cancel()
	})
	return nil
}
