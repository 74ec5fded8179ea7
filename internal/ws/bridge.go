package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/askly/chat/internal/models"
)

// Bridge carries events between server instances and tracks which users are
// online across all of them. A single-instance deployment uses LocalBridge.
type Bridge interface {
	Publish(ctx context.Context, ev models.Event) error
	Subscribe(ctx context.Context, handler func(models.Event))
	SetOnline(ctx context.Context, userID int) error
	SetOffline(ctx context.Context, userID int) error
	OnlineUsers(ctx context.Context) ([]int, error)
}

// LocalBridge is the in-process bridge: publish is a no-op (there is nobody
// else to tell) and presence is a plain map.
type LocalBridge struct {
	mu     sync.Mutex
	online map[int]bool
}

func NewLocalBridge() *LocalBridge {
	return &LocalBridge{online: make(map[int]bool)}
}

func (b *LocalBridge) Publish(ctx context.Context, ev models.Event) error { return nil }

func (b *LocalBridge) Subscribe(ctx context.Context, handler func(models.Event)) {}

func (b *LocalBridge) SetOnline(ctx context.Context, userID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.online[userID] = true
	return nil
}

func (b *LocalBridge) SetOffline(ctx context.Context, userID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.online, userID)
	return nil
}

func (b *LocalBridge) OnlineUsers(ctx context.Context) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.online))
	for id := range b.online {
		ids = append(ids, id)
	}
	return ids, nil
}

const (
	redisEventChannel = "chat:events"
	redisOnlineSet    = "chat:online"
)

// envelope wraps an event on the redis channel with the publishing instance's
// ID so an instance can drop its own messages (redis delivers to the
// publisher's subscription too).
type envelope struct {
	Origin string       `json:"origin"`
	Event  models.Event `json:"event"`
}

// RedisBridge fans events out over redis pub/sub and keeps the shared
// online-user set.
type RedisBridge struct {
	rdb    *redis.Client
	id     string
	logger *zap.Logger
}

func NewRedisBridge(rdb *redis.Client, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{rdb: rdb, id: uuid.NewString(), logger: logger}
}

func (b *RedisBridge) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(envelope{Origin: b.id, Event: ev})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, redisEventChannel, payload).Err()
}

func (b *RedisBridge) Subscribe(ctx context.Context, handler func(models.Event)) {
	sub := b.rdb.Subscribe(ctx, redisEventChannel)
	go func() {
		defer sub.Close()
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("bad bridge payload", zap.Error(err))
					continue
				}
				if env.Origin == b.id {
					continue
				}
				handler(env.Event)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (b *RedisBridge) SetOnline(ctx context.Context, userID int) error {
	return b.rdb.SAdd(ctx, redisOnlineSet, strconv.Itoa(userID)).Err()
}

func (b *RedisBridge) SetOffline(ctx context.Context, userID int) error {
	return b.rdb.SRem(ctx, redisOnlineSet, strconv.Itoa(userID)).Err()
}

func (b *RedisBridge) OnlineUsers(ctx context.Context) ([]int, error) {
	members, err := b.rdb.SMembers(ctx, redisOnlineSet).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
