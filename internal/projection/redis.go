package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fundledger/internal/domain"
)

// RedisSink keeps one hash per campaign, a donor set per campaign and a cursor
// key, and publishes every applied event on a channel.
type RedisSink struct {
	rdb     *goredis.Client
	prefix  string
	channel string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisSink(rdb *goredis.Client, prefix, channel string) *RedisSink {
	if prefix == "" {
		prefix = "fundledger"
	}
	return &RedisSink{rdb: rdb, prefix: prefix, channel: channel}
}

func (s *RedisSink) cursorKey() string { return s.prefix + ":cursor" }

func (s *RedisSink) campaignKey(id uint64) string {
	return s.prefix + ":campaign:" + strconv.FormatUint(id, 10)
}

func (s *RedisSink) donorsKey(id uint64) string {
	return s.campaignKey(id) + ":donors"
}

func (s *RedisSink) Cursor(ctx context.Context) (uint64, error) {
	v, err := s.rdb.Get(ctx, s.cursorKey()).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis cursor: %w", err)
	}
	return v, nil
}

// Apply folds event into the campaign hash and advances the cursor inside one
// MULTI/EXEC block, then publishes the event.
func (s *RedisSink) Apply(ctx context.Context, event domain.Event) error {
	key := s.campaignKey(event.CampaignID)
	current, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis load %s: %w", key, err)
	}
	display, err := displayFromFields(current)
	if err != nil {
		return err
	}
	next, err := Fold(display, event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, next.fields())
		if event.Kind == domain.EventDonation {
			pipe.SAdd(ctx, s.donorsKey(event.CampaignID), event.Account.String())
		}
		pipe.Set(ctx, s.cursorKey(), strconv.FormatUint(event.Seq, 10), 0)
		if s.channel != "" {
			pipe.Publish(ctx, s.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply event %d: %w", event.Seq, err)
	}
	return nil
}

// Display reads the projected view of one campaign.
func (s *RedisSink) Display(ctx context.Context, id uint64) (Display, int64, error) {
	m, err := s.rdb.HGetAll(ctx, s.campaignKey(id)).Result()
	if err != nil {
		return Display{}, 0, err
	}
	d, err := displayFromFields(m)
	if err != nil {
		return Display{}, 0, err
	}
	donors, err := s.rdb.SCard(ctx, s.donorsKey(id)).Result()
	if err != nil {
		return Display{}, 0, err
	}
	return d, donors, nil
}

var _ Sink = (*RedisSink)(nil)
