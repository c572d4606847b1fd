package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"adforge/internal/campaign"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultLockTTL    = 2 * time.Minute
)

// releaseScript deletes the busy key only when it still holds our token,
// so an expired lock taken over by another cycle is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var tlsConfig *tls.Config
	if cfg.TLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		TLSConfig:    tlsConfig,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

type RedisOptions struct {
	MaxHistory int
	SessionTTL time.Duration
	LockTTL    time.Duration
	Prefix     string
	Logger     *slog.Logger
}

type RedisStore struct {
	rdb        *redis.Client
	maxHistory int
	sessionTTL time.Duration
	lockTTL    time.Duration
	prefix     string
	logger     *slog.Logger
}

func NewRedisStore(rdb *redis.Client, opts RedisOptions) *RedisStore {
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryLimit
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "adforge"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &RedisStore{
		rdb:        rdb,
		maxHistory: maxHistory,
		sessionTTL: sessionTTL,
		lockTTL:    lockTTL,
		prefix:     prefix,
		logger:     logger,
	}
}

func (s *RedisStore) historyKey(sessionID string) string {
	return s.prefix + ":" + sessionID + ":history"
}

func (s *RedisStore) currentKey(sessionID string) string {
	return s.prefix + ":" + sessionID + ":current"
}

func (s *RedisStore) busyKey(sessionID string) string {
	return s.prefix + ":" + sessionID + ":busy"
}

func (s *RedisStore) Push(ctx context.Context, sessionID string, ad campaign.Ad) error {
	data, err := json.Marshal(ad)
	if err != nil {
		return fmt.Errorf("encode ad: %w", err)
	}

	hk, ck := s.historyKey(sessionID), s.currentKey(sessionID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, hk, data)
		pipe.LTrim(ctx, hk, 0, int64(s.maxHistory-1))
		pipe.Expire(ctx, hk, s.sessionTTL)
		pipe.Set(ctx, ck, ad.ID, s.sessionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]campaign.Ad, error) {
	raw, err := s.rdb.LRange(ctx, s.historyKey(sessionID), 0, int64(s.maxHistory-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	ads := make([]campaign.Ad, 0, len(raw))
	for _, item := range raw {
		var ad campaign.Ad
		if err := json.Unmarshal([]byte(item), &ad); err != nil {
			s.logger.Warn("skipping corrupt history entry", "session", sessionID, "err", err)
			continue
		}
		ads = append(ads, ad)
	}
	return ads, nil
}

func (s *RedisStore) Find(ctx context.Context, sessionID, id string) (campaign.Ad, error) {
	ads, err := s.History(ctx, sessionID)
	if err != nil {
		return campaign.Ad{}, err
	}
	for _, ad := range ads {
		if ad.ID == id {
			return ad, nil
		}
	}
	return campaign.Ad{}, ErrNotFound
}

func (s *RedisStore) Current(ctx context.Context, sessionID string) (campaign.Ad, error) {
	id, err := s.rdb.Get(ctx, s.currentKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return campaign.Ad{}, ErrNotFound
	}
	if err != nil {
		return campaign.Ad{}, fmt.Errorf("read current: %w", err)
	}
	return s.Find(ctx, sessionID, id)
}

func (s *RedisStore) Select(ctx context.Context, sessionID, id string) (campaign.Ad, error) {
	ad, err := s.Find(ctx, sessionID, id)
	if err != nil {
		return campaign.Ad{}, err
	}
	if err := s.rdb.Set(ctx, s.currentKey(sessionID), ad.ID, s.sessionTTL).Err(); err != nil {
		return campaign.Ad{}, fmt.Errorf("set current: %w", err)
	}
	return ad, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.historyKey(sessionID), s.currentKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Acquire takes the busy key with SET NX. The key expires after the lock
// TTL so a crashed cycle cannot wedge the session forever.
func (s *RedisStore) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := s.busyKey(sessionID)
	token := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire busy guard: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, s.rdb, []string{key}, token).Err(); err != nil {
			s.logger.Warn("release busy guard failed", "session", sessionID, "err", err)
		}
	}, nil
}
