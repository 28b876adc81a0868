package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/pec_go_server/config"
)

const (
	defaultStatePrefix = "pec:oauth:state:"
	defaultStateTTL    = 10 * time.Minute
)

var (
	ErrStateMissing = errors.New("缺少 state 参数")
	ErrStateInvalid = errors.New("state 无效或已过期")
)

// Pending 发起授权时记录的信息，回调时取回
type Pending struct {
	Provider    string    `json:"provider"`
	RedirectURI string    `json:"redirect_uri"`
	IssuedAt    time.Time `json:"issued_at"`
}

// StateStore 授权 state 存在 Redis 中，只能使用一次
type StateStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStateStore(rdb *redis.Client, cfg *config.OAuthConfig) *StateStore {
	store := &StateStore{rdb: rdb, prefix: defaultStatePrefix, ttl: defaultStateTTL}
	if cfg != nil {
		if cfg.StatePrefix != "" {
			store.prefix = cfg.StatePrefix
		}
		if cfg.StateTTL > 0 {
			store.ttl = cfg.StateTTL
		}
	}
	return store
}

// Key state 对应的 Redis key
func (s *StateStore) Key(state string) string {
	return s.prefix + state
}

// Issue 生成随机 state 并保存授权完成后的跳转地址
func (s *StateStore) Issue(ctx context.Context, provider, redirectURI string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	state := hex.EncodeToString(buf)

	payload, err := json.Marshal(&Pending{
		Provider:    provider,
		RedirectURI: redirectURI,
		IssuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.Key(state), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

// Consume 取出并删除 state，provider 不一致时视为无效
func (s *StateStore) Consume(ctx context.Context, provider, state string) (*Pending, error) {
	if state == "" {
		return nil, ErrStateMissing
	}

	raw, err := s.rdb.GetDel(ctx, s.Key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}

	var pending Pending
	if err := json.Unmarshal(raw, &pending); err != nil || pending.Provider != provider {
		return nil, ErrStateInvalid
	}
	return &pending, nil
}
