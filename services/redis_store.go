package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bump_server/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pendingHashKey   = "exchange:pending:v1"
	matchKeyPrefix   = "exchange:match:v1:"
	sessionKeyPrefix = "exchange:session:v1:"
)

func matchKey(token string) string       { return matchKeyPrefix + token }
func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

// storeAndMatchScript is the single-round-trip atomic primitive. All live
// pendings sit in one hash; the script purges expired entries as it scans,
// picks the earliest compatible candidate (ties by lowest session id), and
// either consumes it or parks the caller — one indivisible step, so two
// near-simultaneous hits can never both observe "no match".
var storeAndMatchScript = redis.NewScript(`
local key = KEYS[1]
local raw = ARGV[1]
local sessionId = ARGV[2]
local userId = ARGV[3]
local ts = tonumber(ARGV[4])
local window = tonumber(ARGV[5])
local now = tonumber(ARGV[6])
local city = ARGV[7]
local region = ARGV[8]
local block = ARGV[9]
local unknown = ARGV[10] == '1'
local ttl = tonumber(ARGV[11])

local entries = redis.call('HGETALL', key)
local best = nil
local bestRaw = nil
for i = 1, #entries, 2 do
  local field = entries[i]
  local candRaw = entries[i + 1]
  local p = cjson.decode(candRaw)
  if (tonumber(p.expiresAt) or 0) <= now then
    redis.call('HDEL', key, field)
  elseif p.userId ~= userId then
    local delta = ts - (tonumber(p.serverTimestamp) or 0)
    if delta < 0 then delta = -delta end
    if delta <= window then
      local loc = p.location or {}
      local ok = unknown or loc.unknown == true
      if not ok and city ~= '' and loc.city == city and (loc.region or '') == region then
        ok = true
      end
      if not ok and block ~= '' and loc.networkBlock == block then
        ok = true
      end
      if ok then
        local pts = tonumber(p.serverTimestamp) or 0
        if best == nil
          or pts < (tonumber(best.serverTimestamp) or 0)
          or (pts == (tonumber(best.serverTimestamp) or 0) and p.sessionId < best.sessionId) then
          best = p
          bestRaw = candRaw
        end
      end
    end
  end
end

if best ~= nil then
  redis.call('HDEL', key, best.sessionId)
  redis.call('HDEL', key, sessionId)
  return bestRaw
end

redis.call('HSET', key, sessionId, raw)
redis.call('EXPIRE', key, ttl)
return false
`)

var deletePendingForUserScript = redis.NewScript(`
local entries = redis.call('HGETALL', KEYS[1])
local removed = 0
for i = 1, #entries, 2 do
  local p = cjson.decode(entries[i + 1])
  if p.userId == ARGV[1] then
    redis.call('HDEL', KEYS[1], entries[i])
    removed = removed + 1
  end
end
return removed
`)

// Compare-and-set for the QR completion path: overwrite only while the
// stored record is still waiting.
var completeWaitingScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return -1
end
local m = cjson.decode(raw)
if m.status ~= 'waiting' then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[2]))
return 1
`)

// RedisExchangeStore backs the exchange flow with a shared Redis instance.
type RedisExchangeStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisExchangeStore builds the client once at startup and verifies the
// connection with a ping.
func NewRedisExchangeStore(addr, password string, db int, logger *zap.Logger) (*RedisExchangeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     50,
		MinIdleConns: 5,
		PoolTimeout:  4 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", addr))

	return &RedisExchangeStore{client: client, logger: logger}, nil
}

func (s *RedisExchangeStore) Close() error {
	return s.client.Close()
}

func (s *RedisExchangeStore) StoreAndMatch(ctx context.Context, pending *models.PendingExchange, criteria MatchCriteria) (*models.PendingExchange, error) {
	raw, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal pending: %w", err)
	}

	unknown := "0"
	if pending.Location.Unknown {
		unknown = "1"
	}
	ttlSeconds := int(criteria.PendingTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := storeAndMatchScript.Run(ctx, s.client, []string{pendingHashKey},
		raw,
		pending.SessionID,
		pending.UserID,
		pending.ServerTimestamp,
		criteria.Window.Milliseconds(),
		pending.ServerTimestamp,
		pending.Location.City,
		pending.Location.Region,
		pending.Location.NetworkBlock,
		unknown,
		ttlSeconds,
	).Text()
	if err == redis.Nil {
		return nil, nil // stored, no counterpart
	}
	if err != nil {
		// Fail closed: never fall back to a check-then-insert sequence.
		return nil, fmt.Errorf("%w: store and match script: %v", models.ErrStoreUnavailable, err)
	}

	var counterpart models.PendingExchange
	if err := json.Unmarshal([]byte(result), &counterpart); err != nil {
		return nil, fmt.Errorf("unmarshal counterpart: %w", err)
	}
	return &counterpart, nil
}

func (s *RedisExchangeStore) DeletePendingForUser(ctx context.Context, userID string) error {
	err := deletePendingForUserScript.Run(ctx, s.client, []string{pendingHashKey}, userID).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("delete pending for user: %w", err)
	}
	return nil
}

func (s *RedisExchangeStore) PutMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error {
	raw, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	if err := s.client.Set(ctx, matchKey(match.Token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: put match: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisExchangeStore) GetMatch(ctx context.Context, token string) (*models.ExchangeMatch, error) {
	raw, err := s.client.Get(ctx, matchKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get match: %v", models.ErrStoreUnavailable, err)
	}
	var match models.ExchangeMatch
	if err := json.Unmarshal(raw, &match); err != nil {
		return nil, fmt.Errorf("unmarshal match: %w", err)
	}
	return &match, nil
}

func (s *RedisExchangeStore) CompleteWaitingMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error {
	raw, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	ttlSeconds := int(ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	result, err := completeWaitingScript.Run(ctx, s.client, []string{matchKey(match.Token)}, raw, ttlSeconds).Int()
	if err != nil {
		return fmt.Errorf("%w: complete waiting match: %v", models.ErrStoreUnavailable, err)
	}
	switch result {
	case -1:
		return models.ErrNotFound
	case 0:
		return models.ErrAlreadyScanned
	}
	return nil
}

func (s *RedisExchangeStore) RefreshMatchTTL(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, matchKey(token), ttl).Err(); err != nil {
		return fmt.Errorf("refresh match ttl: %w", err)
	}
	return nil
}

func (s *RedisExchangeStore) PutSessionIndex(ctx context.Context, sessionID string, idx *models.SessionIndex, ttl time.Duration) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal session index: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: put session index: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisExchangeStore) GetSessionIndex(ctx context.Context, sessionID string) (*models.SessionIndex, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session index: %v", models.ErrStoreUnavailable, err)
	}
	var idx models.SessionIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal session index: %w", err)
	}
	return &idx, nil
}
