package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"codegate/internal/codebank"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// persistScript performs the conditional overwrite: the record and its
// revision counter move together, or not at all. Returns -1 when the expected
// revision no longer matches.
var persistScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '0' end
if cur ~= ARGV[2] then return -1 end
local next = tonumber(cur) + 1
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], tostring(next))
return next
`)

// RedisStore keeps the codebank record in a Redis string key, with a
// companion revision counter updated atomically via a Lua script.
type RedisStore struct {
	client *redis.Client
	key    string
	revKey string
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed record store keyed by key.
func NewRedisStore(client *redis.Client, key string, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		revKey: key + ":rev",
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load reads the record and its revision in one round trip.
func (s *RedisStore) Load(ctx context.Context) (*codebank.Codebank, Revision, error) {
	vals, err := s.client.MGet(ctx, s.key, s.revKey).Result()
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("failed to read codebank from redis")
		return nil, "", fmt.Errorf("failed to read codebank (key=%s): %w", s.key, err)
	}

	raw, ok := vals[0].(string)
	if !ok {
		s.logger.Info().Str("key", s.key).Msg("no codebank record found, starting with an empty bank")
		return codebank.New(), "", nil
	}

	bank, err := decodeBank([]byte(raw))
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("stored codebank is unparsable")
		return nil, "", err
	}

	rev := Revision("0")
	if r, ok := vals[1].(string); ok {
		rev = Revision(r)
	}
	return bank, rev, nil
}

// Persist overwrites the record if its revision counter still matches rev.
func (s *RedisStore) Persist(ctx context.Context, bank *codebank.Codebank, rev Revision) (Revision, error) {
	data, err := json.Marshal(bank)
	if err != nil {
		return "", fmt.Errorf("failed to encode codebank: %w", err)
	}

	expected := string(rev)
	if expected == "" {
		expected = "0"
	}

	res, err := persistScript.Run(ctx, s.client, []string{s.key, s.revKey}, string(data), expected).Int64()
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("failed to write codebank to redis")
		return "", fmt.Errorf("failed to write codebank (key=%s): %w", s.key, err)
	}
	if res < 0 {
		s.logger.Warn().
			Str("key", s.key).
			Str("revision", string(rev)).
			Msg("conditional write lost to a concurrent update")
		return "", ErrRevisionConflict
	}

	return Revision(strconv.FormatInt(res, 10)), nil
}
