package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	redis "github.com/redis/go-redis/v9"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type redisRegistry struct {
	client *redis.Client
	prefix string
	owned  bool
}

var _ Registry = (*redisRegistry)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Each session is stored as JSON under <prefix>:upload:<id>; the sorted
	// set <prefix>:uploads:created indexes the ids by creation time.
	redisSessionKey    = "upload"
	redisIndexKey      = "uploads:created"
	redisPingWait      = 5 * time.Second
	redisUpdateRetries = 16
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewRedis connects to the Redis server at url (redis://[user:pass@]host:port/db)
// and stores records under keys beginning with prefix.
func NewRedis(ctx context.Context, url, prefix string) (*redisRegistry, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// Check the connection
	pingctx, cancel := context.WithTimeout(ctx, redisPingWait)
	defer cancel()
	if err := client.Ping(pingctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("redis connect: %w", err), client.Close())
	}

	self := NewRedisWithClient(client, prefix)
	self.owned = true
	return self, nil
}

// NewRedisWithClient uses an existing client, which is not closed by Close.
func NewRedisWithClient(client *redis.Client, prefix string) *redisRegistry {
	if prefix == "" {
		prefix = schema.SchemaName
	}
	return &redisRegistry{client: client, prefix: prefix}
}

func (r *redisRegistry) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (r *redisRegistry) Create(ctx context.Context, session schema.UploadSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Store the record and index it in one transaction
	var created *redis.BoolCmd
	if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, r.sessionKey(session.Id), data, 0)
		pipe.ZAddNX(ctx, r.indexKey(), redis.Z{
			Score:  createdScore(session),
			Member: session.Id,
		})
		return nil
	}); err != nil {
		return err
	} else if !created.Val() {
		return fmt.Errorf("session %q already exists", session.Id)
	}
	return nil
}

func (r *redisRegistry) Get(ctx context.Context, id string) (*schema.UploadSession, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", schema.ErrSessionNotFound, id)
	} else if err != nil {
		return nil, err
	}
	var session schema.UploadSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session %q: %w", id, err)
	}
	return &session, nil
}

func (r *redisRegistry) Put(ctx context.Context, session schema.UploadSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if ok, err := r.client.SetXX(ctx, r.sessionKey(session.Id), data, redis.KeepTTL).Result(); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %q", schema.ErrSessionNotFound, session.Id)
	}
	return nil
}

// Update watches the record, so a write from another process between the
// read and the write fails the transaction and fn is applied again.
func (r *redisRegistry) Update(ctx context.Context, id string, fn func(*schema.UploadSession) error) (*schema.UploadSession, error) {
	key := r.sessionKey(id)
	var result *schema.UploadSession
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %q", schema.ErrSessionNotFound, id)
		} else if err != nil {
			return err
		}
		var session schema.UploadSession
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("session %q: %w", id, err)
		}
		if err := fn(&session); err != nil {
			return err
		}
		if data, err = json.Marshal(session); err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, data, redis.KeepTTL)
			return nil
		}); err != nil {
			return err
		}
		result = &session
		return nil
	}
	for range redisUpdateRetries {
		if err := r.client.Watch(ctx, txn, key); errors.Is(err, redis.TxFailedErr) {
			continue
		} else if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("session %q: %w after %d attempts", id, redis.TxFailedErr, redisUpdateRetries)
}

func (r *redisRegistry) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	return err
}

func (r *redisRegistry) List(ctx context.Context) ([]schema.UploadSession, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	} else if len(ids) == 0 {
		return []schema.UploadSession{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var stale []any
	result := make([]schema.UploadSession, 0, len(values))
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			// Index entry without a record
			stale = append(stale, ids[i])
			continue
		}
		var session schema.UploadSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("session %q: %w", ids[i], err)
		}
		result = append(result, session)
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return nil, err
		}
	}

	// The index orders by creation time; ties are broken by id
	sortSessions(result)
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (r *redisRegistry) sessionKey(id string) string {
	return r.prefix + ":" + redisSessionKey + ":" + id
}

func (r *redisRegistry) indexKey() string {
	return r.prefix + ":" + redisIndexKey
}

// createdScore is exact in a float64 for any date this century
func createdScore(session schema.UploadSession) float64 {
	return float64(session.CreatedAt.UnixMicro())
}
