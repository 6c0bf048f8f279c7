package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "catalog"

// updateIfExists rewrites the product hash only while the key is present.
var updateIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'name', ARGV[1], 'description', ARGV[2], 'brand', ARGV[3], 'price', ARGV[4])
return 1
`)

// RedisStore keeps one hash per product, an id set and an INCR sequence.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// OpenRedis parses a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	s := NewRedisStore(redis.NewClient(opts), defaultRedisPrefix)
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return s, nil
}

func (s *RedisStore) seqKey() string   { return s.prefix + ":products:seq" }
func (s *RedisStore) indexKey() string { return s.prefix + ":products" }
func (s *RedisStore) productKey(id int64) string {
	return s.prefix + ":product:" + strconv.FormatInt(id, 10)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.rdb.Ping(ctx).Err()
	})
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		members, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(members))
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return fmt.Errorf("bad id %q in index: %w", m, err)
			}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		cmds := make([]*redis.MapStringStringCmd, len(ids))
		if len(ids) > 0 {
			_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for i, id := range ids {
					cmds[i] = pipe.HGetAll(ctx, s.productKey(id))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		out = make([]Product, 0, len(ids))
		for i, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				// deleted between SMEMBERS and HGETALL
				continue
			}
			p, err := productFromHash(ids[i], fields)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var fields map[string]string

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		fields, err = s.rdb.HGetAll(ctx, s.productKey(id)).Result()
		return err
	})
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	if len(fields) == 0 {
		return Product{}, false, nil
	}

	p, err := productFromHash(id, fields)
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, true, nil
}

func (s *RedisStore) Add(ctx context.Context, p Product) (Product, error) {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		id, err := s.rdb.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return err
		}
		p.ID = id

		_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.productKey(id),
				"name", p.Name,
				"description", p.Description,
				"brand", p.Brand,
				"price", formatPrice(p.Price),
			)
			pipe.SAdd(ctx, s.indexKey(), id)
			return nil
		})
		return err
	})

	if err != nil {
		return Product{}, fmt.Errorf("add product: %w", err)
	}
	return p, nil
}

func (s *RedisStore) Update(ctx context.Context, p Product) error {
	var updated int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		updated, err = updateIfExists.Run(ctx, s.rdb,
			[]string{s.productKey(p.ID)},
			p.Name, p.Description, p.Brand, formatPrice(p.Price),
		).Int64()
		return err
	})

	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	var del *redis.IntCmd

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, s.productKey(id))
			pipe.SRem(ctx, s.indexKey(), id)
			return nil
		})
		return err
	})

	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		n, err = s.rdb.Exists(ctx, s.productKey(id)).Result()
		return err
	})

	if err != nil {
		return false, fmt.Errorf("exists product %d: %w", id, err)
	}
	return n == 1, nil
}

func productFromHash(id int64, fields map[string]string) (Product, error) {
	p := Product{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Brand:       fields["brand"],
	}

	if raw := fields["price"]; raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Product{}, fmt.Errorf("bad price %q: %w", raw, err)
		}
		p.Price = price
	}
	return p, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

