package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"goshortcode/cache/cacher"

	redigo "github.com/gomodule/redigo/redis"
)

const keyFormat = "mapping:%s"

func serialize(entry *cacher.Entry) (*bytes.Buffer, error) {
	var buffer bytes.Buffer
	err := gob.NewEncoder(&buffer).Encode(entry)
	return &buffer, err
}

func deserialize(valBytes []byte) (*cacher.Entry, error) {
	var entry cacher.Entry
	err := gob.NewDecoder(bytes.NewReader(valBytes)).Decode(&entry)
	return &entry, err
}

// Cache stores entries in redis so that several service instances share them.
type Cache struct {
	pool *redigo.Pool
}

func New(host string, port int) *Cache {
	pool := &redigo.Pool{
		MaxIdle:     16,
		IdleTimeout: 5 * time.Minute,
		DialContext: func(ctx context.Context) (redigo.Conn, error) {
			return redigo.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
		},

		// Periodic check
		TestOnBorrow: func(c redigo.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &Cache{pool}
}

func (r *Cache) Get(ctx context.Context, key string) (*cacher.Entry, bool, error) {
	data, err := redigo.Bytes(r.do(ctx, "GET", fmt.Sprintf(keyFormat, key)))
	if err == redigo.ErrNil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	entry, err := deserialize(data)
	if err != nil {
		return nil, false, fmt.Errorf("deserialize: %w", err)
	}
	return entry, true, nil
}

func (r *Cache) Set(ctx context.Context, key string, entry *cacher.Entry, expiration time.Duration) error {
	buffer, err := serialize(entry)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if _, err := r.do(ctx, "SET", fmt.Sprintf(keyFormat, key), buffer.Bytes(), "PX", millis(expiration)); err != nil {
		return fmt.Errorf("call SET: %w", err)
	}
	return nil
}

func (r *Cache) Add(ctx context.Context, key string, entry *cacher.Entry, expiration time.Duration) (bool, error) {
	buffer, err := serialize(entry)
	if err != nil {
		return false, fmt.Errorf("serialize: %w", err)
	}
	reply, err := redigo.String(r.do(ctx, "SET", fmt.Sprintf(keyFormat, key), buffer.Bytes(), "PX", millis(expiration), "NX"))
	if err == redigo.ErrNil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("call SET NX: %w", err)
	}
	return reply == "OK", nil
}

func (r *Cache) Delete(ctx context.Context, key string) error {
	if _, err := r.do(ctx, "DEL", fmt.Sprintf(keyFormat, key)); err != nil {
		return fmt.Errorf("call DEL: %w", err)
	}
	return nil
}

func (r *Cache) Ping(ctx context.Context) error {
	_, err := r.do(ctx, "PING")
	return err
}

func (r *Cache) Close() error {
	return r.pool.Close()
}

// millis converts expiration for PX, which rejects values below one.
func millis(expiration time.Duration) int64 {
	ms := expiration.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

func (r *Cache) do(ctx context.Context, commandName string, args ...interface{}) (interface{}, error) {
	c, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return redigo.DoContext(c, ctx, commandName, args...)
}
