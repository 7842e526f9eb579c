// Package redis provides a backend that keeps files in Redis.
//
// It suits small, short-lived uploads such as previews or files waiting for
// processing, where Config.TTL lets Redis expire them. Payloads are capped by
// Config.MaxSize since Redis keeps everything in memory.
//
// # Connecting
//
// Open wraps [github.com/redis/go-redis/v9] with pooling defaults and a
// startup retry loop:
//
//	client, err := redis.Open(ctx, os.Getenv("REDIS_URL"),
//		redis.WithPoolSize(20),
//		redis.WithRetry(5, time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	backend, err := redis.New(client, redis.Config{TTL: time.Hour})
//
// An existing client (cluster or sentinel included) can be passed to New
// directly.
//
// # Layout
//
// A file at "tmp/a.png" is the hash "filestorage:tmp/a.png" with the fields
// data, type, size and mtime. Load reads the payload back.
package redis
