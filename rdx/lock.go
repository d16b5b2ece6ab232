package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks.
type Locker struct {
	client *Client
	token  func() string
}

func NewLocker(c *Client, token func() string) *Locker {
	return &Locker{client: c, token: token}
}

// Acquire returns ok=false when someone else holds name.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := l.client.Key("lock", name)
	owner := l.token()
	ok, err = l.client.RdxSetNX(ctx, key, owner, ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client.Conn, []string{key}, owner).Err()
	}, true, nil
}
