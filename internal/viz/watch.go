package viz

import (
	"context"
	"time"
)

// Watch polls the given files every interval and calls rebuild whenever their
// combined contents change, until ctx is done. rebuild is also called once
// at the start of watching unless the files are unchanged from lastKey.
// Errors from hashing are passed to onError and the poll is retried on the
// next tick.
func Watch(ctx context.Context, paths []string, interval time.Duration, lastKey string, rebuild func(key string) error, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		key, err := Key(paths)
		switch {
		case err != nil:
			onError(err)
		case key != lastKey:
			if err := rebuild(key); err != nil {
				onError(err)
			} else {
				lastKey = key
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
