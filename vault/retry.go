package vault

import (
	"context"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("vault")

// Retry runs op up to attempts times, waiting delay between tries. A try is
// repeated only when shouldRetry reports its error as transient; any other
// error is returned immediately. The error of the last try is returned when
// all attempts are exhausted.
//
// This retries whole store operations and so can treat a not-found response
// as transient, which transport-level retry must not do. A store read issued
// immediately after a write may see not-found until the remote catches up.
func Retry(ctx context.Context, attempts int, delay time.Duration, shouldRetry func(error) bool, op func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i != 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		log.Debugw("Transient failure, will retry", "err", err, "attempt", i+1, "attempts", attempts)
	}
	return err
}
