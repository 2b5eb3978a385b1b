// Package retry contains code to retry operations. We never retry
// inside the connection code: retrying with different security
// parameters is a decision that belongs to the caller.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ooni/sslprotocols/model"
)

const (
	initialMean = 0.5
	finalMean   = 8.0
	meanFactor  = 2.0
	stdevFactor = 0.05
)

// ErrNoAttempts indicates that Retry was called with zero attempts.
var ErrNoAttempts = errors.New("retry: no attempts")

// Retry runs op at most attempts times. It stops as soon as op
// succeeds, fails with an error for which retryable returns false,
// or the context expires. Between attempts we sleep for a randomized
// exponentially growing interval. On failure we return the last error.
func Retry(
	ctx context.Context, attempts int, op func() error, retryable func(error) bool,
) error {
	if attempts <= 0 {
		return ErrNoAttempts
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	mean := initialMean
	for i := 0; ; i++ {
		err := op()
		if err == nil || !retryable(err) || i+1 >= attempts {
			return err
		}
		stdev := stdevFactor * mean
		seconds := rng.NormFloat64()*stdev + mean
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		if mean < finalMean {
			mean *= meanFactor
		}
	}
}

// Transient returns whether err is a handshake timeout or a connect
// failure. A protocol mismatch is never transient.
func Transient(err error) bool {
	return errors.Is(err, model.ErrHandshakeTimeout) || errors.Is(err, model.ErrConnectFailed)
}
