package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Chrizpy/royalletters-sub000/internal/netsync"
)

// Reconnector redials a lost host connection with exponential backoff.
// Retries are bounded: once MaxAttempts dials have failed, Connect
// returns an error wrapping netsync.ErrConnectionFailed and the caller
// should mark the guest terminally failed.
type Reconnector struct {
	// Dial opens one connection attempt.
	Dial func(ctx context.Context) (netsync.Conn, error)

	InitialDelay time.Duration // default 500ms
	MaxDelay     time.Duration // backoff cap, default 10s
	MaxAttempts  uint64        // default 6

	Log *logrus.Entry
}

// Connect dials until a connection is established, the attempt budget
// runs out, or ctx is canceled.
func (r *Reconnector) Connect(ctx context.Context) (netsync.Conn, error) {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	attempts := r.MaxAttempts
	if attempts == 0 {
		attempts = 6
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = maxDelay
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	var conn netsync.Conn
	attempt := 0
	op := func() error {
		attempt++
		c, err := r.Dial(ctx)
		if err != nil {
			if r.Log != nil {
				r.Log.WithError(err).WithField("attempt", attempt).Warn("dial failed")
			}
			return err
		}
		conn = c
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", netsync.ErrConnectionFailed, err)
	}
	return conn, nil
}
