package janus

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReconnectWithBackoff retries Reconnect until it succeeds, the
// policy gives up or ctx is cancelled. A nil policy selects an
// exponential backoff capped at two minutes total.
//
// Gateway rejections are not retried: the gateway answered, so
// repeating the same claim cannot change the outcome. Transport
// errors, such as the gateway not being reachable yet, are.
func ReconnectWithBackoff(ctx context.Context, conn *Connection, policy backoff.BackOff) error {
	if policy == nil {
		policy = defaultBackoff()
	}

	op := func() error {
		err := conn.Reconnect(ctx)
		if err == nil {
			return nil
		}
		var ge *GatewayError
		if errors.As(err, &ge) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}
