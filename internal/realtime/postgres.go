package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"babytrack-go/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const DefaultChannel = "babytrack_changes"

// PGListener receives change notifications over LISTEN on a dedicated
// connection. A dropped connection is re-established with backoff; changes
// committed while disconnected are not replayed.
type PGListener struct {
	dsn     string
	channel string
	log     logger.Logger
	now     func() time.Time
}

func NewPGListener(dsn, channel string, log logger.Logger) *PGListener {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGListener{
		dsn:     dsn,
		channel: channel,
		log:     log.With("component", "realtime", "source", "postgres"),
		now:     time.Now,
	}
}

func (l *PGListener) Run(ctx context.Context, sink func(Change)) error {
	var backoff time.Duration
	for {
		err := l.listen(ctx, sink, func() { backoff = 0 })
		if ctx.Err() != nil {
			return nil
		}

		backoff = nextBackoff(backoff)
		l.log.Warn("realtime.listen: connection lost, reconnecting", "error", err, "backoff", backoff)
		if !sleep(ctx, backoff) {
			return nil
		}
	}
}

func (l *PGListener) listen(ctx context.Context, sink func(Change), connected func()) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	connected()
	l.log.Info("realtime.listen: listening", "channel", l.channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("wait: %w", err)
		}

		change, err := ParseChange([]byte(notification.Payload), l.now())
		if err != nil {
			l.log.Warn("realtime.listen: skipping notification", "error", err)
			continue
		}
		sink(change)
	}
}
