// Package notify は予約イベントを購読し、通知を発行するワーカーを提供する。
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hitoshi/shareit/internal/event"
	"github.com/hitoshi/shareit/internal/mq"
)

// Recorder は通知ワーカーが記録するメトリクス。
type Recorder interface {
	RecordEventConsumed(eventType string)
	RecordEventMalformed()
}

// Connector はブローカーへ接続し、購読に使うBackendを返す。
type Connector func() (mq.Backend, error)

// Consumer は予約イベントキューを購読し、通知先ユーザーへの通知をログに出力する。
type Consumer struct {
	connect  Connector
	queue    string
	recorder Recorder
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewConsumer はConsumerを生成する。
func NewConsumer(connect Connector, queue string, recorder Recorder, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		connect:  connect,
		queue:    queue,
		recorder: recorder,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Handle は1件のメッセージを処理する。
// 不正なペイロードは再配送しても回復しないため、記録したうえでnilを返しackさせる。
func (c *Consumer) Handle(ctx context.Context, msg mq.Message) error {
	e, err := event.Decode(msg.Data)
	if err != nil {
		c.recorder.RecordEventMalformed()
		c.logger.WarnContext(ctx, "malformed booking event discarded",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "booking notification",
		slog.String("message_id", msg.ID),
		slog.String("type", string(e.Type)),
		slog.Int64("recipient_id", e.Recipient()),
		slog.Int64("booking_id", e.BookingID),
		slog.Int64("item_id", e.ItemID),
		slog.String("status", e.Status),
		slog.Time("start", e.Start),
		slog.Time("end", e.End),
	)
	c.recorder.RecordEventConsumed(string(e.Type))
	return nil
}

// Run はctxがキャンセルされるまでキューを購読し続ける。
// 接続や購読が失敗した場合は指数バックオフで再接続する。
// 1件でもメッセージを受け取れたセッションの後は連続失敗数を0に戻す。
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("notification worker started", slog.String("queue", c.queue))

	failures := 0
	for {
		delivered, err := c.subscribeOnce(ctx)
		if ctx.Err() != nil {
			c.logger.Info("notification worker stopped")
			return nil
		}
		if delivered {
			failures = 0
		}

		delay := CalculateBackoff(failures)
		failures++
		c.logger.Error("booking event subscription failed",
			slog.String("queue", c.queue),
			slog.Int("consecutive_failures", failures),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)
		if err := c.sleep(ctx, delay); err != nil {
			c.logger.Info("notification worker stopped")
			return nil
		}
	}
}

// subscribeOnce は1回の接続セッションを実行し、メッセージを受け取ったかどうかを返す。
func (c *Consumer) subscribeOnce(ctx context.Context) (bool, error) {
	backend, err := c.connect()
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			c.logger.Warn("failed to close broker connection", slog.String("error", cerr.Error()))
		}
	}()

	var delivered atomic.Bool
	err = backend.Subscribe(ctx, c.queue, func(ctx context.Context, msg mq.Message) error {
		delivered.Store(true)
		return c.Handle(ctx, msg)
	})
	if err == nil {
		err = errors.New("subscription ended unexpectedly")
	}
	return delivered.Load(), err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
