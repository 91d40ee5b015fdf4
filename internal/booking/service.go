// Package booking は物品予約の作成・承認・照会のドメインロジックを提供する。
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/shareit/internal/event"
	"github.com/hitoshi/shareit/internal/lookup"
	"github.com/hitoshi/shareit/internal/metrics"
	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/repository"
)

// Service は予約のサービス層。
// 予約の状態遷移は単一のUPDATEで行い、同時承認は後勝ちとなる。
type Service struct {
	bookings  repository.BookingRepository
	lookup    lookup.Lookup
	publisher event.Publisher
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher は予約イベントの配信先を設定する。未設定の場合イベントは破棄される。
func WithPublisher(p event.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics はイベント送信結果の記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	bookings repository.BookingRepository,
	users repository.UserRepository,
	items repository.ItemRepository,
	opts ...Option,
) *Service {
	s := &Service{
		bookings:  bookings,
		lookup:    lookup.Lookup{Users: users, Items: items, Bookings: bookings},
		publisher: event.NopPublisher{},
		metrics:   metrics.NopCollector{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create は予約を作成する。
// 検査順序: 物品の存在 → ユーザーの存在 → 物品の予約可否 → 日時の前後関係。
// 予約期間の重複は検査しない。
func (s *Service) Create(ctx context.Context, userID int64, in model.NewBooking) (*model.BookingDetail, error) {
	item, err := s.lookup.Item(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	user, err := s.lookup.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, model.NewItemNotAvailableError(item.ID)
	}
	if in.End.Before(in.Start) {
		return nil, model.NewInvalidDatesError()
	}

	b := model.Booking{
		Start:    in.Start,
		End:      in.End,
		ItemID:   item.ID,
		BookerID: user.ID,
		Status:   model.BookingStatusWaiting,
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return nil, fmt.Errorf("予約の登録に失敗しました: %w", err)
	}

	detail := &model.BookingDetail{
		Booking:     b,
		ItemName:    item.Name,
		ItemOwnerID: item.OwnerID,
		BookerName:  user.Name,
	}
	s.publish(ctx, event.TypeBookingCreated, *detail)
	return detail, nil
}

// Approve は物品の所有者として予約を承認または却下する。
// approvedがnilの場合は状態を変更せずに現在の予約を返す。
// APPROVED/REJECTEDは終端状態ではなく、再度の変更を受け付ける。
func (s *Service) Approve(ctx context.Context, userID, bookingID int64, approved *bool) (*model.BookingDetail, error) {
	b, err := s.lookup.Booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ItemOwnerID != userID {
		return nil, model.NewBookingAccessDeniedError()
	}
	if approved == nil {
		return b, nil
	}

	status := model.BookingStatusRejected
	if *approved {
		status = model.BookingStatusApproved
	}
	if err := s.bookings.UpdateStatus(ctx, b.ID, status); err != nil {
		return nil, fmt.Errorf("予約状態の更新に失敗しました: %w", err)
	}
	b.Status = status

	s.publish(ctx, event.TypeForStatus(status), *b)
	return b, nil
}

// Get は予約者または物品の所有者に予約を返す。
func (s *Service) Get(ctx context.Context, userID, bookingID int64) (*model.BookingDetail, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}
	b, err := s.lookup.Booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BookerID != userID && b.ItemOwnerID != userID {
		return nil, model.NewBookingAccessDeniedError()
	}
	return b, nil
}

// ListByBooker はユーザーが行った予約をstart降順で返す。
// stateは空文字列の場合ALLとして扱い、ユーザーの存在確認より先に検証する。
func (s *Service) ListByBooker(ctx context.Context, userID int64, state string) ([]model.BookingDetail, error) {
	return s.list(ctx, userID, state, s.bookings.ListByBooker)
}

// ListByOwner はユーザーが所有する物品への予約をstart降順で返す。
func (s *Service) ListByOwner(ctx context.Context, userID int64, state string) ([]model.BookingDetail, error) {
	return s.list(ctx, userID, state, s.bookings.ListByOwner)
}

type listFunc func(ctx context.Context, userID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error)

func (s *Service) list(ctx context.Context, userID int64, rawState string, fetch listFunc) ([]model.BookingDetail, error) {
	state, err := model.ParseBookingState(rawState)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}

	bookings, err := fetch(ctx, userID, state, s.now())
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	if bookings == nil {
		bookings = []model.BookingDetail{}
	}
	return bookings, nil
}

// publish は予約イベントを配信する。
// 予約はすでに確定しているため、配信の失敗はログとメトリクスに残すのみで呼び出し元には返さない。
func (s *Service) publish(ctx context.Context, typ event.Type, b model.BookingDetail) {
	e := event.NewBookingEvent(typ, b, s.now())
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.RecordEventPublishFailure(string(typ))
		s.logger.Warn("予約イベントの送信に失敗しました",
			slog.String("type", string(typ)),
			slog.Int64("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.RecordEventPublished(string(typ))
}
