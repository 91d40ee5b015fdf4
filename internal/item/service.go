// Package item は物品の登録・更新・検索とコメント投稿のドメインロジックを提供する。
package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/shareit/internal/lookup"
	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/repository"
	"github.com/hitoshi/shareit/internal/security"
)

// Service は物品管理のサービス層。
type Service struct {
	items     repository.ItemRepository
	dates     repository.BookingDateReader
	comments  repository.CommentRepository
	lookup    lookup.Lookup
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	items repository.ItemRepository,
	users repository.UserRepository,
	requests repository.RequestRepository,
	dates repository.BookingDateReader,
	comments repository.CommentRepository,
	sanitizer security.TextSanitizer,
	opts ...Option,
) *Service {
	s := &Service{
		items:     items,
		dates:     dates,
		comments:  comments,
		lookup:    lookup.Lookup{Users: users, Items: items, Requests: requests},
		sanitizer: sanitizer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListByOwner は所有する物品の一覧を返す。
// 各物品には直近に終了した承認済み予約、次に始まる承認済み予約、コメント一覧を付与する。
func (s *Service) ListByOwner(ctx context.Context, userID int64) ([]model.ItemWithDates, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}

	items, err := s.items.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("物品一覧の取得に失敗しました: %w", err)
	}
	if len(items) == 0 {
		return []model.ItemWithDates{}, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	now := s.now()
	last, err := s.dates.ListLastApproved(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("直近の予約の取得に失敗しました: %w", err)
	}
	next, err := s.dates.ListNextApproved(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("次回の予約の取得に失敗しました: %w", err)
	}
	comments, err := s.comments.ListByItemIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}

	lastByItem := indexBookings(last)
	nextByItem := indexBookings(next)
	commentsByItem := groupComments(comments)

	result := make([]model.ItemWithDates, len(items))
	for i, it := range items {
		result[i] = model.ItemWithDates{
			Item:        it,
			LastBooking: lastByItem[it.ID],
			NextBooking: nextByItem[it.ID],
			Comments:    commentsOrEmpty(commentsByItem[it.ID]),
		}
	}
	return result, nil
}

// Get は物品をコメント付きで返す。予約情報は付与しない。
func (s *Service) Get(ctx context.Context, itemID int64) (*model.ItemWithDates, error) {
	it, err := s.lookup.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByItemIDs(ctx, []int64{it.ID})
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}

	return &model.ItemWithDates{Item: *it, Comments: commentsOrEmpty(comments)}, nil
}

// Create は物品を登録する。requestIDが指定された場合はそのリクエストに紐付ける。
func (s *Service) Create(ctx context.Context, userID int64, in model.NewItem) (*model.Item, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}
	if in.RequestID != nil {
		if _, err := s.lookup.Request(ctx, *in.RequestID); err != nil {
			return nil, err
		}
	}

	it := &model.Item{
		OwnerID:     userID,
		Name:        in.Name,
		Description: in.Description,
		Available:   in.Available,
		RequestID:   in.RequestID,
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("物品の登録に失敗しました: %w", err)
	}
	return it, nil
}

// Update は所有者として物品を部分更新する。
// 所有者以外による更新は権限エラーではなくNOT_ITEM_OWNERのバリデーションエラーとなる。
func (s *Service) Update(ctx context.Context, userID, itemID int64, patch model.ItemPatch) (*model.Item, error) {
	it, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	patch.Apply(it)
	if err := s.items.Update(ctx, it); err != nil {
		return nil, fmt.Errorf("物品の更新に失敗しました: %w", err)
	}
	return it, nil
}

// Delete は所有者として物品を削除する。検査はUpdateと同じ。
func (s *Service) Delete(ctx context.Context, userID, itemID int64) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.items.DeleteByID(ctx, itemID); err != nil {
		return fmt.Errorf("物品の削除に失敗しました: %w", err)
	}
	return nil
}

// ownedItem はIDの指定、物品とユーザーの存在、所有者の一致を順に検査する。
func (s *Service) ownedItem(ctx context.Context, userID, itemID int64) (*model.Item, error) {
	if userID <= 0 {
		return nil, model.NewMissingIDError("ユーザーID")
	}
	if itemID <= 0 {
		return nil, model.NewMissingIDError("物品ID")
	}

	it, err := s.lookup.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}
	if it.OwnerID != userID {
		return nil, model.NewNotItemOwnerError(itemID)
	}
	return it, nil
}

// Search は名前または説明にtextを含む予約可能な物品を返す。
// 空白のみのtextではストレージに問い合わせず空の一覧を返す。
func (s *Service) Search(ctx context.Context, text string) ([]model.Item, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Item{}, nil
	}

	items, err := s.items.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("物品の検索に失敗しました: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// CreateComment は物品にコメントを投稿する。
// 投稿者がその物品を承認済みで借り、期間が終了している場合のみ許可する。
func (s *Service) CreateComment(ctx context.Context, userID, itemID int64, text string) (*model.Comment, error) {
	clean := s.sanitizer.Sanitize(text)
	if clean == "" {
		return nil, model.NewValidationError("コメント本文が空です")
	}

	author, err := s.lookup.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookup.Item(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.now()
	completed, err := s.dates.ExistsCompleted(ctx, itemID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("完了済み予約の確認に失敗しました: %w", err)
	}
	if !completed {
		return nil, model.NewNoCompletedBookingError(itemID)
	}

	c := &model.Comment{
		Text:       clean,
		ItemID:     itemID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Created:    now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの登録に失敗しました: %w", err)
	}
	return c, nil
}

func indexBookings(bookings []model.Booking) map[int64]*model.Booking {
	m := make(map[int64]*model.Booking, len(bookings))
	for i := range bookings {
		m[bookings[i].ItemID] = &bookings[i]
	}
	return m
}

func groupComments(comments []model.Comment) map[int64][]model.Comment {
	m := make(map[int64][]model.Comment)
	for _, c := range comments {
		m[c.ItemID] = append(m[c.ItemID], c)
	}
	return m
}

func commentsOrEmpty(comments []model.Comment) []model.Comment {
	if comments == nil {
		return []model.Comment{}
	}
	return comments
}
