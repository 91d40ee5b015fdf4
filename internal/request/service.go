// Package request は物品リクエストの投稿と照会のドメインロジックを提供する。
package request

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/shareit/internal/lookup"
	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/repository"
	"github.com/hitoshi/shareit/internal/security"
)

// ItemsByRequest はリクエストに応えた物品を取得する。
type ItemsByRequest interface {
	ListByRequestIDs(ctx context.Context, requestIDs []int64) ([]model.Item, error)
}

// Service は物品リクエストのサービス層。
type Service struct {
	requests  repository.RequestRepository
	items     ItemsByRequest
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
	requests repository.RequestRepository,
	users repository.UserRepository,
	items ItemsByRequest,
	sanitizer security.TextSanitizer,
	opts ...Option,
) *Service {
	s := &Service{
		requests:  requests,
		items:     items,
		lookup:    lookup.Lookup{Users: users, Requests: requests},
		sanitizer: sanitizer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create はリクエストを投稿する。説明文はプレーンテキストにサニタイズして保存する。
func (s *Service) Create(ctx context.Context, userID int64, description string) (*model.ItemRequest, error) {
	clean := s.sanitizer.Sanitize(description)
	if clean == "" {
		return nil, model.NewValidationError("リクエストの説明が空です")
	}
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}

	req := &model.ItemRequest{
		Description: clean,
		RequesterID: userID,
		Created:     s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("リクエストの登録に失敗しました: %w", err)
	}
	return req, nil
}

// ListOwn は自分のリクエストを応えた物品付きでcreated降順に返す。
func (s *Service) ListOwn(ctx context.Context, userID int64) ([]model.ItemRequestWithItems, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}

	requests, err := s.requests.ListByRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	return s.withItems(ctx, requests)
}

// ListOthers は他のユーザーのリクエストをcreated降順に返す。
func (s *Service) ListOthers(ctx context.Context, userID int64) ([]model.ItemRequest, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}

	requests, err := s.requests.ListExcludingRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	if requests == nil {
		requests = []model.ItemRequest{}
	}
	return requests, nil
}

// Get はリクエストを応えた物品付きで返す。リクエストは全ユーザーに公開される。
func (s *Service) Get(ctx context.Context, userID, requestID int64) (*model.ItemRequestWithItems, error) {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return nil, err
	}
	req, err := s.lookup.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	result, err := s.withItems(ctx, []model.ItemRequest{*req})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

// withItems は各リクエストに応えた物品を付与する。物品がないリクエストには空の一覧を付与する。
func (s *Service) withItems(ctx context.Context, requests []model.ItemRequest) ([]model.ItemRequestWithItems, error) {
	result := make([]model.ItemRequestWithItems, len(requests))
	if len(requests) == 0 {
		return result, nil
	}

	ids := make([]int64, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	items, err := s.items.ListByRequestIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("リクエストに応えた物品の取得に失敗しました: %w", err)
	}

	byRequest := make(map[int64][]model.RequestItem)
	for _, it := range items {
		if it.RequestID == nil {
			continue
		}
		byRequest[*it.RequestID] = append(byRequest[*it.RequestID], model.RequestItem{
			ItemID:  it.ID,
			Name:    it.Name,
			OwnerID: it.OwnerID,
		})
	}

	for i, r := range requests {
		items := byRequest[r.ID]
		if items == nil {
			items = []model.RequestItem{}
		}
		result[i] = model.ItemRequestWithItems{ItemRequest: r, Items: items}
	}
	return result, nil
}
