// Package lookup はIDからエンティティを取得し、存在しない場合に
// 種別ごとのNotFoundエラーへ変換する共通処理を提供する。
package lookup

import (
	"context"

	"github.com/hitoshi/shareit/internal/model"
)

// UserFinder はIDでユーザーを取得する。見つからない場合はnilを返す。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// ItemFinder はIDで物品を取得する。見つからない場合はnilを返す。
type ItemFinder interface {
	FindByID(ctx context.Context, id int64) (*model.Item, error)
}

// BookingFinder はIDで予約を取得する。見つからない場合はnilを返す。
type BookingFinder interface {
	FindByID(ctx context.Context, id int64) (*model.BookingDetail, error)
}

// RequestFinder はIDでリクエストを取得する。見つからない場合はnilを返す。
type RequestFinder interface {
	FindByID(ctx context.Context, id int64) (*model.ItemRequest, error)
}

// Lookup は各リポジトリの取得結果を存在必須のエンティティとして返す。
// 不要なFinderはnilのままでよいが、その種別の取得メソッドは呼び出さないこと。
type Lookup struct {
	Users    UserFinder
	Items    ItemFinder
	Bookings BookingFinder
	Requests RequestFinder
}

// User は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (l Lookup) User(ctx context.Context, id int64) (*model.User, error) {
	v, err := l.Users.FindByID(ctx, id)
	return found(v, err, func() error { return model.NewUserNotFoundError(id) })
}

// Item は指定IDの物品を返す。存在しない場合はITEM_NOT_FOUNDエラーを返す。
func (l Lookup) Item(ctx context.Context, id int64) (*model.Item, error) {
	v, err := l.Items.FindByID(ctx, id)
	return found(v, err, func() error { return model.NewItemNotFoundError(id) })
}

// Booking は指定IDの予約を返す。存在しない場合はBOOKING_NOT_FOUNDエラーを返す。
func (l Lookup) Booking(ctx context.Context, id int64) (*model.BookingDetail, error) {
	v, err := l.Bookings.FindByID(ctx, id)
	return found(v, err, func() error { return model.NewBookingNotFoundError(id) })
}

// Request は指定IDのリクエストを返す。存在しない場合はREQUEST_NOT_FOUNDエラーを返す。
func (l Lookup) Request(ctx context.Context, id int64) (*model.ItemRequest, error) {
	v, err := l.Requests.FindByID(ctx, id)
	return found(v, err, func() error { return model.NewRequestNotFoundError(id) })
}

// found はFindByIDの結果を検査し、未検出の場合はnotFoundが生成するエラーを返す。
func found[T any](v *T, err error, notFound func() error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, notFound()
	}
	return v, nil
}
