// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/shareit/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザー情報を上書き更新する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有する物品・予約・リクエスト・コメントはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// ItemRepository は物品データの永続化インターフェース。
type ItemRepository interface {
	// FindByID は指定IDの物品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Item, error)

	// ListByOwner は所有者の物品一覧をID昇順で返す。
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error)

	// ListByRequestIDs は指定リクエストのいずれかに応えた物品一覧を返す。
	ListByRequestIDs(ctx context.Context, requestIDs []int64) ([]model.Item, error)

	// Search は名前または説明に部分一致（大文字小文字を区別しない）する予約可能な物品を返す。
	Search(ctx context.Context, text string) ([]model.Item, error)

	// Create は物品を作成し、採番されたIDをitem.IDに設定する。
	Create(ctx context.Context, item *model.Item) error

	// Update は物品の名前・説明・予約可否を上書き更新する。
	Update(ctx context.Context, item *model.Item) error

	// DeleteByID は指定IDの物品を削除する。
	DeleteByID(ctx context.Context, id int64) error
}

// BookingRepository は予約データの永続化インターフェース。
type BookingRepository interface {
	// FindByID は指定IDの予約を物品・予約者情報付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.BookingDetail, error)

	// Create は予約を作成し、採番されたIDをbooking.IDに設定する。
	Create(ctx context.Context, booking *model.Booking) error

	// UpdateStatus は予約の承認状態を更新する。
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error

	// ListByBooker は予約者の予約一覧を絞り込み条件付きでstart降順に返す。
	ListByBooker(ctx context.Context, bookerID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error)

	// ListByOwner は物品所有者が受けた予約一覧を絞り込み条件付きでstart降順に返す。
	ListByOwner(ctx context.Context, ownerID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error)

	// BookingDateReader の操作も提供する。
	BookingDateReader
}

// BookingDateReader は物品一覧の付加情報とコメント可否判定に必要な予約照会のインターフェース。
type BookingDateReader interface {
	// ListLastApproved は各物品について end < now の承認済み予約のうち最も新しいものを返す。
	ListLastApproved(ctx context.Context, itemIDs []int64, now time.Time) ([]model.Booking, error)

	// ListNextApproved は各物品について start > now の承認済み予約のうち最も近いものを返す。
	ListNextApproved(ctx context.Context, itemIDs []int64, now time.Time) ([]model.Booking, error)

	// ExistsCompleted は予約者が物品を承認済みで借り、end < now となった予約が存在するかを返す。
	ExistsCompleted(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error)
}

// RequestRepository は物品リクエストの永続化インターフェース。
type RequestRepository interface {
	// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.ItemRequest, error)

	// Create はリクエストを作成し、採番されたIDをrequest.IDに設定する。
	Create(ctx context.Context, request *model.ItemRequest) error

	// ListByRequester は指定ユーザーのリクエスト一覧をcreated降順で返す。
	ListByRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error)

	// ListExcludingRequester は指定ユーザー以外のリクエスト一覧をcreated降順で返す。
	ListExcludingRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error)
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成し、採番されたIDをcomment.IDに設定する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByItemIDs は指定物品のコメント一覧を投稿者名付きでcreated昇順に返す。
	ListByItemIDs(ctx context.Context, itemIDs []int64) ([]model.Comment, error)
}
