// Package model はドメインモデルを定義する。
package model

// Item は所有者が貸し出し可能として登録した物品を表す。
type Item struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Available   bool   // falseの場合は新規予約を受け付けない
	RequestID   *int64 // 応えたItemRequestへの参照（任意）
}

// NewItem は物品登録の入力。
type NewItem struct {
	Name        string
	Description string
	Available   bool
	RequestID   *int64
}

// ItemPatch は物品の部分更新を表す。
// nilフィールドは変更しない。
type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

// Apply はnilでないフィールドのみを物品に上書きする。
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
}

// ItemWithDates は物品に直近・次回の承認済み予約とコメントを付与したモデル。
// 一覧取得ではLastBooking/NextBookingを、単体取得ではコメントのみを付与する。
type ItemWithDates struct {
	Item
	LastBooking *Booking
	NextBooking *Booking
	Comments    []Comment
}
