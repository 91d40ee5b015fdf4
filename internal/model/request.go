package model

import "time"

// ItemRequest は一覧にない物品を求めるユーザーの公開リクエストを表す。
type ItemRequest struct {
	ID          int64
	Description string
	RequesterID int64
	Created     time.Time
}

// RequestItem はリクエストに応えて登録された物品の射影。
type RequestItem struct {
	ItemID  int64
	Name    string
	OwnerID int64
}

// ItemRequestWithItems はリクエストに応えた物品一覧を付与したモデル。
// 応えた物品がない場合、Itemsは空スライスとなる。
type ItemRequestWithItems struct {
	ItemRequest
	Items []RequestItem
}
