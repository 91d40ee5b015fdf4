package model

import "time"

// Comment は予約を完了した利用者が物品に残すコメントを表す。
type Comment struct {
	ID         int64
	Text       string
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Created    time.Time
}
