package model

import (
	"strings"
	"time"
)

// BookingStatus は予約の承認状態を表す。
// WAITING → APPROVED/REJECTED と遷移するが、APPROVED/REJECTEDは終端ではなく再度変更できる。
type BookingStatus string

const (
	// BookingStatusWaiting は所有者の承認待ち。
	BookingStatusWaiting BookingStatus = "WAITING"
	// BookingStatusApproved は所有者が承認済み。
	BookingStatusApproved BookingStatus = "APPROVED"
	// BookingStatusRejected は所有者が却下済み。
	BookingStatusRejected BookingStatus = "REJECTED"
)

// Booking は物品の期間付き予約を表す。
type Booking struct {
	ID       int64
	Start    time.Time
	End      time.Time
	ItemID   int64
	BookerID int64
	Status   BookingStatus
}

// BookingDetail は予約に物品名・物品所有者・予約者名を結合したモデル。
type BookingDetail struct {
	Booking
	ItemName    string
	ItemOwnerID int64
	BookerName  string
}

// NewBooking は予約作成の入力。
type NewBooking struct {
	ItemID int64
	Start  time.Time
	End    time.Time
}

// BookingState は予約一覧の絞り込み条件を表す。
// CURRENT/PAST/FUTUREは照会時点の現在時刻との比較で決まり、永続化されない。
// APPROVEDに対応する絞り込み値は存在しない。
type BookingState string

const (
	// BookingStateAll は全件。
	BookingStateAll BookingState = "ALL"
	// BookingStateCurrent は start <= now <= end の予約。
	BookingStateCurrent BookingState = "CURRENT"
	// BookingStatePast は end < now の予約。
	BookingStatePast BookingState = "PAST"
	// BookingStateFuture は start > now の予約。
	BookingStateFuture BookingState = "FUTURE"
	// BookingStateWaiting は承認待ちの予約。
	BookingStateWaiting BookingState = "WAITING"
	// BookingStateRejected は却下された予約。
	BookingStateRejected BookingState = "REJECTED"
)

// validBookingStates は有効な絞り込み値のセット。
var validBookingStates = map[BookingState]bool{
	BookingStateAll:      true,
	BookingStateCurrent:  true,
	BookingStatePast:     true,
	BookingStateFuture:   true,
	BookingStateWaiting:  true,
	BookingStateRejected: true,
}

// ParseBookingState は文字列を絞り込み条件に変換する。
// 空文字列はALLとして扱う。未知の値はINVALID_STATEエラーを返す。
func ParseBookingState(s string) (BookingState, error) {
	if strings.TrimSpace(s) == "" {
		return BookingStateAll, nil
	}
	state := BookingState(s)
	if !validBookingStates[state] {
		return "", NewInvalidStateError(s)
	}
	return state, nil
}
