// Package event は予約のライフサイクルイベントとその配信を定義する。
package event

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/mq"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type は予約イベントの種別。
type Type string

const (
	// TypeBookingCreated は予約が作成されたことを表す。通知先は物品の所有者。
	TypeBookingCreated Type = "booking.created"
	// TypeBookingApproved は予約が承認されたことを表す。通知先は予約者。
	TypeBookingApproved Type = "booking.approved"
	// TypeBookingRejected は予約が却下されたことを表す。通知先は予約者。
	TypeBookingRejected Type = "booking.rejected"
)

// AttrType はメッセージ属性に格納するイベント種別のキー。
const AttrType = "type"

// BookingEvent はブローカーに送信される予約イベントのペイロード。
type BookingEvent struct {
	Type       Type      `json:"type"`
	BookingID  int64     `json:"bookingId"`
	ItemID     int64     `json:"itemId"`
	BookerID   int64     `json:"bookerId"`
	OwnerID    int64     `json:"ownerId"`
	Status     string    `json:"status"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewBookingEvent は予約の現在の状態からイベントを生成する。
func NewBookingEvent(typ Type, b model.BookingDetail, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		ItemID:     b.ItemID,
		BookerID:   b.BookerID,
		OwnerID:    b.ItemOwnerID,
		Status:     string(b.Status),
		Start:      b.Start,
		End:        b.End,
		OccurredAt: occurredAt,
	}
}

// TypeForStatus は承認結果の状態に対応するイベント種別を返す。
func TypeForStatus(status model.BookingStatus) Type {
	if status == model.BookingStatusApproved {
		return TypeBookingApproved
	}
	return TypeBookingRejected
}

// Recipient はイベントの通知先ユーザーIDを返す。
func (e BookingEvent) Recipient() int64 {
	if e.Type == TypeBookingCreated {
		return e.OwnerID
	}
	return e.BookerID
}

// Encode はイベントをJSONにエンコードする。
func Encode(e BookingEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking event: %w", err)
	}
	return data, nil
}

// Decode はJSONからイベントを復元する。未知の種別はエラーとする。
func Decode(data []byte) (BookingEvent, error) {
	var e BookingEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BookingEvent{}, fmt.Errorf("failed to decode booking event: %w", err)
	}
	switch e.Type {
	case TypeBookingCreated, TypeBookingApproved, TypeBookingRejected:
		return e, nil
	default:
		return BookingEvent{}, fmt.Errorf("unknown booking event type: %q", e.Type)
	}
}

// Publisher は予約イベントを配信する。
type Publisher interface {
	Publish(ctx context.Context, e BookingEvent) error
}

// BrokerPublisher はmq.Backendの指定キューへイベントを送信するPublisher。
type BrokerPublisher struct {
	backend mq.Backend
	queue   string
}

// NewBrokerPublisher はBrokerPublisherを生成する。
func NewBrokerPublisher(backend mq.Backend, queue string) *BrokerPublisher {
	return &BrokerPublisher{backend: backend, queue: queue}
}

// Publish はイベントをエンコードしてキューへ送信する。
func (p *BrokerPublisher) Publish(ctx context.Context, e BookingEvent) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if _, err := p.backend.Publish(ctx, p.queue, data, map[string]string{AttrType: string(e.Type)}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// NopPublisher はイベントを破棄するPublisher。ブローカー未設定時に使用する。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }

var (
	_ Publisher = (*BrokerPublisher)(nil)
	_ Publisher = NopPublisher{}
)
