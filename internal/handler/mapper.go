package handler

import (
	"time"

	"github.com/hitoshi/shareit/internal/model"
)

// --- リクエスト型 ---

// bookingCreateRequest は予約作成リクエストのボディ。
type bookingCreateRequest struct {
	ItemID *int64    `json:"itemId" validate:"required"`
	Start  *wireTime `json:"start" validate:"required,futureorpresent"`
	End    *wireTime `json:"end" validate:"required,future"`
}

func (r bookingCreateRequest) toModel() model.NewBooking {
	return model.NewBooking{
		ItemID: *r.ItemID,
		Start:  time.Time(*r.Start),
		End:    time.Time(*r.End),
	}
}

// itemCreateRequest は物品登録リクエストのボディ。
type itemCreateRequest struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Available   *bool  `json:"available" validate:"required"`
	RequestID   *int64 `json:"requestId" validate:"omitempty,gt=0"`
}

func (r itemCreateRequest) toModel() model.NewItem {
	return model.NewItem{
		Name:        r.Name,
		Description: r.Description,
		Available:   *r.Available,
		RequestID:   r.RequestID,
	}
}

// itemPatchRequest は物品の部分更新リクエストのボディ。nilフィールドは変更しない。
type itemPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

func (r itemPatchRequest) toModel() model.ItemPatch {
	return model.ItemPatch{Name: r.Name, Description: r.Description, Available: r.Available}
}

type commentCreateRequest struct {
	Text string `json:"text" validate:"notblank"`
}

type itemRequestCreateRequest struct {
	Description string `json:"description" validate:"notblank"`
}

type userCreateRequest struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

// userPatchRequest はユーザーの部分更新リクエストのボディ。nilフィールドは変更しない。
type userPatchRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitnil,email"`
}

// --- レスポンス型 ---

type idNameResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// bookingResponse は予約のレスポンス。予約者と物品はIDと名前のみを含む。
type bookingResponse struct {
	ID     int64          `json:"id"`
	Start  wireTime       `json:"start"`
	End    wireTime       `json:"end"`
	Status string         `json:"status"`
	Booker idNameResponse `json:"booker"`
	Item   idNameResponse `json:"item"`
}

// bookingShortResponse は物品一覧に付与する直近・次回予約のレスポンス。
type bookingShortResponse struct {
	ID       int64    `json:"id"`
	Start    wireTime `json:"start"`
	End      wireTime `json:"end"`
	BookerID int64    `json:"bookerId"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   *int64 `json:"requestId,omitempty"`
}

type commentResponse struct {
	ID         int64    `json:"id"`
	Text       string   `json:"text"`
	AuthorName string   `json:"authorName"`
	Created    wireTime `json:"created"`
}

// itemWithDatesResponse は物品に直近・次回予約とコメントを付与したレスポンス。
// 予約がない場合はlastBooking/nextBookingを出力しない。
type itemWithDatesResponse struct {
	itemResponse
	LastBooking *bookingShortResponse `json:"lastBooking,omitempty"`
	NextBooking *bookingShortResponse `json:"nextBooking,omitempty"`
	Comments    []commentResponse     `json:"comments"`
}

type itemRequestResponse struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Created     wireTime `json:"created"`
}

type requestItemResponse struct {
	ItemID  int64  `json:"itemId"`
	Name    string `json:"name"`
	OwnerID int64  `json:"ownerId"`
}

type itemRequestWithItemsResponse struct {
	itemRequestResponse
	Items []requestItemResponse `json:"items"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// --- ドメインモデルからの変換 ---

func toBookingResponse(b model.BookingDetail) bookingResponse {
	return bookingResponse{
		ID:     b.ID,
		Start:  wireTime(b.Start),
		End:    wireTime(b.End),
		Status: string(b.Status),
		Booker: idNameResponse{ID: b.BookerID, Name: b.BookerName},
		Item:   idNameResponse{ID: b.ItemID, Name: b.ItemName},
	}
}

func toBookingResponses(bookings []model.BookingDetail) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func toBookingShortResponse(b *model.Booking) *bookingShortResponse {
	if b == nil {
		return nil
	}
	return &bookingShortResponse{
		ID:       b.ID,
		Start:    wireTime(b.Start),
		End:      wireTime(b.End),
		BookerID: b.BookerID,
	}
}

func toItemResponse(item model.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Available:   item.Available,
		RequestID:   item.RequestID,
	}
}

func toItemResponses(items []model.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}

func toCommentResponse(c model.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		Created:    wireTime(c.Created),
	}
}

func toItemWithDatesResponse(item model.ItemWithDates) itemWithDatesResponse {
	comments := make([]commentResponse, 0, len(item.Comments))
	for _, c := range item.Comments {
		comments = append(comments, toCommentResponse(c))
	}
	return itemWithDatesResponse{
		itemResponse: toItemResponse(item.Item),
		LastBooking:  toBookingShortResponse(item.LastBooking),
		NextBooking:  toBookingShortResponse(item.NextBooking),
		Comments:     comments,
	}
}

func toItemRequestResponse(r model.ItemRequest) itemRequestResponse {
	return itemRequestResponse{
		ID:          r.ID,
		Description: r.Description,
		Created:     wireTime(r.Created),
	}
}

func toItemRequestWithItemsResponse(r model.ItemRequestWithItems) itemRequestWithItemsResponse {
	items := make([]requestItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, requestItemResponse{ItemID: it.ItemID, Name: it.Name, OwnerID: it.OwnerID})
	}
	return itemRequestWithItemsResponse{
		itemRequestResponse: toItemRequestResponse(r.ItemRequest),
		Items:               items,
	}
}

func toUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}
