package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/shareit/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	Create(ctx context.Context, userID int64, in model.NewBooking) (*model.BookingDetail, error)
	Approve(ctx context.Context, userID, bookingID int64, approved *bool) (*model.BookingDetail, error)
	Get(ctx context.Context, userID, bookingID int64) (*model.BookingDetail, error)
	ListByBooker(ctx context.Context, userID int64, state string) ([]model.BookingDetail, error)
	ListByOwner(ctx context.Context, userID int64, state string) ([]model.BookingDetail, error)
}

// BookingHandler は予約管理のHTTPハンドラー。
type BookingHandler struct {
	service  BookingServiceInterface
	validate *requestValidator
}

// NewBookingHandler はBookingHandlerを生成する。
// nowは開始・終了日時の形式検証に使う現在時刻の取得関数。
func NewBookingHandler(service BookingServiceInterface, now func() time.Time) *BookingHandler {
	if now == nil {
		now = time.Now
	}
	return &BookingHandler{service: service, validate: newRequestValidator(now)}
}

// Create は予約を作成する。
// POST /bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req bookingCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := h.validate.Validate(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	booking, err := h.service.Create(r.Context(), userID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(*booking))
}

// Approve は予約を承認または却下する。approvedが省略された場合は状態を変更しない。
// PATCH /bookings/{bookingId}?approved=true|false
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "bookingId")
	if !ok {
		return
	}

	approved, err := parseApproved(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	booking, err := h.service.Approve(r.Context(), userID, bookingID, approved)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

// Get は予約者または物品所有者に予約を返す。
// GET /bookings/{bookingId}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "bookingId")
	if !ok {
		return
	}

	booking, err := h.service.Get(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

// ListByBooker は呼び出し元の予約一覧を返す。
// GET /bookings?state=
func (h *BookingHandler) ListByBooker(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListByBooker)
}

// ListByOwner は呼び出し元が所有する物品への予約一覧を返す。
// GET /bookings/owner?state=
func (h *BookingHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListByOwner)
}

func (h *BookingHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(ctx context.Context, userID int64, state string) ([]model.BookingDetail, error),
) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// 省略時はALL（サービス層で解釈）
	bookings, err := fetch(r.Context(), userID, r.URL.Query().Get("state"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// parseApproved はapprovedクエリパラメータを解釈する。
// 省略時はnil、true/false以外の値はエラーとする。
func parseApproved(r *http.Request) (*bool, error) {
	values, present := r.URL.Query()["approved"]
	if !present || len(values) == 0 {
		return nil, nil
	}

	var approved bool
	switch strings.ToLower(strings.TrimSpace(values[0])) {
	case "true":
		approved = true
	case "false":
		approved = false
	default:
		return nil, fmt.Errorf("approvedにはtrueまたはfalseを指定してください: %q", values[0])
	}
	return &approved, nil
}
