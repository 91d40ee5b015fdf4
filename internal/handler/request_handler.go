package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/shareit/internal/model"
)

// RequestServiceInterface は物品リクエストハンドラーが必要とするサービスインターフェース。
type RequestServiceInterface interface {
	Create(ctx context.Context, userID int64, description string) (*model.ItemRequest, error)
	ListOwn(ctx context.Context, userID int64) ([]model.ItemRequestWithItems, error)
	ListOthers(ctx context.Context, userID int64) ([]model.ItemRequest, error)
	Get(ctx context.Context, userID, requestID int64) (*model.ItemRequestWithItems, error)
}

// RequestHandler は物品リクエストのHTTPハンドラー。
type RequestHandler struct {
	service  RequestServiceInterface
	validate *requestValidator
}

// NewRequestHandler はRequestHandlerを生成する。
func NewRequestHandler(service RequestServiceInterface) *RequestHandler {
	return &RequestHandler{service: service, validate: newRequestValidator(time.Now)}
}

// Create は物品リクエストを投稿する。
// POST /requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req itemRequestCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := h.validate.Validate(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.Description)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemRequestResponse(*created))
}

// ListOwn は呼び出し元のリクエストを応えた物品付きで返す。
// GET /requests
func (h *RequestHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]itemRequestWithItemsResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toItemRequestWithItemsResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListOthers は他のユーザーのリクエストを返す。
// GET /requests/all
func (h *RequestHandler) ListOthers(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.service.ListOthers(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]itemRequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toItemRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get はリクエストを応えた物品付きで返す。
// GET /requests/{requestId}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	req, err := h.service.Get(r.Context(), userID, requestID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemRequestWithItemsResponse(*req))
}
