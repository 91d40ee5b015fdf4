package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/shareit/internal/model"
)

// ItemServiceInterface は物品ハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	ListByOwner(ctx context.Context, userID int64) ([]model.ItemWithDates, error)
	Get(ctx context.Context, itemID int64) (*model.ItemWithDates, error)
	Create(ctx context.Context, userID int64, in model.NewItem) (*model.Item, error)
	Update(ctx context.Context, userID, itemID int64, patch model.ItemPatch) (*model.Item, error)
	Delete(ctx context.Context, userID, itemID int64) error
	Search(ctx context.Context, text string) ([]model.Item, error)
	CreateComment(ctx context.Context, userID, itemID int64, text string) (*model.Comment, error)
}

// ItemHandler は物品管理のHTTPハンドラー。
type ItemHandler struct {
	service  ItemServiceInterface
	validate *requestValidator
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service, validate: newRequestValidator(time.Now)}
}

// Create は物品を登録する。
// POST /items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req itemCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := h.validate.Validate(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	item, err := h.service.Create(r.Context(), userID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(*item))
}

// ListByOwner は呼び出し元が所有する物品を直近・次回予約とコメント付きで返す。
// GET /items
func (h *ItemHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListByOwner(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]itemWithDatesResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemWithDatesResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

// Search は名前または説明に一致する予約可能な物品を返す。
// GET /items/search?text=
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}

	items, err := h.service.Search(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// Get は物品をコメント付きで返す。
// GET /items/{itemId}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemWithDatesResponse(*item))
}

// Update は物品を部分更新する。所有者のみ実行できる。
// PATCH /items/{itemId}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	var req itemPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.service.Update(r.Context(), userID, itemID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(*item))
}

// Delete は物品を削除する。所有者のみ実行できる。
// DELETE /items/{itemId}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, itemID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateComment は利用を終えた物品にコメントを投稿する。
// POST /items/{itemId}/comment
func (h *ItemHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	var req commentCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := h.validate.Validate(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	comment, err := h.service.CreateComment(r.Context(), userID, itemID, req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(*comment))
}
