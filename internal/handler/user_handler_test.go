package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/shareit/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	createFn func(ctx context.Context, in model.NewUser) (*model.User, error)
	updateFn func(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error)
	getFn    func(ctx context.Context, userID int64) (*model.User, error)
	listFn   func(ctx context.Context) ([]model.User, error)
	deleteFn func(ctx context.Context, userID int64) error
}

func (m *mockUserService) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.User{ID: 1, Name: in.Name, Email: in.Email}, nil
}

func (m *mockUserService) Update(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, patch)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) Get(ctx context.Context, userID int64) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) List(ctx context.Context) ([]model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.User{}, nil
}

func (m *mockUserService) Delete(ctx context.Context, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

// --- POST /users テスト ---

func TestUserHandler_Create_Success(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, in model.NewUser) (*model.User, error) {
			if in.Name != "alice" || in.Email != "alice@example.com" {
				t.Errorf("input = %+v", in)
			}
			return &model.User{ID: 7, Name: in.Name, Email: in.Email}, nil
		},
	}
	h := NewUserHandler(svc)

	req := newJSONRequest(t, http.MethodPost, "/users", map[string]string{"name": "alice", "email": "alice@example.com"})
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var body userResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body != (userResponse{ID: 7, Name: "alice", Email: "alice@example.com"}) {
		t.Errorf("body = %+v", body)
	}
}

func TestUserHandler_Create_InvalidEmail_Returns400(t *testing.T) {
	called := false
	svc := &mockUserService{
		createFn: func(ctx context.Context, in model.NewUser) (*model.User, error) {
			called = true
			return nil, nil
		},
	}
	h := NewUserHandler(svc)

	req := newJSONRequest(t, http.MethodPost, "/users", map[string]string{"name": "alice", "email": "not-an-email"})
	w := httptest.NewRecorder()
	h.Create(w, req)

	assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)
	if called {
		t.Error("service should not be called on validation failure")
	}
}

func TestUserHandler_Create_DuplicateEmail_Returns409(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, in model.NewUser) (*model.User, error) {
			return nil, model.NewDuplicateEmailError(in.Email)
		},
	}
	h := NewUserHandler(svc)

	req := newJSONRequest(t, http.MethodPost, "/users", map[string]string{"name": "bob", "email": "taken@example.com"})
	w := httptest.NewRecorder()
	h.Create(w, req)

	assertErrorCode(t, w, http.StatusConflict, model.ErrCodeDuplicateEmail)
}

// --- GET /users テスト ---

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

// --- GET /users/{userId} テスト ---

func TestUserHandler_Get_NotFound(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, userID int64) (*model.User, error) {
			return nil, model.NewUserNotFoundError(userID)
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/users/99", nil), "userId", "99")
	w := httptest.NewRecorder()
	h.Get(w, req)

	assertErrorCode(t, w, http.StatusNotFound, model.ErrCodeUserNotFound)
}

// --- PATCH /users/{userId} テスト ---

func TestUserHandler_Update_PassesPartialPatch(t *testing.T) {
	svc := &mockUserService{
		updateFn: func(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error) {
			if userID != 3 {
				t.Errorf("userID = %d, want 3", userID)
			}
			if patch.Name == nil || *patch.Name != "carol" {
				t.Errorf("patch.Name = %v, want carol", patch.Name)
			}
			if patch.Email != nil {
				t.Errorf("patch.Email = %v, want nil", *patch.Email)
			}
			return &model.User{ID: 3, Name: "carol", Email: "c@example.com"}, nil
		},
	}
	h := NewUserHandler(svc)

	req := newJSONRequest(t, http.MethodPatch, "/users/3", map[string]string{"name": "carol"})
	req = withChiURLParam(req, "userId", "3")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- DELETE /users/{userId} テスト ---

func TestUserHandler_Delete_Success(t *testing.T) {
	deleted := int64(0)
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, userID int64) error {
			deleted = userID
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/users/5", nil), "userId", "5")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}
}

func TestUserHandler_Delete_StorageError_Returns500(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, userID int64) error {
			return errors.New("db down")
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/users/5", nil), "userId", "5")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	assertErrorCode(t, w, http.StatusInternalServerError, model.ErrCodeInternal)
}
