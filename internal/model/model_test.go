package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseBookingState_ValidValues(t *testing.T) {
	tests := []struct {
		in   string
		want BookingState
	}{
		{"", BookingStateAll},
		{"ALL", BookingStateAll},
		{"CURRENT", BookingStateCurrent},
		{"PAST", BookingStatePast},
		{"FUTURE", BookingStateFuture},
		{"WAITING", BookingStateWaiting},
		{"REJECTED", BookingStateRejected},
	}

	for _, tt := range tests {
		got, err := ParseBookingState(tt.in)
		if err != nil {
			t.Errorf("ParseBookingState(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBookingState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestParseBookingState_RejectsUnknown はAPPROVEDを含む未知の値がINVALID_STATEになることをテストする。
func TestParseBookingState_RejectsUnknown(t *testing.T) {
	for _, in := range []string{"APPROVED", "UNSUPPORTED_STATUS", "all"} {
		_, err := ParseBookingState(in)
		if err == nil {
			t.Errorf("ParseBookingState(%q) expected error", in)
			continue
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.Code != ErrCodeInvalidState {
			t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeInvalidState)
		}
		if apiErr.Message != "Unknown state: "+in {
			t.Errorf("message = %q", apiErr.Message)
		}
	}
}

func TestHasCategory_MatchesWrappedError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewItemNotFoundError(3))

	if !HasCategory(err, CategoryNotFound) {
		t.Error("expected wrapped ITEM_NOT_FOUND to be in not_found category")
	}
	if HasCategory(err, CategoryForbidden) {
		t.Error("expected not_found error not to match forbidden")
	}
	if HasCategory(errors.New("plain"), CategoryNotFound) {
		t.Error("plain error should not match any category")
	}
}

// TestOwnershipErrorKinds は予約と物品で所有者エラーの種別が異なることをテストする。
func TestOwnershipErrorKinds(t *testing.T) {
	if NewBookingAccessDeniedError().Category != CategoryForbidden {
		t.Error("booking access error should be forbidden")
	}
	if NewNotItemOwnerError(1).Category != CategoryValidation {
		t.Error("item ownership error should be validation")
	}
}

func TestItemPatch_Apply_OnlyNonNilFields(t *testing.T) {
	item := Item{ID: 1, Name: "Drill", Description: "Cordless", Available: true}
	name := "Hammer"
	unavailable := false

	ItemPatch{Name: &name, Available: &unavailable}.Apply(&item)

	if item.Name != "Hammer" {
		t.Errorf("Name = %q, want Hammer", item.Name)
	}
	if item.Description != "Cordless" {
		t.Errorf("Description = %q, want unchanged", item.Description)
	}
	if item.Available {
		t.Error("Available should be false")
	}
}

func TestUserPatch_Apply_OnlyNonNilFields(t *testing.T) {
	u := User{ID: 1, Name: "Alex", Email: "alex@example.com"}
	email := "new@example.com"

	UserPatch{Email: &email}.Apply(&u)

	if u.Name != "Alex" || u.Email != "new@example.com" {
		t.Errorf("unexpected user after patch: %+v", u)
	}
}
