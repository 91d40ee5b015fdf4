package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Categoryにはエラー種別（not_found, forbidden, validation など）を格納し、
// トランスポート層はCodeからHTTPステータスを決定する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // エラー種別
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラー種別
const (
	CategoryNotFound           = "not_found"
	CategoryForbidden          = "forbidden"
	CategoryValidation         = "validation"
	CategoryNotAvailable       = "not_available"
	CategoryNoCompletedBooking = "no_completed_booking"
	CategoryInvalidState       = "invalid_state"
	CategorySystem             = "system"
)

// 定義済みエラーコード
const (
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodeBookingNotFound     = "BOOKING_NOT_FOUND"
	ErrCodeRequestNotFound     = "REQUEST_NOT_FOUND"
	ErrCodeBookingAccessDenied = "BOOKING_ACCESS_DENIED"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeMissingID           = "MISSING_ID"
	ErrCodeInvalidDates        = "INVALID_DATES"
	ErrCodeNotItemOwner        = "NOT_ITEM_OWNER"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeItemNotAvailable    = "ITEM_NOT_AVAILABLE"
	ErrCodeNoCompletedBooking  = "NO_COMPLETED_BOOKING"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// HasCategory はerrがAPIErrorであり、指定された種別に属するかを返す。
func HasCategory(err error, category string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == category
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewItemNotFoundError は物品が見つからない場合のエラーを生成する。
func NewItemNotFoundError(itemID int64) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された物品が見つかりません: %d", itemID),
		Category: CategoryNotFound,
		Action:   "物品IDを確認してください。",
	}
}

// NewBookingNotFoundError は予約が見つからない場合のエラーを生成する。
func NewBookingNotFoundError(bookingID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBookingNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %d", bookingID),
		Category: CategoryNotFound,
		Action:   "予約IDを確認してください。",
	}
}

// NewRequestNotFoundError はリクエストが見つからない場合のエラーを生成する。
func NewRequestNotFoundError(requestID int64) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定されたリクエストが見つかりません: %d", requestID),
		Category: CategoryNotFound,
		Action:   "リクエストIDを確認してください。",
	}
}

// NewBookingAccessDeniedError は予約の予約者でも物品の所有者でもない場合のエラーを生成する。
func NewBookingAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingAccessDenied,
		Message:  "この予約を操作する権限がありません。",
		Category: CategoryForbidden,
		Action:   "予約者または物品の所有者として操作してください。",
	}
}

// NewValidationError は入力形式のバリデーションエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewMissingIDError は必須IDが指定されていない場合のエラーを生成する。
func NewMissingIDError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingID,
		Message:  fmt.Sprintf("%sが指定されていません。", name),
		Category: CategoryValidation,
		Action:   "IDを指定してください。",
	}
}

// NewInvalidDatesError は予約終了日時が開始日時より前の場合のエラーを生成する。
func NewInvalidDatesError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDates,
		Message:  "予約の終了日時が開始日時より前です。",
		Category: CategoryValidation,
		Action:   "終了日時には開始日時以降の日時を指定してください。",
	}
}

// NewNotItemOwnerError は物品の所有者以外が変更しようとした場合のエラーを生成する。
// 予約の権限エラーとは異なり、validation種別として扱う。
func NewNotItemOwnerError(itemID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNotItemOwner,
		Message:  fmt.Sprintf("物品の所有者ではありません: %d", itemID),
		Category: CategoryValidation,
		Action:   "自分が所有する物品のみ変更・削除できます。",
	}
}

// NewDuplicateEmailError はメールアドレスが既に使用されている場合のエラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に使用されています: %s", email),
		Category: CategoryValidation,
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewItemNotAvailableError は物品が予約不可の場合のエラーを生成する。
func NewItemNotAvailableError(itemID int64) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotAvailable,
		Message:  fmt.Sprintf("この物品は現在予約できません: %d", itemID),
		Category: CategoryNotAvailable,
		Action:   "予約可能な物品を選択してください。",
	}
}

// NewNoCompletedBookingError は完了した承認済み予約がないままコメントしようとした場合のエラーを生成する。
func NewNoCompletedBookingError(itemID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNoCompletedBooking,
		Message:  fmt.Sprintf("この物品の利用が完了した予約がありません: %d", itemID),
		Category: CategoryNoCompletedBooking,
		Action:   "承認された予約の利用期間が終了した後にコメントしてください。",
	}
}

// NewInvalidStateError は未知の予約絞り込み条件が指定された場合のエラーを生成する。
func NewInvalidStateError(state string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("Unknown state: %s", state),
		Category: CategoryInvalidState,
		Action:   "stateには ALL、CURRENT、PAST、FUTURE、WAITING、REJECTED のいずれかを指定してください。",
	}
}
