package handler

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/hitoshi/shareit/internal/model"
)

// requestValidator はリクエストボディの形式を検証する。
// 業務ルールの検証はサービス層が行い、ここでは入力形式のみを扱う。
type requestValidator struct {
	v   *validator.Validate
	now func() time.Time
}

// newRequestValidator はカスタムタグを登録したバリデータを生成する。
//
//	notblank        空白以外の文字を含む
//	futureorpresent 現在時刻（秒単位）以降
//	future          現在時刻より後
func newRequestValidator(now func() time.Time) *requestValidator {
	rv := &requestValidator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	// エラーメッセージにはJSONのフィールド名を使う
	rv.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	rv.v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if t, ok := field.Interface().(wireTime); ok {
			return time.Time(t)
		}
		return nil
	}, wireTime{})

	rv.v.RegisterValidation("notblank", validators.NotBlank)
	rv.v.RegisterValidation("futureorpresent", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(rv.now().Truncate(time.Second))
	})
	rv.v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.After(rv.now())
	})

	return rv
}

// Validate はsの形式を検証し、違反があればVALIDATION_ERRORを返す。
func (rv *requestValidator) Validate(s any) *model.APIError {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}

	var reasons []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			reasons = append(reasons, describeFieldError(fe))
		}
	} else {
		reasons = append(reasons, err.Error())
	}
	return model.NewValidationError(strings.Join(reasons, ", "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です", fe.Field())
	case "notblank":
		return fmt.Sprintf("%sは空にできません", fe.Field())
	case "email":
		return fmt.Sprintf("%sはメールアドレス形式で指定してください", fe.Field())
	case "futureorpresent":
		return fmt.Sprintf("%sには現在以降の日時を指定してください", fe.Field())
	case "future":
		return fmt.Sprintf("%sには未来の日時を指定してください", fe.Field())
	case "gt":
		return fmt.Sprintf("%sは%sより大きい値を指定してください", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
	}
}
