package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/hitoshi/shareit/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// wireTimeLayout はタイムゾーンなしのローカル日時表現。
// 小数秒は0でなければ末尾の0を除いて出力する。
const wireTimeLayout = "2006-01-02T15:04:05.999999999"

// wireTime はワイヤ上の日時表現。
// 出力はローカルタイムゾーンのゾーンなし日時、入力はゾーンなし日時またはRFC 3339を受け付ける。
type wireTime time.Time

// MarshalJSON はローカル日時として出力する。
func (t wireTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).In(time.Local).Format(wireTimeLayout) + `"`), nil
}

// UnmarshalJSON はゾーンなし日時をローカル時刻として解釈する。
func (t *wireTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("date-time must be a string: %s", s)
	}
	parsed, err := parseWireTime(unquoted)
	if err != nil {
		return err
	}
	*t = wireTime(parsed)
	return nil
}

func parseWireTime(s string) (time.Time, error) {
	if parsed, err := time.ParseInLocation(wireTimeLayout, s, time.Local); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q: expected %s", s, "2006-01-02T15:04:05")
	}
	return parsed, nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はリクエストボディをJSONとしてdstに読み込む。
// 解析に失敗した場合は400レスポンスを書き込み、falseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: model.CategoryValidation,
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// pathID はURLパスパラメータを正の整数IDとして読み取る。
// 不正な場合は400レスポンスを書き込み、falseを返す。
func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(fmt.Sprintf("%sは正の整数で指定してください: %q", key, raw)))
		return 0, false
	}
	return id, true
}
