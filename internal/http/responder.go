package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/persistence"
	"github.com/example/class-timetable/internal/scheduler"
)

// retryAfterSeconds is advertised when storage is temporarily unavailable.
const retryAfterSeconds = "5"

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errMissingClass   = errors.New("クラス名を指定してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeViolations(vErr.Violations),
		})
	case errors.Is(err, application.ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   "指定された時間割が見つかりません。再読み込みしてください。",
		})
	case errors.Is(err, persistence.ErrDuplicate):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "DUPLICATE",
			Message:   localizedStatusMessage(http.StatusConflict),
		})
	case errors.Is(err, persistence.ErrConstraintViolation):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
		})
	case errors.Is(err, application.ErrPersistenceUnavailable):
		r.loggerFor(ctx).WarnContext(ctx, "storage unavailable", "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "PERSISTENCE_UNAVAILABLE",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	case errors.Is(err, application.ErrDataCorruption):
		r.loggerFor(ctx).ErrorContext(ctx, "stored timetable is corrupt", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "DATA_CORRUPTION",
			Message:   "保存されている時間割データが破損しています。",
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "一時的にデータを保存できません。しばらくしてから再試行してください。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeViolations(violations []scheduler.Violation) []fieldError {
	if len(violations) == 0 {
		return nil
	}

	translated := make([]fieldError, 0, len(violations))
	for _, violation := range violations {
		translated = append(translated, fieldError{
			Code:    string(violation.Code),
			Field:   violation.Field,
			EntryID: violation.WithEntryID,
			Message: translateViolation(violation),
		})
	}
	return translated
}

func translateViolation(violation scheduler.Violation) string {
	switch violation.Code {
	case scheduler.ViolationRequired:
		return "必須項目です。"
	case scheduler.ViolationTimeOrder:
		return "終了時刻は開始時刻より後である必要があります。"
	case scheduler.ViolationDuration:
		return "1 コマの長さが上限を超えています。"
	case scheduler.ViolationOverlap:
		return "同じクラスの別の授業と時間が重なっています。"
	default:
		return violation.Message
	}
}

type fieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	EntryID string `json:"entryId,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	ErrorCode string       `json:"error_code,omitempty"`
	Message   string       `json:"message"`
	Errors    []fieldError `json:"errors,omitempty"`
}
