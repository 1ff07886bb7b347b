package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ClientError is an error caused by the request itself. Its message is safe
// to show to the user even outside debug mode.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

func BadRequest(message string) *ClientError {
	return &ClientError{Status: http.StatusBadRequest, Message: message}
}

func NotFound(message string) *ClientError {
	return &ClientError{Status: http.StatusNotFound, Message: message}
}

type Responder struct {
	DebugMode bool
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level.
// A *ClientError is handed to RespondAndLogCustom with its own status and slog.LevelInfo instead.
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	var ce *ClientError
	if errors.As(err, &ce) {
		rr.RespondAndLogCustom(w, ctx, err, slog.LevelInfo, ce.Status)
		return
	}

	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, http.StatusInternalServerError, err.Error(), errId, false)
}

// RespondAndLogCustom responds with status and logs at lvl. The message of a
// *ClientError reaches the user even outside debug mode.
func (rr *Responder) RespondAndLogCustom(w http.ResponseWriter, ctx context.Context, err error, lvl slog.Level, status int) {
	errId := uuid.NewString()
	log(ctx, lvl, err.Error(), slog.String("err_id", errId), slog.Int("status", status))

	var ce *ClientError
	if errors.As(err, &ce) {
		rr.renderError(w, ctx, status, ce.Message, errId, true)
		return
	}

	rr.renderError(w, ctx, status, err.Error(), errId, false)
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// SendRaw writes an already encoded body, e.g. an XML feed.
func (rr *Responder) SendRaw(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, bytes.NewReader(body))
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, message, errId string,
	public bool) {

	data := map[string]any{"error_id": errId}

	if rr.DebugMode || public {
		r, s := utf8.DecodeRuneInString(message)
		data["error"] = string(unicode.ToUpper(r)) + message[s:]
	} else {
		data["error"] = "Unknown error occurred while processing your request. Error ID: " + errId
	}

	bs, err := json.Marshal(data)
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
