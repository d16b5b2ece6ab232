// Package idempotency replays the first response of a mutating request when
// the client retries it with the same Idempotency-Key.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"agromart/models"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

const (
	HeaderKey    = "Idempotency-Key"
	maxKeyLen    = 128
	maxBodyBytes = 1 << 20
	recordTTL    = 24 * time.Hour
)

type Middleware struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Middleware {
	return &Middleware{store: store, now: time.Now}
}

func requestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter tees the response so it can be stored after the handler runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Wrap guards next. Requests without the header pass straight through. Keys
// are scoped to the authenticated user.
//
// A finished request is replayed byte for byte. A key reused with a
// different body, or while the first request is still running, is a 409.
// Server errors are not remembered so the client can retry them.
func (m *Middleware) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get(HeaderKey)
		if key == "" {
			next(w, r, ps)
			return
		}
		if len(key) > maxKeyLen {
			utils.RespondWithError(w, http.StatusBadRequest, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		userID := utils.GetUserIDFromRequest(r)
		now := m.now()
		rec := models.IdempotencyRecord{
			Key:         userID + ":" + key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: requestHash(r, body, userID),
			CreatedAt:   now,
			ExpiresAt:   now.Add(recordTTL),
		}

		existing, err := m.store.Reserve(r.Context(), rec)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		if existing != nil {
			switch {
			case existing.RequestHash != rec.RequestHash:
				utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key was used for a different request")
			case existing.Status == 0:
				utils.RespondWithError(w, http.StatusConflict, "request with this Idempotency-Key is still in progress")
			default:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				_, _ = w.Write(existing.Body)
			}
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next(cw, r, ps)

		// the request context may already be gone once the handler returns
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		if cw.status == 0 || cw.status >= http.StatusInternalServerError {
			err = m.store.Release(ctx, rec.Key)
		} else {
			err = m.store.Complete(ctx, rec.Key, cw.status, cw.buf.Bytes())
		}
		if err != nil {
			slog.WarnContext(ctx, "idempotency record not updated", "key", rec.Key, "error", err)
		}
	}
}
