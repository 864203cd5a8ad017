package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrpay/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// IdempotentResponse is the stored outcome of the first request for a key.
type IdempotentResponse struct {
	RequestHash string
	Status      int
	ContentType string
	Body        []byte
}

type IdempotencyStore interface {
	Check(ctx context.Context, scope, key, requestHash string) (IdempotentResponse, bool, error)
	Save(ctx context.Context, scope, key string, resp IdempotentResponse) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Idempotency replays the stored response when a POST repeats an
// Idempotency-Key with the same body, and refuses a reused key with a
// different body.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			scope := r.Method + " " + r.URL.Path
			if user, ok := GetUser(r.Context()); ok {
				scope = user.UserID + " " + scope
			}
			hash := RequestHash(raw)

			stored, found, err := store.Check(r.Context(), scope, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusUnprocessableEntity, "idempotency_conflict", ErrIdempotencyConflict.Error(), requestID)
				return
			case err != nil:
				api.Fail(w, http.StatusInternalServerError, "idempotency_error", "idempotency check failed", requestID)
				return
			case found:
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= 500 {
				return
			}
			_ = store.Save(r.Context(), scope, key, IdempotentResponse{
				RequestHash: hash,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

type MemoryIdempotencyStore struct {
	mu    sync.Mutex
	items map[string]IdempotentResponse
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{items: make(map[string]IdempotentResponse)}
}

func (s *MemoryIdempotencyStore) Check(ctx context.Context, scope, key, requestHash string) (IdempotentResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[scope+"\x00"+key]
	if !ok {
		return IdempotentResponse{}, false, nil
	}
	if stored.RequestHash != requestHash {
		return IdempotentResponse{}, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

// Save keeps the first response recorded for a key.
func (s *MemoryIdempotencyStore) Save(ctx context.Context, scope, key string, resp IdempotentResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope + "\x00" + key
	if existing, ok := s.items[k]; ok {
		if existing.RequestHash != resp.RequestHash {
			return ErrIdempotencyConflict
		}
		return nil
	}
	s.items[k] = resp
	return nil
}

type PgIdempotencyStore struct {
	db *pgxpool.Pool
}

func NewPgIdempotencyStore(db *pgxpool.Pool) *PgIdempotencyStore {
	return &PgIdempotencyStore{db: db}
}

func (s *PgIdempotencyStore) Check(ctx context.Context, scope, key, requestHash string) (IdempotentResponse, bool, error) {
	var out IdempotentResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status, content_type, response_body
    FROM idempotency_keys
    WHERE scope = $1 AND key = $2
  `, scope, key).Scan(&out.RequestHash, &out.Status, &out.ContentType, &out.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return IdempotentResponse{}, false, nil
	}
	if err != nil {
		return IdempotentResponse{}, false, err
	}
	if out.RequestHash != requestHash {
		return IdempotentResponse{}, false, ErrIdempotencyConflict
	}
	return out, true, nil
}

func (s *PgIdempotencyStore) Save(ctx context.Context, scope, key string, resp IdempotentResponse) error {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (scope, key, request_hash, status, content_type, response_body)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (scope, key)
    DO UPDATE SET status = idempotency_keys.status
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, scope, key, resp.RequestHash, resp.Status, resp.ContentType, resp.Body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}
