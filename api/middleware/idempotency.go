package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickmed/quickmed-backend/api/responses"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/logger"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	defaultIdempotencyTTL   = 24 * time.Hour
	idempotencyInFlightTTL  = 2 * time.Minute
	maxIdempotencyKeyLength = 255
	maxIdempotentBodyBytes  = 1 << 20
)

// IdempotencyStore holds claimed keys and the responses recorded for them.
type IdempotencyStore interface {
	IdempotencyKey(scope, id string) string
	Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Order writes that must not run twice for one client intent.
var idempotentRoutes = map[string][]func(string) bool{
	http.MethodPost: {
		matchExact("/api/v1/orders"),
		matchPrefixSuffix("/api/v1/orders/", "/delivery-proof"),
	},
}

type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency guards order placement and delivery confirmation against
// double submission. The first request with a given Idempotency-Key claims
// it; concurrent duplicates get 409 until it finishes, later duplicates get
// the recorded response. A reused key with a different body is rejected.
// Server errors release the claim so the client may retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || clientKey == "" || !idempotentRoute(r.Method, routePattern(r)) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLength {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation,
					"%s must be at most %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLength))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBodyBytes))
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
						WithDetails(map[string]any{"error": fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)
			claim, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hash})

			won, err := store.Claim(ctx, key, string(claim), idempotencyInFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				replayOrReject(ctx, logg, w, store, key, hash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			serveOrRelease(next, rec, r, store, key, logg)
			// The client may have gone away; the record must still be written.
			ctx = context.WithoutCancel(ctx)

			status := rec.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			done, err := json.Marshal(idempotencyRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err == nil {
				err = store.Save(ctx, key, string(done), ttl)
			}
			if err != nil {
				logg.Error(ctx, "idempotency.save_failed", err)
			}
		})
	}
}

// serveOrRelease drops the claim when the handler panics so the key does not
// stay pending until the in-flight TTL lapses.
func serveOrRelease(next http.Handler, w http.ResponseWriter, r *http.Request, store IdempotencyStore, key string, logg *logger.Logger) {
	defer func() {
		if p := recover(); p != nil {
			ctx := context.WithoutCancel(r.Context())
			if err := store.Release(ctx, key); err != nil {
				logg.Error(ctx, "idempotency.release_failed", err)
			}
			panic(p)
		}
	}()
	next.ServeHTTP(w, r)
}

func replayOrReject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store IdempotencyStore, key, hash string) {
	stored, found, err := store.Load(ctx, key)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var record idempotencyRecord
	if found {
		if err := json.Unmarshal([]byte(stored), &record); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
			return
		}
	}
	switch {
	case found && record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency,
			"idempotency key reused with different request body"))
	case !found || record.Pending:
		// A claim that vanished between Claim and Load was released by a
		// failed first attempt; the client retries either way.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency,
			"a request with this idempotency key is still in progress").
			WithDetails(map[string]any{"reason": "in_progress"}))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

// requestScope keeps keys from different callers and routes apart.
func requestScope(r *http.Request) string {
	var user string
	if p, ok := PrincipalFromContext(r.Context()); ok {
		user = strconv.FormatInt(p.UserID, 10)
	}
	return user + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func idempotentRoute(method, pattern string) bool {
	for _, match := range idempotentRoutes[method] {
		if match(pattern) {
			return true
		}
	}
	return false
}

// chi reports mounted roots with a trailing slash.
func matchExact(path string) func(string) bool {
	return func(pattern string) bool {
		return pattern == path || pattern == path+"/"
	}
}

func matchPrefixSuffix(prefix, suffix string) func(string) bool {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
