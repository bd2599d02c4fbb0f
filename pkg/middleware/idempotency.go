package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "repairdesk/pkg/errors"
	httputil "repairdesk/pkg/http"
	"repairdesk/pkg/logger"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore keeps successful responses by key. Begin claims a key for
// the duration of one request so concurrent retries do not both run.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Begin(ctx context.Context, key string) (bool, error)
	End(ctx context.Context, key string) error
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	store    map[string]*CachedResponse
	inflight map[string]struct{}
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:    make(map[string]*CachedResponse),
		inflight: make(map[string]struct{}),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response, exists := s.store[key]
	if !exists {
		return nil, false, nil
	}
	if time.Since(response.CreatedAt) > s.ttl {
		delete(s.store, key)
		return nil, false, nil
	}
	return response, true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
	return nil
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[key]; busy {
		return false, nil
	}
	s.inflight[key] = struct{}{}
	return true, nil
}

func (s *InMemoryIdempotencyStore) End(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, key)
	return nil
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(max(s.ttl, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// write requests. Keys are scoped to method and path. Only 2xx responses are
// stored, so a failed attempt can be retried with the same key. Store errors
// are logged and the request runs unprotected.
func Idempotency(store IdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || !isWriteMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 255 {
				_ = httputil.WriteError(w, apperrors.InvalidInput("Idempotency-Key is too long"))
				return
			}

			ctx := r.Context()
			scoped := r.Method + " " + r.URL.Path + " " + key

			cached, found, err := store.Get(ctx, scoped)
			if err != nil {
				log.Error("Idempotency lookup failed", "request_id", RequestIDFromContext(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				w.Header().Set("Idempotent-Replayed", "true")
				replayCachedResponse(w, cached)
				return
			}

			claimed, err := store.Begin(ctx, scoped)
			if err != nil {
				log.Error("Idempotency claim failed", "request_id", RequestIDFromContext(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this Idempotency-Key is already in progress"))
				return
			}
			defer func() {
				if err := store.End(context.WithoutCancel(ctx), scoped); err != nil {
					log.Error("Idempotency release failed", "request_id", RequestIDFromContext(ctx), "error", err)
				}
			}()

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}
			response := &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			}
			if err := store.Set(context.WithoutCancel(ctx), scoped, response); err != nil {
				log.Error("Failed to store idempotent response", "request_id", RequestIDFromContext(ctx), "error", err)
			}
		})
	}
}

func isWriteMethod(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == RequestIDHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
