package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(generalBurst, uploadBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.0001), // テスト中にトークンが補充されないよう極小に
		GeneralBurst:    generalBurst,
		UploadRate:      rate.Limit(0.0001),
		UploadBurst:     uploadBurst,
		CleanupInterval: time.Hour,
	}
}

func newAuthenticatedRequest(studentID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	ctx := ContextWithIdentity(req.Context(), Identity{
		AccountID: "acct-" + studentID,
		StudentID: studentID,
	})
	return req.WithContext(ctx)
}

func TestRateLimiter_GeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_GeneralMiddleware_Returns429OverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header to be set")
	}
}

func TestRateLimiter_GeneralMiddleware_IsolatesStudents(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// S12345がバーストを使い切る
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 別の学籍番号には影響しない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthenticatedRequest("S67890"))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_UploadMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	upload := rl.UploadMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// API全般のバーストを使い切ってもアップロードは許可される
	w := httptest.NewRecorder()
	general.ServeHTTP(w, newAuthenticatedRequest("S12345"))

	w = httptest.NewRecorder()
	upload.ServeHTTP(w, newAuthenticatedRequest("S12345"))
	if w.Code != http.StatusOK {
		t.Errorf("upload status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_NoIdentity_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	cfg := testRateLimiterConfig(1, 1)
	cfg.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthenticatedRequest("S12345"))

	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("limiter count = %d, want 1", rl.GeneralLimiterCount())
	}

	// TTL（CleanupIntervalの2倍）経過後にクリーンアップされる
	deadline := time.Now().Add(time.Second)
	for rl.GeneralLimiterCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected stale limiter entry to be cleaned up")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
