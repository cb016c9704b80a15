package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fastlane/backend/config"
	"github.com/fastlane/backend/internal/domain"
	"github.com/fastlane/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// --- Mock implementations for testing with the real services ---

// mockPriceCache is a mock implementation of domain.PriceCache
type mockPriceCache struct {
	mu      sync.Mutex
	record  *domain.PriceRecord
	readErr error
}

func (m *mockPriceCache) ReadCurrent(ctx context.Context) (*domain.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.record == nil {
		return nil, domain.ErrCacheMiss
	}
	record := *m.record
	return &record, nil
}

func (m *mockPriceCache) WriteCurrent(ctx context.Context, price int, observedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &domain.PriceRecord{Value: price, ObservedAt: observedAt}
	return nil
}

// mockPageFetcher is a mock implementation of domain.PageFetcher
type mockPageFetcher struct {
	text  string
	err   error
	calls int
}

func (m *mockPageFetcher) FetchPageText(ctx context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// mockRequestLog is a mock implementation of domain.RequestLogRepository
type mockRequestLog struct {
	mu       sync.Mutex
	ips      []string
	countErr error
}

func (m *mockRequestLog) Record(ctx context.Context, ip string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ips = append(m.ips, ip)
	return nil
}

func (m *mockRequestLog) CountSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.ips), nil
}

var testNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"*"},
		},
		Cache: config.CacheConfig{
			Type:           "memory",
			ValidityWindow: 5 * time.Minute,
		},
	}
}

// setupTestRouterWithService creates a test router with real services using mocks
func setupTestRouterWithService(cache domain.PriceCache, fetcher domain.PageFetcher, requests domain.RequestLogRepository) *gin.Engine {
	return setupTestRouterWithConfig(testConfig(), cache, fetcher, requests)
}

func setupTestRouterWithConfig(cfg *config.Config, cache domain.PriceCache, fetcher domain.PageFetcher, requests domain.RequestLogRepository) *gin.Engine {
	clock := func() time.Time { return testNow }

	prices := usecase.NewPriceService(cache, fetcher, usecase.PriceServiceConfig{
		ValidityWindow: cfg.Cache.ValidityWindow,
		Now:            clock,
	})
	stats := usecase.NewStatsService(requests, cache, cfg.Cache.ValidityWindow, clock)

	handler := NewHandler(prices, stats)
	handler.now = clock
	return SetupRouter(cfg, handler)
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, &mockRequestLog{})

		w := doGet(router, "/health")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "fastlane-price" {
			t.Errorf("service = %v, want fastlane-price", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, &mockRequestLog{})

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestRootEndpoint tests the service descriptor
func TestRootEndpoint(t *testing.T) {
	router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, &mockRequestLog{})

	w := doGet(router, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	response := decode(t, w)
	endpoints, ok := response["endpoints"].(map[string]interface{})
	if !ok {
		t.Fatalf("endpoints = %v, want object", response["endpoints"])
	}
	for _, path := range []string{"/price", "/health", "/stats"} {
		if _, ok := endpoints[path]; !ok {
			t.Errorf("endpoints missing %s", path)
		}
	}
}

// TestPriceEndpoint tests the price endpoint with a real service
func TestPriceEndpoint(t *testing.T) {
	t.Run("returns fresh price then cached price", func(t *testing.T) {
		cache := &mockPriceCache{}
		fetcher := &mockPageFetcher{text: "המחיר עכשיו 8 ₪"}
		requests := &mockRequestLog{}
		router := setupTestRouterWithService(cache, fetcher, requests)

		w := doGet(router, "/price")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Cache-Control"); got != "public, max-age=300" {
			t.Errorf("Cache-Control = %q, want public, max-age=300", got)
		}

		response := decode(t, w)
		if response["price"] != float64(8) {
			t.Errorf("price = %v, want 8", response["price"])
		}
		if response["cached"] != false {
			t.Errorf("cached = %v, want false", response["cached"])
		}
		if response["currency"] != "ILS" {
			t.Errorf("currency = %v, want ILS", response["currency"])
		}
		if response["text_en"] != "Fast lane toll price: 8 shekels" {
			t.Errorf("text_en = %v", response["text_en"])
		}
		if response["text_he"] != "המחיר בנתיב המהיר: 8 שקלים" {
			t.Errorf("text_he = %v", response["text_he"])
		}
		if response["observedAt"] != testNow.Format(time.RFC3339) {
			t.Errorf("observedAt = %v, want %s", response["observedAt"], testNow.Format(time.RFC3339))
		}

		w = doGet(router, "/price")
		response = decode(t, w)
		if response["cached"] != true {
			t.Errorf("second request cached = %v, want true", response["cached"])
		}
		if response["price"] != float64(8) {
			t.Errorf("second request price = %v, want 8", response["price"])
		}

		if fetcher.calls != 1 {
			t.Errorf("fetch calls = %d, want 1", fetcher.calls)
		}
		if len(requests.ips) != 2 {
			t.Errorf("recorded requests = %d, want 2", len(requests.ips))
		}
	})

	t.Run("returns 503 when source is unreachable", func(t *testing.T) {
		fetcher := &mockPageFetcher{err: errors.New("dial tcp 1.2.3.4:443: i/o timeout")}
		router := setupTestRouterWithService(&mockPriceCache{}, fetcher, &mockRequestLog{})

		w := doGet(router, "/price")

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
		if strings.Contains(w.Body.String(), "dial tcp") {
			t.Error("response leaks internal error detail")
		}

		response := decode(t, w)
		if response["error"] != "Service temporarily unavailable" {
			t.Errorf("error = %v, want 'Service temporarily unavailable'", response["error"])
		}
		if response["message"] != "Could not retrieve current price" {
			t.Errorf("message = %v, want 'Could not retrieve current price'", response["message"])
		}
	})

	t.Run("returns 503 when page has no price", func(t *testing.T) {
		router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{text: "maintenance"}, &mockRequestLog{})

		w := doGet(router, "/price")

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("returns 503 when no price service is configured", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, nil))

		w := doGet(router, "/price")

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("rate limits per client", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit.PerIP = 2
		router := setupTestRouterWithConfig(cfg, &mockPriceCache{}, &mockPageFetcher{text: "₪9"}, &mockRequestLog{})

		codes := []int{}
		for i := 0; i < 3; i++ {
			codes = append(codes, doGet(router, "/price").Code)
		}

		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Errorf("codes = %v, want [200 200 429]", codes)
		}
	})
}

// TestStatsEndpoint tests the statistics endpoint
func TestStatsEndpoint(t *testing.T) {
	t.Run("reports requests and cache state", func(t *testing.T) {
		cache := &mockPriceCache{}
		router := setupTestRouterWithService(cache, &mockPageFetcher{text: "12 ₪"}, &mockRequestLog{})

		doGet(router, "/price")
		doGet(router, "/price")

		w := doGet(router, "/stats")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["requests_today"] != float64(2) {
			t.Errorf("requests_today = %v, want 2", response["requests_today"])
		}
		cacheInfo, ok := response["cache"].(map[string]interface{})
		if !ok {
			t.Fatalf("cache = %v, want object", response["cache"])
		}
		if cacheInfo["price"] != float64(12) || cacheInfo["valid"] != true || cacheInfo["age_seconds"] != float64(0) {
			t.Errorf("cache = %v, want price 12, valid, age 0", cacheInfo)
		}
	})

	t.Run("reports null cache when empty", func(t *testing.T) {
		router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, &mockRequestLog{})

		response := decode(t, doGet(router, "/stats"))
		if response["cache"] != nil {
			t.Errorf("cache = %v, want null", response["cache"])
		}
	})

	t.Run("returns 500 when request log fails", func(t *testing.T) {
		requests := &mockRequestLog{countErr: domain.ErrStoreUnavailable}
		router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, requests)

		w := doGet(router, "/stats")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if strings.Contains(w.Body.String(), domain.ErrStoreUnavailable.Error()) {
			t.Error("response leaks internal error detail")
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{text: "₪8"}, &mockRequestLog{})

	req, _ := http.NewRequest("GET", "/price", nil)
	req.Header.Set("Origin", "https://shortcuts.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shortcuts.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want https://shortcuts.example.com", got)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Errorf("%s header missing", RequestIDHeader)
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{}, &mockRequestLog{})

	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doGet(router, "/panic")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	for _, path := range []string{"/", "/health", "/price", "/stats"} {
		t.Run(path, func(t *testing.T) {
			router := setupTestRouterWithService(&mockPriceCache{}, &mockPageFetcher{text: "₪8"}, &mockRequestLog{})

			w := doGet(router, path)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
