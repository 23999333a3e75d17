package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testRESTClient(t *testing.T, handler http.Handler) (*restClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := newRESTClient(server.URL, "pub", "sec", 0, 5*time.Second, testLogger())
	client.retryBase = time.Millisecond
	client.retryMax = 5 * time.Millisecond
	return client, server
}

func TestRequestSuccess(t *testing.T) {
	var gotHeader, gotSignature atomic.Value
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader.Store(r.Header.Get(apiKeyHeader))
		gotSignature.Store(r.URL.Query().Get("signature"))
		if r.URL.Query().Get("recvWindow") != "5000" {
			t.Errorf("Expected recvWindow 5000, got %q", r.URL.Query().Get("recvWindow"))
		}
		if r.URL.Query().Get("timestamp") == "" {
			t.Error("Expected timestamp to be injected")
		}
		w.Write([]byte(`{"ok":true}`))
	}))

	body, err := client.request(context.Background(), "GET", "/fapi/v1/time", map[string]any{})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body %q", body)
	}
	if gotHeader.Load() != "pub" {
		t.Errorf("Expected API key header, got %v", gotHeader.Load())
	}
	if sig, _ := gotSignature.Load().(string); len(sig) != 64 {
		t.Errorf("Expected 64 hex char signature, got %q", gotSignature.Load())
	}
	if client.ConsecutiveFailures() != 0 {
		t.Errorf("Expected zero failures, got %d", client.ConsecutiveFailures())
	}
}

func TestRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/time", map[string]any{})
	if err == nil {
		t.Fatal("Expected error after retry budget")
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Expected ServerError, got %T: %v", err, err)
	}
	if serverErr.Attempts != maxRequestAttempts {
		t.Errorf("Expected %d attempts reported, got %d", maxRequestAttempts, serverErr.Attempts)
	}
	if calls.Load() != maxRequestAttempts {
		t.Errorf("Expected exactly %d requests, got %d", maxRequestAttempts, calls.Load())
	}
}

func TestRequestRecoversAfterServerError(t *testing.T) {
	var calls atomic.Int64
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/time", map[string]any{})
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", calls.Load())
	}
	if client.ConsecutiveFailures() != 0 {
		t.Errorf("Expected failure counter reset, got %d", client.ConsecutiveFailures())
	}
}

func TestRequestRateLimitNotRetried(t *testing.T) {
	var calls atomic.Int64
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/account", map[string]any{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("429 must never retry, got %d requests", calls.Load())
	}
}

func TestRequestBanLatches(t *testing.T) {
	var calls atomic.Int64
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTeapot)
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/account", map[string]any{})
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("Expected ErrBanned, got %v", err)
	}

	// Banned state must suppress any further request entirely.
	_, err = client.request(context.Background(), "GET", "/fapi/v1/time", map[string]any{})
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("Expected ErrBanned on subsequent call, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Banned client must not hit the network, got %d requests", calls.Load())
	}
}

func TestRequestClientErrorCarriesVenueMessage(t *testing.T) {
	var calls atomic.Int64
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1102,"msg":"Mandatory parameter was not sent"}`))
	}))

	_, err := client.request(context.Background(), "POST", "/fapi/v1/order", map[string]any{})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %T: %v", err, err)
	}
	if reqErr.Code != -1102 || reqErr.Msg != "Mandatory parameter was not sent" {
		t.Errorf("Unexpected venue error: %+v", reqErr)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not retry, got %d requests", calls.Load())
	}
}

func TestRequestClientErrorLegacyMessageField(t *testing.T) {
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"legacy error shape"}`))
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/account", map[string]any{})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %v", err)
	}
	if reqErr.Msg != "legacy error shape" {
		t.Errorf("Expected message fallback, got %q", reqErr.Msg)
	}
}

func TestRequestEncodingError(t *testing.T) {
	client, _ := testRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Malformed parameters must not reach the wire")
	}))

	_, err := client.request(context.Background(), "GET", "/fapi/v1/time", map[string]any{
		"bad": []string{"not", "scalar"},
	})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("Expected ErrEncoding, got %v", err)
	}
}
