package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/storage/memory"
)

type invokeFunc func(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor) error

func (f invokeFunc) Invoke(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor) error {
	return f(ctx, ac, d)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Options{Timeout: 5 * time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var body struct {
		Error domain.APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestServer_MountPassesActionContext(t *testing.T) {
	s := newTestServer(t)
	d := &domain.ActionDescriptor{Name: "greet", Method: http.MethodGet, Path: "/hello/{name}"}

	var got *domain.ActionContext
	err := s.Mount([]*domain.ActionDescriptor{d}, invokeFunc(func(ctx context.Context, ac *domain.ActionContext, desc *domain.ActionDescriptor) error {
		got = ac
		if desc != d {
			t.Errorf("descriptor = %p, want %p", desc, d)
		}
		ac.Response.WriteHeader(http.StatusAccepted)
		return nil
	}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	rec := serve(s, http.MethodGet, "/hello/alice?lang=fr")
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if got == nil {
		t.Fatal("invoker not called")
	}
	if got.RouteValues["name"] != "alice" {
		t.Errorf("RouteValues = %v", got.RouteValues)
	}
	if got.RequestID == "" || got.RequestID != rec.Header().Get(RequestIDHeader) {
		t.Errorf("RequestID = %q, header %q", got.RequestID, rec.Header().Get(RequestIDHeader))
	}
	if got.Descriptor != d {
		t.Error("Descriptor not attached")
	}

	if rec := serve(s, http.MethodPost, "/hello/alice"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_InvokerErrors(t *testing.T) {
	tests := []struct {
		name       string
		invoke     invokeFunc
		wantStatus int
		wantType   domain.ErrorType
	}{
		{
			name: "fault before writing",
			invoke: func(context.Context, *domain.ActionContext, *domain.ActionDescriptor) error {
				return errors.New("database exploded")
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   domain.ErrorTypeServer,
		},
		{
			name: "api error fault",
			invoke: func(context.Context, *domain.ActionContext, *domain.ActionDescriptor) error {
				return fmt.Errorf("action: %w", domain.ErrConflict("greeting exists"))
			},
			wantStatus: http.StatusConflict,
			wantType:   domain.ErrorTypeConflict,
		},
		{
			name: "fault after writing",
			invoke: func(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor) error {
				ac.Response.WriteHeader(http.StatusOK)
				return errors.New("write interrupted")
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			d := &domain.ActionDescriptor{Name: "greet", Method: http.MethodGet, Path: "/greet"}
			if err := s.Mount([]*domain.ActionDescriptor{d}, tt.invoke); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}

			rec := serve(s, http.MethodGet, "/greet")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantType == "" {
				return
			}
			apiErr := decodeError(t, rec)
			if apiErr.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", apiErr.Type, tt.wantType)
			}
			if strings.Contains(rec.Body.String(), "database exploded") {
				t.Error("internal error message leaked to the client")
			}
		})
	}
}

func TestServer_MountValidation(t *testing.T) {
	s := newTestServer(t)
	noop := invokeFunc(func(context.Context, *domain.ActionContext, *domain.ActionDescriptor) error { return nil })

	if err := s.Mount(nil, nil); err == nil {
		t.Error("expected error for nil invoker")
	}
	if err := s.Mount([]*domain.ActionDescriptor{{Name: "bad"}}, noop); err == nil {
		t.Error("expected error for descriptor without method and path")
	}
	if err := s.Mount([]*domain.ActionDescriptor{nil}, noop); err != nil {
		t.Errorf("nil descriptor should be skipped, got %v", err)
	}
}

func TestServer_Healthz(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "actionpipe_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := newTestServer(t)
	s.MountMetrics("", reg)

	rec := serve(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "actionpipe_test_total 1") {
		t.Errorf("metrics output missing counter: %s", rec.Body.String())
	}
}

func TestServer_Admin(t *testing.T) {
	store := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, rec := range []*domain.InvocationRecord{
		{ID: "inv-1", Action: "greet", Status: 200},
		{ID: "inv-2", Action: "create", Status: 400},
		{ID: "inv-3", Action: "greet", Status: 200},
	} {
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.RecordInvocation(context.Background(), rec); err != nil {
			t.Fatalf("RecordInvocation() error = %v", err)
		}
	}

	s := newTestServer(t)
	s.MountAdmin(store)

	t.Run("list filtered", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/admin/invocations?action=greet&limit=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var list invocationList
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if list.Object != "list" || len(list.Data) != 1 || list.Data[0].ID != "inv-3" {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("list empty", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/admin/invocations?status=503")
		if !strings.Contains(rec.Body.String(), `"data":[]`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("bad parameter", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/admin/invocations?limit=ten")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if apiErr := decodeError(t, rec); apiErr.Field != "limit" {
			t.Errorf("field = %q, want limit", apiErr.Field)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/admin/invocations/inv-2")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got domain.InvocationRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Action != "create" || got.Status != 400 {
			t.Errorf("record = %+v", got)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/admin/invocations/nope")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
