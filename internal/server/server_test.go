package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/manager"
	"github.com/prith27/lra/internal/sandbox"
	"github.com/prith27/lra/internal/validator"
)

// fakeService implements SandboxService with canned behavior.
type fakeService struct {
	createErr  error
	executeErr error
	deleteErr  error
	getErr     error
	info       manager.Info
	result     kernel.Result
	lastCode   string
}

func (f *fakeService) Create(_ context.Context, lang string) (manager.Info, error) {
	if f.createErr != nil {
		return manager.Info{}, f.createErr
	}
	return f.info, nil
}

func (f *fakeService) List(_ context.Context) []manager.Info {
	return []manager.Info{f.info}
}

func (f *fakeService) Get(_ context.Context, id string) (manager.Info, error) {
	if f.getErr != nil {
		return manager.Info{}, f.getErr
	}
	return f.info, nil
}

func (f *fakeService) Execute(_ context.Context, id, code string) (kernel.Result, error) {
	f.lastCode = code
	if f.executeErr != nil {
		return kernel.Result{}, f.executeErr
	}
	return f.result, nil
}

func (f *fakeService) Delete(_ context.Context, id string) error {
	return f.deleteErr
}

func newTestServer(cfg Config, svc SandboxService) *Server {
	return New(cfg, svc, zap.NewNop())
}

func do(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateSandbox(t *testing.T) {
	svc := &fakeService{info: manager.Info{ID: "a1b2c3d4", Status: sandbox.StatusRunning, Port: 49321}}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes", `{"lang":"python"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"a1b2c3d4","status":"running","port":49321}`, rec.Body.String())
}

func TestCreateSandboxInvalidLang(t *testing.T) {
	svc := &fakeService{createErr: manager.ErrUnsupportedLanguage}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes", `{"lang":"ruby"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSandboxRuntimeDown(t *testing.T) {
	svc := &fakeService{createErr: manager.ErrRuntimeUnavailable}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes", `{"lang":"python"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListSandboxes(t *testing.T) {
	svc := &fakeService{info: manager.Info{ID: "a1b2c3d4", Status: sandbox.StatusRunning, Port: 49321}}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodGet, "/sandboxes", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"a1b2c3d4","status":"running","port":49321}]`, rec.Body.String())
}

func TestGetSandboxNotFound(t *testing.T) {
	svc := &fakeService{getErr: manager.ErrNotFound}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodGet, "/sandboxes/nope1234", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteReturnsKernelResult(t *testing.T) {
	svc := &fakeService{result: kernel.Result{Type: "result", Stdout: "4\n", Success: true}}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes/a1b2c3d4/execute", `{"code":"print(2+2)"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "print(2+2)", svc.lastCode)
	assert.JSONEq(t, `{"type":"result","stdout":"4\n","stderr":"","success":true}`, rec.Body.String())
}

func TestExecuteRejectedCode(t *testing.T) {
	svc := &fakeService{executeErr: &validator.RejectionError{Screen: "pattern", Reason: "import of os module"}}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes/a1b2c3d4/execute", `{"code":"import os"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_REJECTED")
}

func TestExecuteUnreachableSandbox(t *testing.T) {
	svc := &fakeService{executeErr: manager.ErrSandboxUnreachable}
	s := newTestServer(Config{}, svc)

	rec := do(s, http.MethodPost, "/sandboxes/a1b2c3d4/execute", `{"code":"print(1)"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SANDBOX_UNREACHABLE")
}

func TestDeleteSandbox(t *testing.T) {
	s := newTestServer(Config{}, &fakeService{})

	rec := do(s, http.MethodDelete, "/sandboxes/a1b2c3d4", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rec.Body.String())
}

func TestDeleteSandboxNotFound(t *testing.T) {
	s := newTestServer(Config{}, &fakeService{deleteErr: manager.ErrNotFound})

	rec := do(s, http.MethodDelete, "/sandboxes/nope1234", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(Config{}, &fakeService{})

	rec := do(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
