package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

var testSecret = []byte("router-test-secret")

type envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// listEnvelope mirrors the listing wire shape: documents in data, their
// count in result.
type listEnvelope struct {
	Status     string                   `json:"status"`
	Message    string                   `json:"message"`
	Result     int                      `json:"result"`
	Data       []map[string]interface{} `json:"data"`
	TotalItems *int64                   `json:"totalItems"`
	TotalPages *int                     `json:"totalPages"`
	Page       *int                     `json:"page"`
	Limit      *int                     `json:"limit"`
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

type stubRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.Record
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{records: map[uuid.UUID]*model.Record{}}
}

func (r *stubRecordRepo) Create(_ context.Context, record *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.records[record.ID] = record.Clone()
	return nil
}

func (r *stubRecordRepo) FindByID(_ context.Context, resource string, id uuid.UUID) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok && rec.Resource == resource {
		return rec.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubRecordRepo) List(_ context.Context, resource string, _ query.Options) ([]*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Record, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Resource == resource {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *stubRecordRepo) Count(_ context.Context, resource string, _ query.Options) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Resource == resource {
			n++
		}
	}
	return n, nil
}

func (r *stubRecordRepo) UpdateData(_ context.Context, resource string, id uuid.UUID, set map[string]interface{}, entry *model.AuditEntry) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Resource != resource {
		return nil, repository.ErrNotFound
	}
	for k, v := range set {
		rec.Data[k] = v
	}
	if entry != nil {
		rec.UpdateHistory = append(rec.UpdateHistory, *entry)
	}
	return rec.Clone(), nil
}

func (r *stubRecordRepo) SetDeletion(_ context.Context, resource string, id uuid.UUID, deleted bool, by *uuid.UUID, entry *model.AuditEntry) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Resource != resource {
		return nil, repository.ErrNotFound
	}
	rec.IsDeleted = deleted
	rec.DeletedBy = by
	if entry != nil {
		rec.UpdateHistory = append(rec.UpdateHistory, *entry)
	}
	return rec.Clone(), nil
}

func (r *stubRecordRepo) Delete(_ context.Context, resource string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Resource != resource {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

type stubStorage struct {
	mu     sync.Mutex
	stored []string
}

func (s *stubStorage) Store(_ context.Context, _ []byte, originalName, category, recordID, subpath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := fmt.Sprintf("http://test/uploads/%s/%s/%s/%s", category, recordID, subpath, originalName)
	s.stored = append(s.stored, url)
	return url, nil
}

func (s *stubStorage) Delete(string) bool { return true }

func (s *stubStorage) DeleteFolder(string, string) bool { return true }

func newTestRouter(t *testing.T) (*gin.Engine, *stubUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newStubUserRepo()
	records := newStubRecordRepo()
	store := &stubStorage{}
	engine := crud.NewEngine(records, upload.NewResolver(store, 0), store, nil)
	authSvc := service.NewAuthService(users, testSecret)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	seed := func(username string, role model.UserRole) {
		if err := users.Create(context.Background(), &model.User{
			Username:     username,
			PasswordHash: string(hash),
			Role:         role,
		}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	seed("admin", model.UserRoleAdmin)
	seed("clerk", model.UserRoleUser)

	router := gin.New()
	root := router.Group("/api/v1")
	RegisterAuthRoutes(root, authSvc, testSecret)

	authed := root.Group("")
	authed.Use(middleware.JWTAuth(testSecret))
	for _, rt := range model.Resources {
		RegisterResourceRoutes(authed, rt, engine, nil)
	}
	return router, users
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeEnvelope(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, raw)
	}
	return env
}

func decodeListEnvelope(t *testing.T, raw []byte) listEnvelope {
	t.Helper()
	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode list envelope: %v\nbody: %s", err, raw)
	}
	return env
}

func loginAs(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	resp := performJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]any{"username": username, "password": "password123"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}
	env := decodeEnvelope(t, resp.Body.Bytes())
	token, _ := env.Data["token"].(string)
	if token == "" {
		t.Fatal("expected token in login response")
	}
	return token
}

func TestLoginSetsCookieAndReturnsToken(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := performJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]any{"username": "admin", "password": "password123"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	env := decodeEnvelope(t, resp.Body.Bytes())
	if env.Status != "success" {
		t.Fatalf("expected success status, got %q", env.Status)
	}
	if token, _ := env.Data["token"].(string); token == "" {
		t.Fatal("expected token in response data")
	}

	var cookie *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == accessTokenCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected access_token cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Fatal("expected httponly access cookie")
	}
}

func TestLoginWrongPasswordReturns401(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := performJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]any{"username": "admin", "password": "nope"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp.Body.Bytes())
	if env.Status != "fail" {
		t.Fatalf("expected fail status, got %q", env.Status)
	}
}

func TestResourceRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := performJSON(t, router, http.MethodGet, "/api/v1/projects", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestCreateProjectWithFileAndList(t *testing.T) {
	router, _ := newTestRouter(t)
	token := loginAs(t, router, "clerk")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"name":                  "كوبري النيل",
		"contracting_authority": "الهيئة الهندسية",
		"status":                "جاري التنفيذ",
	} {
		if err := writer.WriteField(field, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("site_receipt_file", "receipt.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	env := decodeEnvelope(t, resp.Body.Bytes())
	if env.Data["name"] != "كوبري النيل" {
		t.Fatalf("expected project name in response, got %v", env.Data["name"])
	}
	file, ok := env.Data["site_receipt_file"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected attached file ref, got %v", env.Data["site_receipt_file"])
	}
	if url, _ := file["fileUrl"].(string); !strings.Contains(url, "site_receipt_file") {
		t.Fatalf("unexpected file url %v", file["fileUrl"])
	}

	listResp := performJSON(t, router, http.MethodGet, "/api/v1/projects?page=1&limit=10", nil, token)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", listResp.Code)
	}
	listEnv := decodeListEnvelope(t, listResp.Body.Bytes())
	if listEnv.Message != "تم جلب جميع البيانات بنجاح" {
		t.Fatalf("unexpected list message %q", listEnv.Message)
	}
	if len(listEnv.Data) != 1 || listEnv.Result != 1 {
		t.Fatalf("expected one project in data with count 1, got %d/%d", len(listEnv.Data), listEnv.Result)
	}
	if listEnv.Data[0]["name"] != "كوبري النيل" {
		t.Fatalf("expected project document in data, got %v", listEnv.Data[0])
	}
	if listEnv.TotalItems == nil || *listEnv.TotalItems != 1 {
		t.Fatalf("expected totalItems 1, got %v", listEnv.TotalItems)
	}
	if listEnv.Page == nil || *listEnv.Page != 1 {
		t.Fatalf("expected page metadata, got %v", listEnv.Page)
	}
}

func TestHardDeleteRequiresAdmin(t *testing.T) {
	router, _ := newTestRouter(t)
	clerkToken := loginAs(t, router, "clerk")
	adminToken := loginAs(t, router, "admin")

	created := performJSON(t, router, http.MethodPost, "/api/v1/companies",
		map[string]any{"company_name": "شركة المقاولون"}, clerkToken)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", created.Code, created.Body.String())
	}
	env := decodeEnvelope(t, created.Body.Bytes())
	id, _ := env.Data["id"].(string)
	if id == "" {
		t.Fatal("expected created company id")
	}

	denied := performJSON(t, router, http.MethodDelete, "/api/v1/companies/"+id+"/hard", nil, clerkToken)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for non admin, got %d", denied.Code)
	}

	allowed := performJSON(t, router, http.MethodDelete, "/api/v1/companies/"+id+"/hard", nil, adminToken)
	if allowed.Code != http.StatusOK {
		t.Fatalf("expected status 200 for admin, got %d: %s", allowed.Code, allowed.Body.String())
	}

	missing := performJSON(t, router, http.MethodGet, "/api/v1/companies/"+id, nil, adminToken)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after hard delete, got %d", missing.Code)
	}
}
