package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/bazaarly/bazaarly-backend/internal/auth"
	"github.com/bazaarly/bazaarly-backend/internal/users"
)

type stubAuthService struct {
	auth.Service

	loginResp    *auth.LoginResponse
	loginErr     error
	registered   *auth.RegisterRequest
	registerUser *users.UserDTO
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginResp, s.loginErr
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest, avatar auth.AvatarUpload) (*users.UserDTO, error) {
	s.registered = &req
	if avatar.Body != nil {
		io.Copy(io.Discard, avatar.Body)
	}
	return s.registerUser, nil
}

func TestAuthLoginSuccess(t *testing.T) {
	user := &users.UserDTO{ID: uuid.New(), Username: "ana", Email: "ana@example.com"}
	svc := &stubAuthService{loginResp: &auth.LoginResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
		User:      user,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"identifier":"ana","password":"sup3rsecret"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			AccessToken  string         `json:"access_token"`
			RefreshToken string         `json:"refresh_token"`
			User         *users.UserDTO `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "access" || envelope.Data.RefreshToken != "refresh" {
		t.Fatalf("unexpected tokens %+v", envelope.Data)
	}
	if envelope.Data.User == nil || envelope.Data.User.Username != "ana" {
		t.Fatalf("expected user in payload, got %+v", envelope.Data.User)
	}
}

func TestAuthLoginRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"identifier":"ana"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func multipartSignup(t *testing.T, fields map[string]string, withAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if withAvatar {
		part, err := writer.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		part.Write([]byte("png-bytes"))
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestAuthRegisterMultipart(t *testing.T) {
	svc := &stubAuthService{registerUser: &users.UserDTO{ID: uuid.New(), Username: "nova"}}

	body, contentType := multipartSignup(t, map[string]string{
		"username":       "nova",
		"email":          "nova@example.com",
		"full_name":      "Nova Reyes",
		"password":       "sup3rsecret",
		"role":           "seller",
		"address_street": "Rua das Flores 1",
		"address_city":   "Porto",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.registered == nil {
		t.Fatal("expected register call")
	}
	if svc.registered.Role != "seller" || svc.registered.Address.City != "Porto" {
		t.Fatalf("unexpected register payload %+v", svc.registered)
	}
}

func TestAuthRegisterRequiresAvatar(t *testing.T) {
	body, contentType := multipartSignup(t, map[string]string{
		"username":  "nova",
		"email":     "nova@example.com",
		"full_name": "Nova Reyes",
		"password":  "sup3rsecret",
	}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	AuthRegister(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
