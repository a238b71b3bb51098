package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/angelcrypto/referral-ledger/pkg/app/errors"
	"github.com/angelcrypto/referral-ledger/pkg/referral"
)

// stubService returns canned responses for HTTP layer tests.
type stubService struct {
	registerErr error
	welcomeErr  error
	linkErr     error
}

func (s *stubService) RegisterReferral(_ context.Context, _ *referral.RegisterReferralRequest) (*referral.RegisterReferralResponse, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &referral.RegisterReferralResponse{
		Success: true,
		Inviter: &referral.UserView{ID: 1, InvitesCount: 1},
		NewUser: &referral.UserView{ID: 2},
	}, nil
}

func (s *stubService) GrantWelcomeBonus(_ context.Context, _ int64) (*referral.WelcomeBonusResponse, error) {
	if s.welcomeErr != nil {
		return nil, s.welcomeErr
	}
	return &referral.WelcomeBonusResponse{Success: true, RecordID: 10, Balance: "100"}, nil
}

func (s *stubService) GenerateInviteLink(_ context.Context, _ string) (*referral.InviteLinkResponse, error) {
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	return &referral.InviteLinkResponse{Success: true, Link: "https://app.example.com/invite?invite=1"}, nil
}

func (s *stubService) Reconcile(_ context.Context, _ int64) (*referral.ReconcileResponse, error) {
	return &referral.ReconcileResponse{Success: true, Issues: []referral.Issue{}}, nil
}

func (s *stubService) SettlePendingInvitations(_ context.Context, _ int) (int, error) {
	return 0, nil
}

func newTestRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return r
}

func TestHTTP_RegisterReferral(t *testing.T) {
	router := newTestRouter(&stubService{})

	body := `{"new_user_wallet":"0x1111111111111111111111111111111111111111","inviter_wallet":"0x2222222222222222222222222222222222222222"}`
	req := httptest.NewRequest(http.MethodPost, "/referrals", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp referral.RegisterReferralResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.Inviter.ID != 1 || resp.NewUser.ID != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHTTP_RegisterReferral_ValidationRejects(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"malformed address", `{"new_user_wallet":"nope","inviter_wallet":"0x2222222222222222222222222222222222222222"}`},
		{"missing inviter", `{"new_user_wallet":"0x1111111111111111111111111111111111111111"}`},
		{"invalid json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/referrals", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHTTP_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		svc        *stubService
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "conflict maps to 409",
			svc:        &stubService{registerErr: apperrors.ConflictError(ErrAlreadyReferred, "user already referred")},
			method:     http.MethodPost,
			path:       "/referrals",
			body:       `{"new_user_wallet":"0x1111111111111111111111111111111111111111","inviter_wallet":"0x2222222222222222222222222222222222222222"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not found maps to 404",
			svc:        &stubService{welcomeErr: apperrors.ResourceNotFoundError(ErrUserNotFound, "user not found")},
			method:     http.MethodPost,
			path:       "/rewards/welcome",
			body:       `{"user_id":5}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "dependency failure maps to 502",
			svc:        &stubService{linkErr: apperrors.DependencyError(ErrStoreUnavailable, "store unavailable")},
			method:     http.MethodGet,
			path:       "/invite-link?wallet=0x1111111111111111111111111111111111111111",
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "timeout maps to 504",
			svc:        &stubService{linkErr: apperrors.TimeoutError(ErrStoreUnavailable, "store timed out")},
			method:     http.MethodGet,
			path:       "/invite-link?wallet=0x1111111111111111111111111111111111111111",
			wantStatus: http.StatusGatewayTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(tc.svc)

			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got %d want %d, body: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}

			var errResp struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if errResp.Success {
				t.Fatalf("expected success=false in error body")
			}
			if errResp.Error == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestHTTP_Reconcile(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/diagnostics/reconcile/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp referral.ReconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Issues) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/diagnostics/reconcile/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/invite-link", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing wallet param, got %d", rec.Code)
	}
}
