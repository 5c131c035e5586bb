package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
)

func TestRequireIdentityParsesHeaders(t *testing.T) {
	var got Actor
	handler := RequireIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		got = actor
	}))

	actorID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", actorID.String())
	req.Header.Set("X-Actor-Role", "manager")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.ID != actorID || got.Role != enums.MemberRoleManager {
		t.Fatalf("unexpected actor %+v", got)
	}
}

func TestRequireIdentityRejectsMissingHeaders(t *testing.T) {
	handler := RequireIdentity(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name string
		id   string
		role string
	}{
		{"no headers", "", ""},
		{"bad id", "not-a-uuid", "manager"},
		{"bad role", uuid.NewString(), "superuser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != "" {
				req.Header.Set("X-Actor-Id", tc.id)
			}
			if tc.role != "" {
				req.Header.Set("X-Actor-Role", tc.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.MemberRoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithActor(req.Context(), Actor{ID: uuid.New(), Role: enums.MemberRoleOperator}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithActor(req.Context(), Actor{ID: uuid.New(), Role: enums.MemberRoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", rec.Code)
	}
}
