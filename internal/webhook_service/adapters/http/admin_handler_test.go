package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapterhttp "github.com/hookroom/webhook-gateway/internal/webhook_service/adapters/http"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminRequest(t *testing.T, method, target, body, subject string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, subject))
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAdminRegisterCreatesWebhook(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("Upsert", mock.Anything, mock.MatchedBy(func(reg *domain.OutgoingRegistration) bool {
		return reg.RoomID == "!room:example.org" &&
			reg.UserID == "@alice:example.org" &&
			reg.WebhookURL == "https://example.com/hook" &&
			reg.Enabled
	})).Return(&domain.OutgoingRegistration{
		ID: 1, RoomID: "!room:example.org", UserID: "@alice:example.org",
		WebhookURL: "https://example.com/hook", Enabled: true,
	}, nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodPost, "/api/rooms/!room:example.org/webhooks",
		`{"url": "https://example.com/hook"}`, "@alice:example.org"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp adapterhttp.OutgoingWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "https://example.com/hook", resp.URL)
	assert.True(t, resp.Enabled)
	outgoing.AssertExpectations(t)
}

func TestAdminRegisterWithTemplateOverride(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("Upsert", mock.Anything, mock.MatchedBy(func(reg *domain.OutgoingRegistration) bool {
		return reg.Template != nil && strings.Contains(*reg.Template, "{body}")
	})).Return(&domain.OutgoingRegistration{ID: 2, Enabled: true}, nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodPost, "/api/rooms/!room:example.org/webhooks",
		`{"url": "https://example.com/hook", "template": {"text": "{body}"}}`, "@alice:example.org"))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminRegisterRejectsInvalidInput(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))

	cases := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"bad scheme", `{"url": "ftp://example.com/hook"}`},
		{"bad template", `{"url": "https://example.com/hook", "template": ["array"]}`},
		{"not json", `garbage`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, adminRequest(t, http.MethodPost, "/api/rooms/!room:example.org/webhooks",
				tc.body, "@alice:example.org"))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	outgoing.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	srv := newTestServer(t, new(MockIncomingRepository), new(MockOutgoingRepository), new(MockChatClient))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodGet, "/api/rooms/!room:example.org/webhooks", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := adminRequest(t, http.MethodGet, "/api/rooms/!room:example.org/webhooks", "", "")
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "@alice:example.org"))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListReturnsRoomWebhooks(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("ListByRoom", mock.Anything, "!room:example.org").Return([]*domain.OutgoingRegistration{
		{ID: 1, RoomID: "!room:example.org", UserID: "@alice:example.org", WebhookURL: "https://example.com/a", Enabled: true},
		{ID: 2, RoomID: "!room:example.org", UserID: "@bob:example.org", WebhookURL: "https://example.com/b", Enabled: false},
	}, nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodGet, "/api/rooms/!room:example.org/webhooks", "", "@alice:example.org"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []adapterhttp.OutgoingWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, int64(1), resp[0].ID)
	assert.False(t, resp[1].Enabled)
}

func TestAdminDisableBySelector(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("GetByID", mock.Anything, int64(5)).Return(&domain.OutgoingRegistration{
		ID: 5, RoomID: "!room:example.org", UserID: "@alice:example.org",
	}, nil)
	outgoing.On("SetEnabled", mock.Anything, []int64{5}, false).Return(nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodPost, "/api/rooms/!room:example.org/webhooks/disable?id=5",
		"", "@alice:example.org"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"affected": 1}`, rec.Body.String())
}

func TestAdminMutationOnForeignWebhookIsForbidden(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("GetByID", mock.Anything, int64(5)).Return(&domain.OutgoingRegistration{
		ID: 5, RoomID: "!room:example.org", UserID: "@bob:example.org",
	}, nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodDelete, "/api/rooms/!room:example.org/webhooks?id=5",
		"", "@alice:example.org"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	outgoing.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAdminMutationRejectsConflictingSelectors(t *testing.T) {
	srv := newTestServer(t, new(MockIncomingRepository), new(MockOutgoingRepository), new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodDelete,
		"/api/rooms/!room:example.org/webhooks?id=5&url=https://example.com/hook", "", "@alice:example.org"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUnregisterUnknownIsNotFound(t *testing.T) {
	outgoing := new(MockOutgoingRepository)
	outgoing.On("ListByRoomAndUser", mock.Anything, "!room:example.org", "@alice:example.org").
		Return([]*domain.OutgoingRegistration{}, nil)

	srv := newTestServer(t, new(MockIncomingRepository), outgoing, new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodDelete, "/api/rooms/!room:example.org/webhooks",
		"", "@alice:example.org"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCreateIncomingReturnsKeyOnce(t *testing.T) {
	incoming := new(MockIncomingRepository)
	id := uuid.New()
	incoming.On("Create", mock.Anything, mock.MatchedBy(func(reg *domain.IncomingRegistration) bool {
		return reg.RoomID == "!room:example.org" && reg.UserID == "@alice:example.org" && reg.APIKeyHash != ""
	})).Return(&domain.IncomingRegistration{
		ID: id, RoomID: "!room:example.org", UserID: "@alice:example.org", Enabled: true,
	}, nil)

	srv := newTestServer(t, incoming, new(MockOutgoingRepository), new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodPost, "/api/rooms/!room:example.org/inbound",
		"", "@alice:example.org"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp adapterhttp.IncomingWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id.String(), resp.ID)
	assert.NotEmpty(t, resp.APIKey)
	incoming.AssertExpectations(t)
}

func TestAdminDeleteIncoming(t *testing.T) {
	incoming := new(MockIncomingRepository)
	id := uuid.New()
	incoming.On("GetByID", mock.Anything, id).Return(&domain.IncomingRegistration{
		ID: id, RoomID: "!room:example.org", UserID: "@alice:example.org", Enabled: true,
	}, nil)
	incoming.On("Delete", mock.Anything, id, "@alice:example.org").Return(nil)

	srv := newTestServer(t, incoming, new(MockOutgoingRepository), new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodDelete, "/api/rooms/!room:example.org/inbound/"+id.String(),
		"", "@alice:example.org"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	incoming.AssertExpectations(t)
}

func TestAdminDeleteIncomingForeignOwnerIsForbidden(t *testing.T) {
	incoming := new(MockIncomingRepository)
	id := uuid.New()
	incoming.On("GetByID", mock.Anything, id).Return(&domain.IncomingRegistration{
		ID: id, RoomID: "!room:example.org", UserID: "@bob:example.org", Enabled: true,
	}, nil)

	srv := newTestServer(t, incoming, new(MockOutgoingRepository), new(MockChatClient))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminRequest(t, http.MethodDelete, "/api/rooms/!room:example.org/inbound/"+id.String(),
		"", "@alice:example.org"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	incoming.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
