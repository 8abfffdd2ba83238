package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/eventplanner/internal/calendar"
	"github.com/example/eventplanner/internal/clock"
	"github.com/example/eventplanner/internal/metrics"
	"github.com/example/eventplanner/internal/notify"
	"github.com/example/eventplanner/internal/testfixtures"
	"github.com/example/eventplanner/internal/wiring"
)

type testServer struct {
	env     *testfixtures.Environment
	hub     *notify.Hub
	metrics *metrics.Metrics
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	env := testfixtures.NewEnvironment(t)
	logger := testfixtures.DiscardLogger()
	m := metrics.New()
	hub := notify.NewHub(logger, m)
	events := env.Factory.NewEventService(
		wiring.NewEventStoreAdapter(env.Events),
		env.Scheduler,
		notify.NewFanout(logger, env.Sink, hub),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := NewRouter(RouterConfig{
		Auth:      NewAuthHandler(env.Auth, logger),
		Users:     NewUserHandler(env.Users, logger),
		Events:    NewEventHandler(events, calendar.Options{Now: clock.NowFunc(env.Clock)}, logger),
		Reminders: NewReminderHandler(ctx, hub, logger),
		Metrics:   m.Handler(),
		Session:   RequireSession(env.Auth, logger),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(logger),
		},
	})
	return &testServer{env: env, hub: hub, metrics: m, handler: handler}
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signupAndLogin(t *testing.T, username, password string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/signup", "", credentialsRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/login", "", credentialsRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []eventDTO {
	t.Helper()
	var events []eventDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	return events
}

func TestSignup(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/signup", "", credentialsRequest{Username: "testuser", Password: "password"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User created successfully"}`, rec.Body.String())

	t.Run("duplicate username conflicts", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/signup", "", credentialsRequest{Username: "testuser", Password: "other"})
		require.Equal(t, http.StatusConflict, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "USER_EXISTS", resp.ErrorCode)
	})

	t.Run("missing password is a validation error", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/signup", "", credentialsRequest{Username: "someone"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors, "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/signup", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/signup", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})
}

func TestLoginAndLogout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/signup", "", credentialsRequest{Username: "testuser", Password: "password"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/login", "", credentialsRequest{Username: "testuser", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/login", "", credentialsRequest{Username: "testuser", Password: "password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, resp.Token, rec.Header().Get("X-Session-Token"))
	expiresAt, err := time.Parse(time.RFC3339Nano, resp.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(testfixtures.ReferenceTime().Add(24*time.Hour)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)

	// The cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	srv.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	var user userResponse
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &user))
	assert.Equal(t, "testuser", user.Username)

	rec = srv.do(t, http.MethodPost, "/logout", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	rec = srv.do(t, http.MethodGet, "/events", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEvents_RequireSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	for _, target := range []string{"/events", "/events.ics", "/me", "/reminders/stream"} {
		rec := srv.do(t, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
	rec := srv.do(t, http.MethodGet, "/events", "unknown-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEvents_ReminderScenario(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "testuser", "password")

	rec := srv.do(t, http.MethodPost, "/events", token, eventRequest{
		Name:        "Meeting",
		Description: "Team meeting",
		Date:        "2025-04-01",
		Time:        "10:00",
		Category:    "Meetings",
		Reminder:    true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created createEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Event created successfully", created.Message)
	assert.Equal(t, int64(1), created.Event.ID)
	assert.Equal(t, "armed", created.Event.ReminderStatus)
	assert.Equal(t, "2025-04-01T09:55:00Z", created.Event.ReminderAt)

	pending := srv.env.Scheduler.Pending()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].FireAt.Equal(time.Date(2025, time.April, 1, 9, 55, 0, 0, time.UTC)))

	rec = srv.do(t, http.MethodGet, "/events?sortBy=date", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeEvents(t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "Meeting", events[0].Name)
	assert.Equal(t, "Meetings", events[0].Category)
	assert.True(t, events[0].Reminder)
}

func TestEvents_ValidationAndOwnership(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	alice := srv.signupAndLogin(t, "alice", "password")
	bob := srv.signupAndLogin(t, "bob", "password")

	rec := srv.do(t, http.MethodPost, "/events", alice, eventRequest{Name: "Bad", Date: "2025-13-01", Time: "10:00"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.ErrorCode)

	rec = srv.do(t, http.MethodPost, "/events", alice, "[]")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/events", alice, eventRequest{Name: "Soon", Date: "2025-03-31", Time: "12:03", Reminder: true})
	require.Equal(t, http.StatusOK, rec.Code)
	var soon createEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &soon))
	assert.Equal(t, "skipped", soon.Event.ReminderStatus)
	assert.Empty(t, soon.Event.ReminderAt)
	assert.Empty(t, srv.env.Scheduler.Pending())

	rec = srv.do(t, http.MethodGet, "/events", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeEvents(t, rec))
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestEvents_SortByCategory(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "testuser", "password")

	for _, input := range []eventRequest{
		{Name: "Lunch", Date: "2025-04-02", Time: "12:00", Category: "Social"},
		{Name: "Standup", Date: "2025-04-01", Time: "09:00", Category: "Meetings"},
		{Name: "Review", Date: "2025-04-03", Time: "15:00", Category: "Meetings"},
	} {
		rec := srv.do(t, http.MethodPost, "/events", token, input)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := srv.do(t, http.MethodGet, "/events?sortBy=category", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeEvents(t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"Standup", "Review", "Lunch"}, []string{events[0].Name, events[1].Name, events[2].Name})

	rec = srv.do(t, http.MethodGet, "/events", token, nil)
	events = decodeEvents(t, rec)
	assert.Equal(t, []string{"Lunch", "Standup", "Review"}, []string{events[0].Name, events[1].Name, events[2].Name})
}

func TestEvents_Export(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "testuser", "password")

	rec := srv.do(t, http.MethodPost, "/events", token, eventRequest{
		Name: "Meeting", Date: "2025-04-01", Time: "10:00", Category: "Meetings", Reminder: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/events.ics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calendar.ContentType, rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Meeting")
	assert.Contains(t, body, "BEGIN:VALARM")
	assert.Contains(t, body, "X-WR-CALNAME:testuser events")
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReminderStream_DeliversOwnNotifications(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "testuser", "password")

	rec := srv.do(t, http.MethodPost, "/events", token, eventRequest{
		Name: "Meeting", Date: "2025-04-01", Time: "10:00", Category: "Meetings", Reminder: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created createEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	httpSrv := httptest.NewServer(srv.handler)
	t.Cleanup(httpSrv.Close)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/reminders/stream"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	principal, err := srv.env.Auth.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.hub.Subscribers(principal.UserID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, srv.env.FireDue(time.Date(2025, time.April, 1, 9, 55, 0, 0, time.UTC)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n notify.Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, created.Event.ID, n.EventID)
	assert.Equal(t, "Reminder: Event 'Meeting' is starting soon!", n.Message)
}
