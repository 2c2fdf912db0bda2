package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/ledger"
	authlib "example.com/fitchallenge/internal/platform/auth"
	"example.com/fitchallenge/internal/scoring"
)

var (
	fixedNow = time.Date(2026, time.October, 21, 10, 0, 0, 0, time.UTC)
	authCfg  = auth.Config{Secret: "test-secret", Issuer: "fitchallenge-test"}
)

type testServer struct {
	handler http.Handler
	service *challenge.Service
}

func newTestServer(t *testing.T, mode scoring.Mode) *testServer {
	t.Helper()
	now := func() time.Time { return fixedNow }
	store := ledger.NewStore(ledger.WithClock(now), ledger.WithLogger(zaptest.NewLogger(t)))
	scorer, err := scoring.New(mode, scoring.DefaultRules(), store)
	require.NoError(t, err)
	svc := challenge.NewService(store, scorer, challenge.WithClock(now), challenge.WithLogger(zaptest.NewLogger(t)))

	for _, in := range []challenge.CreateParticipantInput{
		{ID: "p1", EmployeeID: "E-1", Name: "Asha", Team: "Ops", Email: "asha@example.com"},
		{ID: "p2", EmployeeID: "E-2", Name: "Bruno", Team: "Finance", Email: "bruno@example.com"},
	} {
		_, err := svc.CreateParticipant(context.Background(), in)
		require.NoError(t, err)
	}

	mux := http.NewServeMux()
	NewHandler(svc, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return &testServer{handler: auth.NewMiddleware(authCfg).Wrap(mux), service: svc}
}

func participantToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := authlib.Sign(authCfg, subject, "participant", []string{
		auth.ScopeActivitiesWrite, auth.ScopeActivitiesRead, auth.ScopeReportsRead,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := authlib.Sign(authCfg, "admin-1", auth.RoleAdmin, nil, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rr)["type"]
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)

	rr := srv.do(t, http.MethodGet, "/v1/activities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", errorType(t, rr))

	rr = srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSubmitActivityDefaultsToTokenSubjectAndReplays(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	token := participantToken(t, "p1")

	body := SubmitActivityRequest{Date: "2026-10-20", WorkoutType: "Gym Training", DurationMinutes: 45, Details: "<b>legs</b>", StepsCount: 10000}
	rr := srv.do(t, http.MethodPost, "/v1/activities", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[SubmitActivityResponse](t, rr)
	assert.Equal(t, "p1", resp.Activity.ParticipantID)
	assert.Equal(t, 350, resp.Activity.Points)
	assert.Equal(t, 350, resp.Total)
	assert.Equal(t, "legs", resp.Activity.Details)
	assert.Equal(t, "2026-10-20", resp.Activity.Date)
	assert.False(t, resp.Replay)

	rr = srv.do(t, http.MethodPost, "/v1/activities", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rr.Code)
	replay := decode[SubmitActivityResponse](t, rr)
	assert.True(t, replay.Replay)
	assert.Equal(t, resp.Activity.ActivityID, replay.Activity.ActivityID)
	assert.Equal(t, 350, replay.Total)
}

func TestSubmitActivityRejections(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	token := participantToken(t, "p1")

	cases := []struct {
		name   string
		body   SubmitActivityRequest
		status int
		code   string
	}{
		{"other participant", SubmitActivityRequest{ParticipantID: "p2", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x"}, http.StatusForbidden, "forbidden"},
		{"bad date", SubmitActivityRequest{Date: "21-10-2026", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"future date", SubmitActivityRequest{Date: "2026-10-22", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"missing details", SubmitActivityRequest{WorkoutType: "Gym Training", DurationMinutes: 30}, http.StatusBadRequest, "validation_failed"},
		{"unknown workout", SubmitActivityRequest{WorkoutType: "Chess Boxing", DurationMinutes: 30, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"category under catalog", SubmitActivityRequest{CategoryID: "c-1", DurationMinutes: 30, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"nothing to score", SubmitActivityRequest{DurationMinutes: 30, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"duration overflow", SubmitActivityRequest{WorkoutType: "Gym Training", DurationMinutes: 1 << 40, Details: "x"}, http.StatusBadRequest, "validation_failed"},
		{"too many steps", SubmitActivityRequest{WorkoutType: "Steps Only", StepsCount: 1 << 40}, http.StatusBadRequest, "validation_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := srv.do(t, http.MethodPost, "/v1/activities", token, tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Equal(t, tc.code, errorType(t, rr))
		})
	}

	p, err := srv.service.GetParticipant(context.Background(), "p1")
	require.NoError(t, err)
	assert.Zero(t, p.TotalPoints)
}

func TestSubmitActivityForUnknownParticipantIsNotFound(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	rr := srv.do(t, http.MethodPost, "/v1/activities", adminToken(t), SubmitActivityRequest{
		ParticipantID: "ghost", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorType(t, rr))
}

func TestListActivitiesByPeriodAndPage(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	token := participantToken(t, "p1")
	for _, date := range []string{"2026-10-19", "2026-10-20", "2026-10-21"} {
		rr := srv.do(t, http.MethodPost, "/v1/activities", token, SubmitActivityRequest{Date: date, WorkoutType: "Simple Cardio", DurationMinutes: 20, Details: "walk"})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := srv.do(t, http.MethodGet, "/v1/activities?period=today", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	today := decode[ListActivitiesResponse](t, rr)
	require.Len(t, today.Items, 1)
	assert.Equal(t, "2026-10-21", today.Range.Start)

	rr = srv.do(t, http.MethodGet, "/v1/activities?start=2026-10-19&end=2026-10-20", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[ListActivitiesResponse](t, rr).Items, 2)

	rr = srv.do(t, http.MethodGet, "/v1/activities?start=2026-10-21&end=2026-10-19", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var dates []string
	path := "/v1/activities?participant_id=p1&limit=2"
	for i := 0; i < 3 && path != ""; i++ {
		rr = srv.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		page := decode[ListActivitiesResponse](t, rr)
		for _, item := range page.Items {
			dates = append(dates, item.Date)
		}
		path = ""
		if page.NextCursor != "" {
			path = "/v1/activities?participant_id=p1&limit=2&cursor=" + page.NextCursor
		}
	}
	assert.Equal(t, []string{"2026-10-21", "2026-10-20", "2026-10-19"}, dates)

	rr = srv.do(t, http.MethodGet, "/v1/activities?participant_id=p1&cursor=garbage!", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportSummaryAndLeaderboard(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	p1, p2 := participantToken(t, "p1"), participantToken(t, "p2")

	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/v1/activities", p1, SubmitActivityRequest{WorkoutType: "Gym Training", DurationMinutes: 40, Details: "lift"}).Code)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/v1/activities", p2, SubmitActivityRequest{WorkoutType: "Simple Cardio", DurationMinutes: 20, Details: "walk"}).Code)

	rr := srv.do(t, http.MethodGet, "/v1/reports/summary?period=week", p1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var report struct {
		Totals struct {
			Minutes      int `json:"minutes"`
			Points       int `json:"points"`
			Participants int `json:"participants"`
		} `json:"totals"`
		ByParticipant []struct {
			Key    string `json:"key"`
			Points int    `json:"points"`
		} `json:"by_participant"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 60, report.Totals.Minutes)
	assert.Equal(t, 300, report.Totals.Points)
	assert.Equal(t, 2, report.Totals.Participants)
	require.Len(t, report.ByParticipant, 2)

	rr = srv.do(t, http.MethodGet, "/v1/leaderboard?limit=1", p2, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[ListParticipantsResponse](t, rr)
	require.Len(t, board.Items, 1)
	assert.Equal(t, "p1", board.Items[0].ParticipantID)
	assert.Equal(t, 200, board.Items[0].TotalPoints)
}

func TestConsistencyAwardFlow(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	token := participantToken(t, "p1")
	for _, date := range []string{"2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16", "2026-10-16"} {
		rr := srv.do(t, http.MethodPost, "/v1/activities", token, SubmitActivityRequest{Date: date, WorkoutType: "Simple Cardio", DurationMinutes: 20, Details: "walk"})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	admin := adminToken(t)

	rr := srv.do(t, http.MethodGet, "/v1/bonuses/consistency?week_offset=1", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	standings := decode[ConsistencyResponse](t, rr)
	assert.Equal(t, RangeView{Start: "2026-10-12", End: "2026-10-18"}, standings.Week)
	require.NotEmpty(t, standings.Standings)
	assert.Equal(t, "p1", standings.Standings[0].ParticipantID)
	assert.Equal(t, 5, standings.Standings[0].ActiveDays)
	assert.Equal(t, 800, standings.Standings[0].BonusPoints)

	rr = srv.do(t, http.MethodPost, "/v1/bonuses/consistency/award", token, AwardRequest{WeekOffset: 1, Confirm: true})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.do(t, http.MethodPost, "/v1/bonuses/consistency/award", admin, AwardRequest{WeekOffset: 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodPost, "/v1/bonuses/consistency/award", admin, AwardRequest{WeekOffset: 1, Confirm: true})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[AwardResponse](t, rr)
	assert.Equal(t, statusAwarded, first.Status)
	assert.Equal(t, 800, first.Points)
	require.Len(t, first.Awarded, 1)

	rr = srv.do(t, http.MethodPost, "/v1/bonuses/consistency/award", admin, AwardRequest{WeekOffset: 1, Confirm: true})
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[AwardResponse](t, rr)
	assert.Equal(t, statusNothingToAward, second.Status)
	assert.Empty(t, second.Awarded)

	p, err := srv.service.GetParticipant(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 6*100+800, p.TotalPoints)
}

func TestParticipantManagement(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	admin := adminToken(t)

	rr := srv.do(t, http.MethodPost, "/v1/participants", participantToken(t, "p1"), CreateParticipantRequest{EmployeeID: "E-9", Name: "Chen"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.do(t, http.MethodPost, "/v1/participants", admin, CreateParticipantRequest{EmployeeID: "E-9", Name: "Chen", Team: "Ops", Email: "chen@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[ParticipantView](t, rr)
	assert.Equal(t, "Active", created.Status)

	rr = srv.do(t, http.MethodPost, "/v1/participants", admin, CreateParticipantRequest{EmployeeID: "E-9", Name: "Chen Again", Team: "Ops", Email: "chen2@example.com"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	inactive := "Inactive"
	rr = srv.do(t, http.MethodPatch, "/v1/participants/"+created.ParticipantID, admin, UpdateParticipantRequest{Status: &inactive})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Inactive", decode[ParticipantView](t, rr).Status)

	rr = srv.do(t, http.MethodPatch, "/v1/participants/"+created.ParticipantID, admin, UpdateParticipantRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodGet, "/v1/participants?status=Active", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[ListParticipantsResponse](t, rr).Items, 2)

	rr = srv.do(t, http.MethodGet, "/v1/participants/ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(t, http.MethodGet, "/v1/participants/p1/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dash := decode[DashboardView](t, rr)
	assert.Equal(t, "p1", dash.Participant.ParticipantID)
	assert.Len(t, dash.Week, 7)

	rr = srv.do(t, http.MethodGet, "/v1/participants/p1/unknown", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCatalogAndCategoriesFollowScoringMode(t *testing.T) {
	catalog := newTestServer(t, scoring.ModeCatalog)
	admin := adminToken(t)

	rr := catalog.do(t, http.MethodGet, "/v1/workout-types", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	types := decode[WorkoutTypesResponse](t, rr)
	assert.Equal(t, "catalog", types.Mode)
	assert.NotEmpty(t, types.WorkoutTypes)

	rr = catalog.do(t, http.MethodPost, "/v1/categories", admin, CategoryRequest{Name: "Running", PointsPerMinute: 7})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rate := newTestServer(t, scoring.ModeRate)
	rr = rate.do(t, http.MethodGet, "/v1/workout-types", admin, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = rate.do(t, http.MethodPost, "/v1/categories", admin, CategoryRequest{Name: "Running", PointsPerMinute: 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = rate.do(t, http.MethodPost, "/v1/categories", admin, CategoryRequest{Name: "Running", PointsPerMinute: 7})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	running := decode[CategoryView](t, rr)

	rr = rate.do(t, http.MethodPost, "/v1/activities", participantToken(t, "p1"), SubmitActivityRequest{CategoryID: running.CategoryID, DurationMinutes: 60, Details: "tempo"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 420, decode[SubmitActivityResponse](t, rr).Activity.Points)

	rr = rate.do(t, http.MethodPut, "/v1/categories/"+running.CategoryID, admin, CategoryRequest{Name: "Trail Running", PointsPerMinute: 8})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Trail Running", decode[CategoryView](t, rr).Name)

	rr = rate.do(t, http.MethodDelete, "/v1/categories/"+running.CategoryID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = rate.do(t, http.MethodDelete, "/v1/categories/"+running.CategoryID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = rate.do(t, http.MethodGet, "/v1/categories", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[ListCategoriesResponse](t, rr).Items)
}

func TestDashboardMetrics(t *testing.T) {
	srv := newTestServer(t, scoring.ModeCatalog)
	token := participantToken(t, "p1")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/v1/activities", token, SubmitActivityRequest{WorkoutType: "Simple Cardio", DurationMinutes: 25, StepsCount: 8500, Details: "walk"}).Code)

	rr := srv.do(t, http.MethodGet, "/v1/dashboard/metrics", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	m := decode[MetricsView](t, rr)
	assert.Equal(t, MetricsView{TotalParticipants: 2, ActiveToday: 1, WorkoutMinutes: 25, Steps: 8500, PointsToday: 180}, m)

	rr = srv.do(t, http.MethodDelete, "/v1/dashboard/metrics", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
