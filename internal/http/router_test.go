package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/config"
	"github.com/mrlokans/mycv/internal/database"
	auditrepo "github.com/mrlokans/mycv/internal/database/audit"
	"github.com/mrlokans/mycv/internal/database/reports"
	"github.com/mrlokans/mycv/internal/database/users"
	"github.com/mrlokans/mycv/internal/entities"
	"github.com/mrlokans/mycv/internal/tasks"
)

type fakeQueue struct {
	enqueued []backlite.Task
}

func (q *fakeQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.enqueued = append(q.enqueued, task)
	return "task-1", nil
}

func (q *fakeQueue) Status(_ context.Context, id string) (backlite.TaskStatus, error) {
	if id == "task-1" {
		return backlite.TaskStatusPending, nil
	}
	return backlite.TaskStatusNotFound, nil
}

type testApp struct {
	router  *gin.Engine
	db      *database.Database
	svc     *auth.Service
	reports *reports.Repository
	audit   *audit.Service
	queue   *fakeQueue
	store   *auth.SessionStore
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "app.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := users.NewRepository(db.DB)
	reportRepo := reports.NewRepository(db.DB)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	// Registered after Close so pending audit writes finish first.
	t.Cleanup(auditService.Wait)

	svc := auth.NewService(userRepo, auth.NewHasher(config.Auth{ScryptN: 16}), false)
	store, err := auth.NewSessionStore(config.Session{Keys: []string{"test"}, MaxAge: time.Hour})
	require.NoError(t, err)

	queue := &fakeQueue{}
	router := NewRouter(RouterConfig{
		Database:           db,
		AuthService:        svc,
		UserFinder:         userRepo,
		Reports:            reportRepo,
		AuditService:       auditService,
		AuditLister:        auditService,
		SessionStore:       store,
		MetricsEnabled:     true,
		TaskQueue:          queue,
		AuditRetentionDays: 30,
		Version:            "test",
	})

	return &testApp{
		router:  router,
		db:      db,
		svc:     svc,
		reports: reportRepo,
		audit:   auditService,
		queue:   queue,
		store:   store,
	}
}

func (a *testApp) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signup creates a user through the API and returns its id and session cookie.
func (a *testApp) signup(t *testing.T, email string) (uint, *http.Cookie) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/signup", `{"email":"`+email+`","password":"pw"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var u auth.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	for _, c := range w.Result().Cookies() {
		if c.Name == a.store.CookieName() {
			return u.ID, c
		}
	}
	t.Fatal("signup issued no session cookie")
	return 0, nil
}

func (a *testApp) signupAdmin(t *testing.T, email string) (uint, *http.Cookie) {
	t.Helper()
	id, cookie := a.signup(t, email)
	_, err := a.svc.SetAdmin(context.Background(), id, true)
	require.NoError(t, err)
	return id, cookie
}

func TestRouter_SignupWhoAmI(t *testing.T) {
	app := setupTestApp(t)
	id, cookie := app.signup(t, "a@b.com")

	w := app.do(t, http.MethodGet, "/auth/whoami", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var me auth.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, auth.UserResponse{ID: id, Email: "a@b.com", Admin: false}, me)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	app := setupTestApp(t)
	w := app.do(t, http.MethodGet, "/ping", "", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	app := setupTestApp(t)
	app.do(t, http.MethodGet, "/ping", "", nil)

	w := app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestUsers_GetAndFind(t *testing.T) {
	app := setupTestApp(t)
	id, _ := app.signup(t, "a@b.com")
	app.signup(t, "c@d.com")

	w := app.do(t, http.MethodGet, "/auth/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"email":"a@b.com"`)

	w = app.do(t, http.MethodGet, "/auth/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/auth/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var found []auth.UserResponse
	w = app.do(t, http.MethodGet, "/auth?email=c@d.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "c@d.com", found[0].Email)

	w = app.do(t, http.MethodGet, "/auth?email=nobody@d.com", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = app.do(t, http.MethodGet, "/auth", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Len(t, found, 2)
}

func TestUsers_Update(t *testing.T) {
	app := setupTestApp(t)
	id, _ := app.signup(t, "a@b.com")
	app.signup(t, "taken@b.com")

	w := app.do(t, http.MethodPatch, "/auth/"+itoa(id), `{"email":"new@b.com","password":"next"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"email":"new@b.com"`)

	// The new password works for signin.
	w = app.do(t, http.MethodPost, "/auth/signin", `{"email":"new@b.com","password":"next"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodPatch, "/auth/"+itoa(id), `{"email":"taken@b.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/auth/"+itoa(id), `{"email":"not-an-email"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/auth/999", `{"email":"x@b.com"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_UpdateRejectsEmptyValues(t *testing.T) {
	app := setupTestApp(t)
	id, _ := app.signup(t, "a@b.com")

	w := app.do(t, http.MethodPatch, "/auth/"+itoa(id), `{"password":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/auth/"+itoa(id), `{"email":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The stored credential is untouched.
	w = app.do(t, http.MethodPost, "/auth/signin", `{"email":"a@b.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUsers_Remove(t *testing.T) {
	app := setupTestApp(t)
	id, cookie := app.signup(t, "a@b.com")

	w := app.do(t, http.MethodDelete, "/auth/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@b.com"`)

	w = app.do(t, http.MethodDelete, "/auth/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The old session still passes AuthGuard but has no current user.
	w = app.do(t, http.MethodGet, "/auth/whoami", "", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

const validReport = `{"price":10000,"make":"ford","model":"mustang","year":1982,"lng":45,"lat":45,"mileage":50000}`

func TestReports_Create(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(t, http.MethodPost, "/reports", validReport, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	id, cookie := app.signup(t, "a@b.com")
	w = app.do(t, http.MethodPost, "/reports", validReport, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report entities.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotZero(t, report.ID)
	assert.False(t, report.Approved)
	assert.Equal(t, id, report.UserID)
	assert.Equal(t, 10000, report.Price)
}

func TestReports_CreateZeroValues(t *testing.T) {
	app := setupTestApp(t)
	_, cookie := app.signup(t, "a@b.com")

	body := `{"price":0,"make":"ford","model":"t","year":1930,"lng":0,"lat":0,"mileage":0}`
	w := app.do(t, http.MethodPost, "/reports", body, cookie)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestReports_CreateValidation(t *testing.T) {
	app := setupTestApp(t)
	_, cookie := app.signup(t, "a@b.com")

	bodies := []string{
		`{"price":10000,"make":"ford","model":"mustang","year":1900,"lng":45,"lat":45,"mileage":50000}`,
		`{"price":10000,"make":"ford","model":"mustang","year":1982,"lng":200,"lat":45,"mileage":50000}`,
		`{"price":10000,"make":"ford","model":"mustang","year":1982,"lng":45,"lat":-91,"mileage":50000}`,
		`{"price":-1,"make":"ford","model":"mustang","year":1982,"lng":45,"lat":45,"mileage":50000}`,
		`{"price":10000,"model":"mustang","year":1982,"lng":45,"lat":45,"mileage":50000}`,
		`{"price":10000,"make":"ford","model":"mustang","year":1982,"lat":45,"mileage":50000}`,
		`{"price":10000,"make":"ford","model":"mustang","year":1982,"lng":45,"lat":45,"mileage":2000000}`,
	}
	for _, body := range bodies {
		w := app.do(t, http.MethodPost, "/reports", body, cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestReports_Approve(t *testing.T) {
	app := setupTestApp(t)
	_, userCookie := app.signup(t, "user@b.com")
	_, adminCookie := app.signupAdmin(t, "admin@b.com")

	w := app.do(t, http.MethodPost, "/reports", validReport, userCookie)
	require.Equal(t, http.StatusCreated, w.Code)
	var report entities.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	path := "/reports/" + itoa(report.ID)

	w = app.do(t, http.MethodPatch, path, `{"approved":true}`, userCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPatch, path, `{"approved":true}`, adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approved":true`)

	w = app.do(t, http.MethodPatch, path, `{}`, adminCookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/reports/999", `{"approved":true}`, adminCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReports_Estimate(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()
	ownerID, _ := app.signup(t, "a@b.com")

	seed := []struct {
		price, year, mileage int
		approved             bool
	}{
		{10000, 1980, 50000, true},
		{20000, 1981, 51000, true},
		{30000, 1982, 52000, true},
		{90000, 1982, 500000, true}, // approved but farthest by mileage
		{99999, 1982, 50000, false}, // not approved
	}
	for _, s := range seed {
		r := &entities.Report{Price: s.price, Make: "ford", Model: "mustang", Year: s.year, Lng: 45, Lat: 45, Mileage: s.mileage}
		require.NoError(t, app.reports.Create(ctx, r, ownerID))
		if s.approved {
			_, err := app.reports.SetApproval(ctx, r.ID, true)
			require.NoError(t, err)
		}
	}

	w := app.do(t, http.MethodGet, "/reports/estimate?make=ford&model=mustang&year=1981&mileage=50000&lng=45&lat=45", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"price":20000,"count":3}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/reports/estimate?make=toyota&model=corolla&year=1981&mileage=50000&lng=45&lat=45", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"price":null,"count":0}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/reports/estimate?make=ford&model=mustang&year=1981&lng=45&lat=45", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudit_AdminOnly(t *testing.T) {
	app := setupTestApp(t)
	_, userCookie := app.signup(t, "user@b.com")
	_, adminCookie := app.signupAdmin(t, "admin@b.com")
	app.audit.Wait()

	w := app.do(t, http.MethodGet, "/api/audit", "", userCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodGet, "/api/audit?type=auth&limit=10", "", adminCookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []entities.AuditEvent `json:"data"`
		Total int64                 `json:"total"`
		Limit int                   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 10, resp.Limit)
	for _, e := range resp.Data {
		assert.Equal(t, entities.AuditEventAuth, e.EventType)
		assert.Equal(t, "signup", e.Action)
	}
}

func TestTasks_AuditCleanup(t *testing.T) {
	app := setupTestApp(t)
	_, userCookie := app.signup(t, "user@b.com")
	_, adminCookie := app.signupAdmin(t, "admin@b.com")

	w := app.do(t, http.MethodPost, "/api/admin/tasks/audit-cleanup", "", userCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/admin/tasks/audit-cleanup", "", adminCookie)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)

	w = app.do(t, http.MethodPost, "/api/admin/tasks/audit-cleanup", `{"retention_days":7}`, adminCookie)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Len(t, app.queue.enqueued, 2)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 30}, app.queue.enqueued[0])
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 7}, app.queue.enqueued[1])

	w = app.do(t, http.MethodGet, "/api/admin/tasks/task-1", "", adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"task-1","status":"pending"}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/admin/tasks/other", "", adminCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
