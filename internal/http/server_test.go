package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	creds := store.NewCredentialStore(dir + "/users.json")
	if err := creds.Ensure(); err != nil {
		t.Fatal(err)
	}
	records := cache.NewLRUCache[map[string]core.Transaction](16, time.Minute)
	tracker := services.NewTrackerService(creds, store.NewTransactionStore(dir+"/records"), records, nil)
	srv := NewServer(":0", tracker, session.NewManager(time.Hour))
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func postForm(srv *Server, path, cookie string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path, cookie string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers a user through the form and returns the session
// cookie issued with the redirect.
func signUp(t *testing.T, srv *Server, username string) string {
	t.Helper()
	rr := postForm(srv, "/signup", "", url.Values{
		"username": {username},
		"password": {"secret"},
		"email":    {username + "@example.com"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("signup status = %d, body: %s", rr.Code, rr.Body.String())
	}
	cookie := rr.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, session.CookieName+"=") {
		t.Fatalf("signup did not set a session cookie: %q", cookie)
	}
	return strings.SplitN(cookie, ";", 2)[0]
}

func TestAnonymousRedirectsAndProbes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/", "/new", "/history"} {
		rr := get(srv, path, "")
		if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/signin" {
			t.Errorf("GET %s = %d -> %q, want redirect to /signin", path, rr.Code, rr.Header().Get("Location"))
		}
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(srv, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rr.Code)
		}
	}

	rr := get(srv, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "total_requests") {
		t.Errorf("GET /metrics = %d, body: %s", rr.Code, rr.Body.String())
	}
}

func TestSignUpThenDashboard(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	rr := get(srv, "/", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "ada") {
		t.Error("dashboard missing username")
	}
	if !strings.Contains(body, "Welcome, ada!") {
		t.Error("dashboard missing welcome flash")
	}

	// The flash is one-shot.
	if body := get(srv, "/", cookie).Body.String(); strings.Contains(body, "Welcome, ada!") {
		t.Error("flash should not survive a second page load")
	}
}

// flashCookie pulls the anonymous flash cookie from a redirect
// response so a follow-up request can present it.
func flashCookie(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatal("no flash cookie set")
	return ""
}

func TestSignUpValidation(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "ada")

	// Conflicts bounce back to the sign-up form carrying a message.
	rr := postForm(srv, "/signup", "", url.Values{"username": {"ada"}, "password": {"other"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/signup" {
		t.Fatalf("duplicate username = %d -> %q, want redirect to /signup", rr.Code, rr.Header().Get("Location"))
	}
	body := get(srv, "/signup", flashCookie(t, rr)).Body.String()
	if !strings.Contains(body, "already taken") {
		t.Error("duplicate username message missing from re-rendered form")
	}

	rr = postForm(srv, "/signup", "", url.Values{
		"username": {"grace"},
		"password": {"secret"},
		"email":    {"ada@example.com"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("duplicate email status = %d, want 303", rr.Code)
	}
	body = get(srv, "/signup", flashCookie(t, rr)).Body.String()
	if !strings.Contains(body, "already registered") {
		t.Error("duplicate email message missing from re-rendered form")
	}

	// The message shows once and is gone on the next load.
	if body := get(srv, "/signup", "").Body.String(); strings.Contains(body, "already registered") {
		t.Error("flash message survived without its cookie")
	}

	rr = postForm(srv, "/signup", "", url.Values{"username": {""}, "password": {""}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty signup status = %d, want 422", rr.Code)
	}
}

func TestSignInSuccessAndRejection(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "ada")

	rr := postForm(srv, "/signin", "", url.Values{"username": {"ada"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther {
		t.Errorf("signin status = %d, want 303", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), session.CookieName+"=") {
		t.Error("signin did not set a session cookie")
	}

	rr = postForm(srv, "/signin", "", url.Values{"username": {"ada"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad signin status = %d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid credentials") {
		t.Error("rejection message missing from body")
	}

	rr = postForm(srv, "/signin", "", url.Values{"username": {"nobody"}, "password": {"secret"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown user signin status = %d, want 422", rr.Code)
	}
}

func TestCreateRecordAndBalance(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	rr := postForm(srv, "/new", cookie, url.Values{
		"kind":     {"income"},
		"date":     {"2024-03-01"},
		"amount":   {"100"},
		"category": {"salary"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d", rr.Code)
	}

	// Seed the second record directly so its ID cannot collide with
	// the first within the same second.
	_, err := srv.tracker.Create(context.Background(), "ada",
		core.Transaction{Kind: core.Expense, Date: "2024-03-02", Amount: 40, Category: "food"},
		time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	body := get(srv, "/", cookie).Body.String()
	if !strings.Contains(body, ">60</p>") {
		t.Errorf("dashboard missing balance 60: %s", body)
	}
	if !strings.Contains(body, "salary") || !strings.Contains(body, "food") {
		t.Error("dashboard missing recent records")
	}
}

func TestCreateAcceptsEmptyKind(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	rr := postForm(srv, "/new", cookie, url.Values{
		"kind":   {""},
		"amount": {"5"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Errorf("create with empty kind status = %d, want 303", rr.Code)
	}
}

func TestEditValidatesKind(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	id, err := srv.tracker.Create(context.Background(), "ada",
		core.Transaction{Kind: core.Income, Date: "2024-03-01", Amount: 10}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	rr := get(srv, "/edit/"+id, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("edit form status = %d", rr.Code)
	}

	rr = postForm(srv, "/edit/"+id, cookie, url.Values{
		"kind":   {""},
		"date":   {"2024-03-01"},
		"amount": {"10"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("edit with empty kind status = %d, want 422", rr.Code)
	}

	rr = postForm(srv, "/edit/"+id, cookie, url.Values{
		"kind":   {"expense"},
		"date":   {"2024-03-01"},
		"amount": {"25"},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/history" {
		t.Errorf("valid edit = %d -> %q, want redirect to /history", rr.Code, rr.Header().Get("Location"))
	}

	record, _, err := srv.tracker.Get(context.Background(), "ada", id)
	if err != nil {
		t.Fatal(err)
	}
	if record.Kind != core.Expense || record.Amount != 25 {
		t.Errorf("record after edit = %+v", record)
	}
}

func TestEditFormUnknownRecord(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	rr := get(srv, "/edit/2099-01-01_00:00:00", cookie)
	if rr.Code != http.StatusNotFound {
		t.Errorf("edit unknown record status = %d, want 404", rr.Code)
	}
}

func TestDeleteRecord(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	id, err := srv.tracker.Create(context.Background(), "ada",
		core.Transaction{Kind: core.Income, Date: "2024-03-01", Amount: 10}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	rr := get(srv, "/delete/"+id, cookie)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/history" {
		t.Fatalf("delete = %d -> %q, want redirect to /history", rr.Code, rr.Header().Get("Location"))
	}
	if _, found, _ := srv.tracker.Get(context.Background(), "ada", id); found {
		t.Error("record still present after delete")
	}

	// Deleting an absent id still redirects.
	rr = get(srv, "/delete/2099-01-01_00:00:00", cookie)
	if rr.Code != http.StatusFound {
		t.Errorf("delete of absent id status = %d, want 302", rr.Code)
	}
}

func TestAnonymousDeleteFails(t *testing.T) {
	srv := newTestServer(t)

	// No sign-in gate on the delete route: the anonymous request falls
	// through to a nonexistent record store and errors out.
	rr := get(srv, "/delete/2024-03-01_10:00:00", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("anonymous delete status = %d, want 500", rr.Code)
	}
}

func TestHistoryFilterIsOneShot(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	today := core.Today(time.Now())
	seed := []core.Transaction{
		{Kind: core.Income, Date: "2023-05-01", Amount: 500, Category: "bonus"},
		{Kind: core.Expense, Date: today, Amount: 40, Category: "food"},
	}
	base := time.Now()
	for i, tr := range seed {
		if _, err := srv.tracker.Create(context.Background(), "ada", tr, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	rr := postForm(srv, "/history", cookie, url.Values{
		"range":    {"year"},
		"year":     {"2023"},
		"category": {"any"},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/history" {
		t.Fatalf("set filter status = %d -> %q", rr.Code, rr.Header().Get("Location"))
	}

	body := get(srv, "/history", cookie).Body.String()
	if !strings.Contains(body, "2023-05-01") {
		t.Error("filtered history missing 2023 record")
	}
	if strings.Contains(body, "<td>"+today+"</td>") {
		t.Error("filtered history leaked a current-month record")
	}

	// The filter applied once; the next view is back on the default
	// current-month scope.
	body = get(srv, "/history", cookie).Body.String()
	if strings.Contains(body, "2023-05-01") {
		t.Error("filter survived a second history view")
	}
	if !strings.Contains(body, "<td>"+today+"</td>") {
		t.Error("default history missing current-month record")
	}
}

func TestHistoryCategoryFilter(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	today := core.Today(time.Now())
	seed := []core.Transaction{
		{Kind: core.Expense, Date: today, Amount: 40, Category: "food"},
		{Kind: core.Income, Date: today, Amount: 100, Category: "salary"},
	}
	base := time.Now()
	for i, tr := range seed {
		if _, err := srv.tracker.Create(context.Background(), "ada", tr, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	rr := postForm(srv, "/history", cookie, url.Values{
		"range":    {"month"},
		"month":    {today[:7]},
		"category": {"food"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatal(rr.Code)
	}

	body := get(srv, "/history", cookie).Body.String()
	if !strings.Contains(body, "food") {
		t.Error("history missing matching category")
	}
	if strings.Contains(body, "salary</td>") {
		t.Error("history leaked a non-matching record row")
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "ada")

	rr := get(srv, "/logout", cookie)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/signin" {
		t.Fatalf("logout = %d -> %q", rr.Code, rr.Header().Get("Location"))
	}

	// The old session no longer resolves.
	rr = get(srv, "/", cookie)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/signin" {
		t.Error("session survived logout")
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)
	rr := get(srv, "/signin", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin form status = %d", rr.Code)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}
}
