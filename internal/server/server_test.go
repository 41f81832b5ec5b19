package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"avault-backend/internal/config"
	"avault-backend/internal/testsupport"

	"github.com/gofiber/fiber/v2"
)

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newClient(t *testing.T) *client {
	t.Helper()
	testsupport.UseGlobalDB(t, testsupport.OpenDB(t))

	cfg := config.Default()
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	return &client{t: t, app: NewApp(cfg)}
}

func (cl *client) do(method, path, body string, out interface{}) int {
	cl.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	resp, err := cl.app.Test(req, -1)
	if err != nil {
		cl.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			cl.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (cl *client) login(email, password string) int {
	cl.t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	cl.token = ""
	st := cl.do("POST", "/api/auth/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), &res)
	cl.token = res.Token
	return st
}

func TestEndToEnd(t *testing.T) {
	cl := newClient(t)

	if st := cl.do("GET", "/api/categories", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("no token status %d", st)
	}

	admin := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`
	if st := cl.do("POST", "/api/auth/register-admin", admin, nil); st != http.StatusCreated {
		t.Fatalf("register status %d", st)
	}
	if st := cl.do("POST", "/api/auth/register-admin", admin, nil); st != http.StatusForbidden {
		t.Fatalf("second register status %d", st)
	}
	if st := cl.login("ada@example.com", "correct horse"); st != http.StatusOK {
		t.Fatalf("login status %d", st)
	}

	var cat struct {
		ID uint `json:"id"`
	}
	if st := cl.do("POST", "/api/categories", `{"name":"Mixers"}`, &cat); st != http.StatusCreated {
		t.Fatalf("create category status %d", st)
	}

	var errBody struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if st := cl.do("POST", "/api/categories", `{"name":"MIXERS"}`, &errBody); st != http.StatusConflict {
		t.Fatalf("duplicate category status %d (%s)", st, errBody.Error)
	}
	if st := cl.do("POST", "/api/categories", `{}`, &errBody); st != http.StatusBadRequest {
		t.Fatalf("empty category status %d", st)
	}
	if _, ok := errBody.Fields["Name"]; !ok {
		t.Fatalf("fields = %v", errBody.Fields)
	}
	if st := cl.do("GET", "/api/items/999", "", nil); st != http.StatusNotFound {
		t.Fatalf("missing item status %d", st)
	}

	var item struct {
		ID uint `json:"id"`
	}
	cl.do("POST", "/api/items", fmt.Sprintf(`{"name":"X32","category_id":%d}`, cat.ID), &item)

	var sess struct {
		ID uint `json:"id"`
	}
	if st := cl.do("POST", "/api/sessions", `{"name":"Spring walk","date":"2025-03-01"}`, &sess); st != http.StatusCreated {
		t.Fatalf("create session status %d", st)
	}
	if st := cl.do("POST", "/api/sessions", `{"name":"Spring walk"}`, nil); st != http.StatusConflict {
		t.Fatalf("duplicate session status %d", st)
	}
	countPath := fmt.Sprintf("/api/sessions/%d/counts/%d", sess.ID, item.ID)
	if st := cl.do("PUT", countPath, `{"quantity":-1}`, nil); st != http.StatusBadRequest {
		t.Fatalf("negative count status %d", st)
	}
	if st := cl.do("PUT", countPath, `{"quantity":2}`, nil); st != http.StatusOK {
		t.Fatalf("count status %d", st)
	}
	if st := cl.do("POST", fmt.Sprintf("/api/sessions/%d/complete", sess.ID), "", nil); st != http.StatusOK {
		t.Fatalf("complete status %d", st)
	}
	if st := cl.do("PUT", countPath, `{"quantity":3}`, nil); st != http.StatusConflict {
		t.Fatalf("count on completed session status %d", st)
	}

	var trend struct {
		Status string `json:"trend"`
	}
	if st := cl.do("GET", fmt.Sprintf("/api/items/%d/trend", item.ID), "", &trend); st != http.StatusOK {
		t.Fatalf("trend status %d", st)
	}
	if trend.Status != "insufficient_data" {
		t.Fatalf("trend = %q", trend.Status)
	}

	var staff struct {
		ID uint `json:"id"`
	}
	cl.do("POST", "/api/admin/users", `{"name":"Sam","email":"sam@example.com","password":"staffpass1"}`, &staff)
	adminToken := cl.token

	if st := cl.login("sam@example.com", "staffpass1"); st != http.StatusForbidden {
		t.Fatalf("unauthorized staff login status %d", st)
	}

	cl.token = adminToken
	cl.do("POST", fmt.Sprintf("/api/admin/users/%d/authorize", staff.ID), "", nil)
	if st := cl.login("sam@example.com", "staffpass1"); st != http.StatusOK {
		t.Fatalf("staff login status %d", st)
	}
	staffToken := cl.token
	if st := cl.do("GET", "/api/categories", "", nil); st != http.StatusOK {
		t.Fatalf("staff read status %d", st)
	}
	if st := cl.do("POST", "/api/categories", `{"name":"Cables"}`, nil); st != http.StatusForbidden {
		t.Fatalf("staff write status %d", st)
	}

	// revocation applies to tokens already issued
	cl.token = adminToken
	cl.do("POST", fmt.Sprintf("/api/admin/users/%d/revoke", staff.ID), "", nil)
	cl.token = staffToken
	if st := cl.do("GET", "/api/categories", "", nil); st != http.StatusForbidden {
		t.Fatalf("revoked staff status %d", st)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	cl := newClient(t)

	var health map[string]string
	if st := cl.do("GET", "/healthz", "", &health); st != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz = %d %v", st, health)
	}

	resp, err := cl.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `route="/healthz"`) {
		t.Fatalf("metrics missing healthz request:\n%s", body)
	}
}
