package sessions_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"tagrec-backend/internal/bootstrap"
	"tagrec-backend/internal/sessions"
	"tagrec-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "dev",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func uploadBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	payload := map[string]any{
		"filename": "support-tags.xlsx",
		"sheets": []map[string]any{
			{
				"name": "Billing Issues",
				"rows": [][]string{
					{"Billing", "", "Payment and invoice problems"},
					{"", "Refund", "Customer wants money back"},
					{"", "Invoice", "Invoice is wrong or missing"},
				},
			},
		},
	}
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		t.Fatalf("encode upload: %v", err)
	}
	return body
}

func sessionCookie(t *testing.T, resp *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == sessions.SessionCookie {
			return cookie
		}
	}
	t.Fatalf("expected %s cookie in response", sessions.SessionCookie)
	return nil
}

func TestTaxonomyUploadAndFetch(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	req := httptest.NewRequest(http.MethodPost, "/api/v1/taxonomy", uploadBody(t))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	cookie := sessionCookie(t, resp)
	if cookie.Value == "" {
		t.Fatalf("expected non-empty session cookie")
	}

	var created struct {
		SessionID string   `json:"sessionId"`
		Filename  string   `json:"filename"`
		NodeCount int      `json:"nodeCount"`
		Sheets    []string `json:"sheets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID != cookie.Value {
		t.Fatalf("expected sessionId %q to match cookie %q", created.SessionID, cookie.Value)
	}
	if created.NodeCount != 3 {
		t.Fatalf("expected 3 nodes, got %d", created.NodeCount)
	}
	if created.Filename != "support-tags.xlsx" {
		t.Fatalf("expected filename support-tags.xlsx, got %s", created.Filename)
	}

	// Fetch the session back through the cookie.
	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy", nil)
	reqGet.AddCookie(cookie)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)

	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", respGet.Code, respGet.Body.String())
	}

	// List the flattened tags.
	reqTags := httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy/tags", nil)
	reqTags.AddCookie(cookie)
	respTags := httptest.NewRecorder()
	router.ServeHTTP(respTags, reqTags)

	if respTags.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respTags.Code)
	}
	var tagList struct {
		Tags []struct {
			ID       string `json:"id"`
			Label    string `json:"label"`
			ParentID string `json:"parentId"`
		} `json:"tags"`
	}
	if err := json.NewDecoder(respTags.Body).Decode(&tagList); err != nil {
		t.Fatalf("decode tags response: %v", err)
	}
	if len(tagList.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tagList.Tags))
	}
	if tagList.Tags[0].ID != "billing-issues/billing" {
		t.Fatalf("expected first tag billing-issues/billing, got %s", tagList.Tags[0].ID)
	}
	if tagList.Tags[1].ParentID != "billing-issues/billing" {
		t.Fatalf("expected refund parent billing-issues/billing, got %s", tagList.Tags[1].ParentID)
	}
}

func TestTaxonomyDelete(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	req := httptest.NewRequest(http.MethodPost, "/api/v1/taxonomy", uploadBody(t))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	cookie := sessionCookie(t, resp)

	reqDel := httptest.NewRequest(http.MethodDelete, "/api/v1/taxonomy", nil)
	reqDel.AddCookie(cookie)
	respDel := httptest.NewRecorder()
	router.ServeHTTP(respDel, reqDel)
	if respDel.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", respDel.Code)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy", nil)
	reqGet.AddCookie(cookie)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", respGet.Code)
	}
}

func TestTaxonomyUploadRejectsEmptyAndMalformed(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	empty := bytes.NewBufferString(`{"filename":"empty.xlsx","sheets":[{"name":"Blank","rows":[]}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/taxonomy", empty)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for empty taxonomy, got %d", resp.Code)
	}

	notJSON := bytes.NewBufferString("not json")
	reqBad := httptest.NewRequest(http.MethodPost, "/api/v1/taxonomy", notJSON)
	reqBad.Header.Set("Content-Type", "application/json")
	respBad := httptest.NewRecorder()
	router.ServeHTTP(respBad, reqBad)
	if respBad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-JSON body, got %d", respBad.Code)
	}
}

func TestTaxonomyNoSession(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 without a session, got %d", resp.Code)
	}
}
