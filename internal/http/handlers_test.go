package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tracker/internal/auth"
	"tracker/internal/blob"
	"tracker/internal/ledger"
	"tracker/internal/ledger/memory"
	"tracker/internal/log"
	"tracker/internal/receipts"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.New()
	if err := store.SeedUser("u-1", testEmail, "Ada", testPassword); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	logger := testLogger()
	fs, err := blob.NewFS(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	uploader := receipts.NewUploader(fs, logger)
	svc := ledger.NewService(store, store, store, uploader, nil, logger)
	authn := auth.NewAuthenticator(store, []byte("test-secret-0123456789"), time.Hour)

	s := NewServer(":0", svc, authn, fs, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": testEmail, "password": testPassword})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected non-empty token")
	}
	return resp.Token
}

func multipartDraft(t *testing.T, fields map[string]string, receipt []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if receipt != nil {
		part, err := w.CreateFormFile("receipt", "scan.png")
		if err != nil {
			t.Fatalf("create receipt part: %v", err)
		}
		if _, err := part.Write(receipt); err != nil {
			t.Fatalf("write receipt: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": testEmail, "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := doRequest(s, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestOverviewRequiresToken(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "Bearer not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", tc.token)
			}
			rec := doRequest(s, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestCreateAndOverviewRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	create := func(fields map[string]string) *httptest.ResponseRecorder {
		body, ct := multipartDraft(t, fields, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+token)
		return doRequest(s, req)
	}

	if rec := create(map[string]string{"title": "Salary", "amount": "2500.00", "type": "income"}); rec.Code != http.StatusCreated {
		t.Fatalf("create income status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := create(map[string]string{"title": "  Groceries  ", "amount": "75,50", "category": "Food"}); rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp overviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if resp.DisplayName != "Ada" {
		t.Errorf("displayName = %q, want Ada", resp.DisplayName)
	}
	if resp.Summary.IncomeCents != 250000 {
		t.Errorf("incomeCents = %d, want 250000", resp.Summary.IncomeCents)
	}
	if resp.Summary.ExpenseCents != 7550 {
		t.Errorf("expenseCents = %d, want 7550", resp.Summary.ExpenseCents)
	}
	if resp.Summary.TotalCents != 242450 {
		t.Errorf("totalCents = %d, want 242450", resp.Summary.TotalCents)
	}

	var found bool
	for _, g := range resp.Recent {
		for _, tx := range g.Transactions {
			if tx.Title == "Groceries" {
				found = true
				if tx.Icon != "🍔" {
					t.Errorf("icon = %q, want 🍔", tx.Icon)
				}
				if tx.Type != "expense" {
					t.Errorf("type = %q, want expense (default)", tx.Type)
				}
			}
		}
	}
	if !found {
		t.Error("trimmed Groceries transaction missing from recent view")
	}
}

func TestCreateFromJSONBody(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return doRequest(s, req)
	}

	cases := []struct {
		name      string
		body      string
		status    int
		wantCents int64
	}{
		{"number amount", `{"title":"Salary","amount":2500.50,"type":"income"}`, http.StatusCreated, 250050},
		{"string amount", `{"title":"Rent","amount":"850.00","date":"2026-03-01"}`, http.StatusCreated, 85000},
		{"epoch millis date", `{"title":"Snack","amount":3,"date":1767225600000}`, http.StatusCreated, 300},
		{"non-numeric amount", `{"title":"Junk","amount":"treasure"}`, http.StatusUnprocessableEntity, 0},
		{"missing amount", `{"title":"Junk"}`, http.StatusUnprocessableEntity, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.status != http.StatusCreated {
				return
			}
			var resp transactionResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.AmountCents != tc.wantCents {
				t.Errorf("amountCents = %d, want %d", resp.AmountCents, tc.wantCents)
			}
		})
	}
}

func TestCreateInvalidDraft(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	cases := []struct {
		name   string
		fields map[string]string
	}{
		{"empty title", map[string]string{"title": "   ", "amount": "10.00"}},
		{"bad amount", map[string]string{"title": "Coffee", "amount": "abc"}},
		{"negative amount", map[string]string{"title": "Coffee", "amount": "-3.50"}},
		{"bad type", map[string]string{"title": "Coffee", "amount": "3.50", "type": "transfer"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartDraft(t, tc.fields, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := doRequest(s, req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d, body %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
			}
		})
	}
}

func TestCreateWithReceiptServesImage(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	body, ct := multipartDraft(t, map[string]string{"title": "Printer", "amount": "120.00"}, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := doRequest(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ImageURL == "" {
		t.Fatal("expected imageUrl on receipt-bearing transaction")
	}

	idx := strings.Index(resp.ImageURL, "/receipts/")
	if idx < 0 {
		t.Fatalf("imageUrl %q missing /receipts/ path", resp.ImageURL)
	}
	get := httptest.NewRequest(http.MethodGet, resp.ImageURL[idx:], nil)
	got := doRequest(s, get)
	if got.Code != http.StatusOK {
		t.Fatalf("receipt fetch status = %d", got.Code)
	}
	if ctHeader := got.Header().Get("Content-Type"); ctHeader != "image/png" {
		t.Errorf("content type = %q, want image/png", ctHeader)
	}
}

func TestCreateRejectsOversizedReceipt(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	big := make([]byte, receipts.MaxReceiptBytes+1)
	body, ct := multipartDraft(t, map[string]string{"title": "Poster", "amount": "5.00"}, big)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := doRequest(s, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestOverviewCacheInvalidatedOnCreate(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	overview := func() overviewResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := doRequest(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("overview status = %d", rec.Code)
		}
		var resp overviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode overview: %v", err)
		}
		return resp
	}

	if got := overview(); got.Summary.TotalCents != 0 {
		t.Fatalf("initial total = %d, want 0", got.Summary.TotalCents)
	}

	body, ct := multipartDraft(t, map[string]string{"title": "Book", "amount": "20.00"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := doRequest(s, req); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	if got := overview(); got.Summary.ExpenseCents != 2000 {
		t.Errorf("post-create expense = %d, want 2000", got.Summary.ExpenseCents)
	}
}

func TestOverviewCacheKeyScopedToDay(t *testing.T) {
	beforeMidnight := time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC)
	afterMidnight := time.Date(2026, 3, 6, 0, 1, 0, 0, time.UTC)

	if overviewCacheKey("u-1", beforeMidnight) == overviewCacheKey("u-1", afterMidnight) {
		t.Fatal("cached day labels must not survive a midnight rollover")
	}
	if overviewCacheKey("u-1", beforeMidnight) != overviewCacheKey("u-1", beforeMidnight.Add(-time.Hour)) {
		t.Fatal("same user and day must share one cache entry")
	}
	if overviewCacheKey("u-1", beforeMidnight) == overviewCacheKey("u-2", beforeMidnight) {
		t.Fatal("users must not share cache entries")
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []categoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(got))
	}
	if got[0].Name != "Food" || got[0].Icon != "🍔" {
		t.Errorf("first category = %+v, want Food/🍔", got[0])
	}
	for _, c := range got {
		if c.Icon == "" {
			t.Errorf("category %s has no icon", c.Name)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := doRequest(s, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
