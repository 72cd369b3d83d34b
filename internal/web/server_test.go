package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/i18n"
	"github.com/JonMunkholm/fyexchange/internal/store"
)

const testHeader = "Jour,Numéro compte,Journal,Tiers,Numéro pièce,Libellé écriture,Débit,Crédit,Lettrage"

type testEnv struct {
	server   *Server
	store    *store.Memory
	year     core.FinancialYear
	exchange core.Exchange
}

func newTestEnv(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()

	st := store.NewMemory()
	st.AddAccount("512000", "Banque")
	st.AddAccount("401000", "Fournisseurs")
	st.AddJournal(core.Journal{AccountantID: 1, Code: "BQ", Name: "Banque"})
	year := st.AddFinancialYear(core.FinancialYear{
		Code:         "2023",
		StartedOn:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		StoppedOn:    time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		AccountantID: 1,
	})
	x, err := st.CreateExchange(context.Background(), core.Exchange{
		FinancialYearID: year.ID,
		Format:          core.DefaultExchangeFormat,
		StartedOn:       year.StartedOn,
		StoppedOn:       year.StoppedOn,
	})
	if err != nil {
		t.Fatalf("CreateExchange() error = %v", err)
	}

	catalog, err := i18n.Load("fr")
	if err != nil {
		t.Fatalf("i18n.Load() error = %v", err)
	}

	cfg := config.Defaults()
	cfg.Rate.Enabled = false
	if tweak != nil {
		tweak(cfg)
	}

	svc := core.NewService(st, catalog, cfg)
	return &testEnv{server: NewServer(svc, cfg), store: st, year: year, exchange: x}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) exchangePath(suffix string) string {
	return "/api/exchanges/" + strconv.FormatInt(e.exchange.ID, 10) + suffix
}

func importRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func balancedCSV() string {
	return testHeader + "\n" +
		"15/03/2023,512000,BQ,,1,Encaissement,10,,\n" +
		"15/03/2023,401000,BQ,,1,Encaissement,,10,\n"
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"max_concurrent":4`) {
		t.Errorf("body = %s, want limiter status", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestImport_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(importRequest(t, env.exchangePath("/import"), "export.csv", balancedCSV()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Entries != 1 || resp.Items != 2 || resp.State != "finalized" {
		t.Errorf("response = %+v", resp)
	}
	if resp.RunID == "" {
		t.Error("run_id missing")
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, env.exchangePath("/import-file"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if rec.Body.String() != balancedCSV() {
		t.Errorf("downloaded file differs from upload")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename=export.csv`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestImport_Errors(t *testing.T) {
	unknownJournal := testHeader + "\n" +
		"15/03/2023,512000,ZZ,,1,x,10,,\n" +
		"15/03/2023,401000,ZZ,,1,x,,10,\n"

	tests := []struct {
		name       string
		setup      func(env *testEnv)
		path       func(env *testEnv) string
		filename   string
		content    string
		language   string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "unknown journal in french",
			filename:   "export.csv",
			content:    unknownJournal,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXC003",
			wantMsg:    "Les journaux suivants n'existent pas : ZZ.",
		},
		{
			name:       "unknown journal in english",
			filename:   "export.csv",
			content:    unknownJournal,
			language:   "en-US,en;q=0.9",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXC003",
			wantMsg:    "The following journals do not exist: ZZ.",
		},
		{
			name:       "bad headers",
			filename:   "export.csv",
			content:    "Jour,Journal\n15/03/2023,BQ\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXC002",
		},
		{
			name:       "missing file",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE002",
		},
		{
			name:       "bad exchange id",
			path:       func(*testEnv) string { return "/api/exchanges/abc/import" },
			filename:   "export.csv",
			content:    balancedCSV(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "REQ001",
		},
		{
			name:       "unknown exchange",
			path:       func(*testEnv) string { return "/api/exchanges/9999/import" },
			filename:   "export.csv",
			content:    balancedCSV(),
			wantStatus: http.StatusNotFound,
			wantCode:   "IMP004",
		},
		{
			name: "closed exchange",
			setup: func(env *testEnv) {
				env.do(httptest.NewRequest(http.MethodPost, env.exchangePath("/close"), nil))
			},
			filename:   "export.csv",
			content:    balancedCSV(),
			wantStatus: http.StatusConflict,
			wantCode:   "IMP003",
		},
		{
			name:       "file too large",
			filename:   "export.csv",
			content:    balancedCSV() + strings.Repeat("x", 4096),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(cfg *config.Config) { cfg.Import.MaxFileSize = 1024 })
			if tt.setup != nil {
				tt.setup(env)
			}
			path := env.exchangePath("/import")
			if tt.path != nil {
				path = tt.path(env)
			}

			req := importRequest(t, path, tt.filename, tt.content)
			if tt.language != "" {
				req.Header.Set("Accept-Language", tt.language)
			}
			rec := env.do(req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
			if tt.wantStatus == http.StatusUnprocessableEntity && resp.RunID == "" {
				t.Error("rejected import has no run_id")
			}
			if n := len(env.store.Entries()); n != 0 {
				t.Errorf("store holds %d entries after a failed import", n)
			}
		})
	}
}

func TestImport_LocaleFormValue(t *testing.T) {
	env := newTestEnv(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("locale", "en")
	fw, _ := mw.CreateFormFile("file", "export.csv")
	fw.Write([]byte("Jour\n15/03/2023\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, env.exchangePath("/import"), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept-Language", "fr")

	rec := env.do(req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeError(t, rec); !strings.HasPrefix(resp.Message, "The file headers") {
		t.Errorf("message = %q, want english", resp.Message)
	}
}

func TestCreateExchange(t *testing.T) {
	tests := []struct {
		name       string
		body       func(env *testEnv) string
		wantStatus int
		wantField  string
	}{
		{
			name: "valid",
			body: func(env *testEnv) string {
				return `{"financial_year_id":` + strconv.FormatInt(env.year.ID, 10) + `,"stopped_on":"2023-06-30"}`
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "stop after year",
			body: func(env *testEnv) string {
				return `{"financial_year_id":` + strconv.FormatInt(env.year.ID, 10) + `,"stopped_on":"2024-06-30"}`
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "stopped_on",
		},
		{
			name:       "unknown year",
			body:       func(*testEnv) string { return `{"financial_year_id":9999,"stopped_on":"2023-06-30"}` },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad date",
			body:       func(*testEnv) string { return `{"financial_year_id":1,"stopped_on":"30/06/2023"}` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       func(*testEnv) string { return `{"financial_year_id":1,"colour":"red"}` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing year",
			body:       func(*testEnv) string { return `{"stopped_on":"2023-06-30"}` },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/exchanges", strings.NewReader(tt.body(env)))
			req.Header.Set("Content-Type", "application/json")

			rec := env.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				var resp exchangeResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp.Format != core.DefaultExchangeFormat || resp.StartedOn != "2023-01-01" || !resp.Opened {
					t.Errorf("created = %+v", resp)
				}
				return
			}
			if tt.wantField != "" {
				resp := decodeError(t, rec)
				if _, ok := resp.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %s", resp.Fields, tt.wantField)
				}
			}
		})
	}
}

func TestCloseExchange(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodPost, env.exchangePath("/close"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first close status = %d", rec.Code)
	}
	var resp exchangeResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Opened || resp.ClosedAt == nil {
		t.Errorf("closed exchange = %+v", resp)
	}

	rec = env.do(httptest.NewRequest(http.MethodPost, env.exchangePath("/close"), nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second close status = %d, want 409", rec.Code)
	}
}

func TestPublicToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodPost, env.exchangePath("/public-token"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rec.Code)
	}
	var owner exchangeResponse
	json.NewDecoder(rec.Body).Decode(&owner)
	if owner.PublicToken == "" || owner.PublicTokenExpiredAt == nil {
		t.Fatalf("token response = %+v", owner)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/public/exchanges/"+owner.PublicToken, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("public status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "public_token") {
		t.Error("public response exposes the token")
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/public/exchanges/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown token status = %d, want 404", rec.Code)
	}
}

func TestGetExchange(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, env.exchangePath(""), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp exchangeResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ID != env.exchange.ID || resp.StoppedOn != "2023-12-31" || resp.ImportFile != nil {
		t.Errorf("exchange = %+v", resp)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/exchanges/9999/import-file", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing import file status = %d, want 404", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Rate.Enabled = true
		cfg.Rate.RequestsPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		if rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if resp := decodeError(t, rec); resp.Code != "RATE001" {
		t.Errorf("code = %s, want RATE001", resp.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "198.51.100.7:4242"
	if rec := env.do(other); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.InvalidFile{Key: core.MsgFileInvalid}, http.StatusUnprocessableEntity},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrExchangeClosed, http.StatusConflict},
		{core.ErrImportInProgress, http.StatusConflict},
		{core.ErrTooManyImports, http.StatusTooManyRequests},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&core.RecordInvalid{Err: core.ValidationErrors{{Field: "stopped_on"}}}, http.StatusUnprocessableEntity},
		{&core.RecordInvalid{Err: core.ErrConstraintViolation}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
