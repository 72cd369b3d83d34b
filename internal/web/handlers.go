package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
)

// multipartOverhead is the body allowance for form boundaries and fields on
// top of the file itself.
const multipartOverhead = 1 << 20

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("invalid request: "+format, args...)
}

type importFileResponse struct {
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type exchangeResponse struct {
	ID                   int64               `json:"id"`
	FinancialYearID      int64               `json:"financial_year_id"`
	Format               string              `json:"format"`
	StartedOn            string              `json:"started_on,omitempty"`
	StoppedOn            string              `json:"stopped_on"`
	Opened               bool                `json:"opened"`
	ClosedAt             *time.Time          `json:"closed_at,omitempty"`
	PublicToken          string              `json:"public_token,omitempty"`
	PublicTokenExpiredAt *time.Time          `json:"public_token_expired_at,omitempty"`
	ImportFile           *importFileResponse `json:"import_file,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// toExchangeResponse converts an exchange for output. The public token is
// left out of responses served to token holders.
func toExchangeResponse(x core.Exchange, withToken bool) exchangeResponse {
	resp := exchangeResponse{
		ID:              x.ID,
		FinancialYearID: x.FinancialYearID,
		Format:          x.Format,
		StoppedOn:       x.StoppedOn.Format(time.DateOnly),
		Opened:          x.Opened(),
		ClosedAt:        x.ClosedAt,
		CreatedAt:       x.CreatedAt,
		UpdatedAt:       x.UpdatedAt,
	}
	if !x.StartedOn.IsZero() {
		resp.StartedOn = x.StartedOn.Format(time.DateOnly)
	}
	if withToken {
		resp.PublicToken = x.PublicToken
		resp.PublicTokenExpiredAt = x.PublicTokenExpiredAt
	}
	if f := x.ImportFile; f != nil {
		resp.ImportFile = &importFileResponse{
			FileName:    f.FileName,
			ContentType: f.ContentType,
			Size:        f.Size,
			UpdatedAt:   f.UpdatedAt,
		}
	}
	return resp
}

type importResponse struct {
	RunID         string `json:"run_id"`
	Success       bool   `json:"success"`
	State         string `json:"state"`
	Entries       int    `json:"entries"`
	Items         int    `json:"items"`
	SkippedGroups int    `json:"skipped_groups"`
	DurationMS    int64  `json:"duration_ms"`
}

// exchangeID reads the {exchangeID} URL parameter.
func exchangeID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "exchangeID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, invalidRequest("exchange id %q", raw)
	}
	return id, nil
}

// requestLocale picks the message locale: the "locale" form or query value,
// then the first Accept-Language tag. Empty selects the service default.
func requestLocale(r *http.Request) string {
	if l := r.FormValue("locale"); l != "" {
		return l
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, _ := tags[0].Base()
	return base.String()
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}

// handleCreateExchange opens an exchange on a financial year.
func (s *Server) handleCreateExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FinancialYearID int64  `json:"financial_year_id"`
		Format          string `json:"format"`
		StartedOn       string `json:"started_on"`
		StoppedOn       string `json:"stopped_on"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, invalidRequest("body: %v", err), http.StatusBadRequest)
		return
	}
	if req.FinancialYearID < 1 {
		s.respondError(w, r, invalidRequest("financial_year_id is required"), http.StatusBadRequest)
		return
	}

	x := core.Exchange{FinancialYearID: req.FinancialYearID, Format: req.Format}
	var err error
	if x.StartedOn, err = parseDay("started_on", req.StartedOn); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if x.StoppedOn, err = parseDay("stopped_on", req.StoppedOn); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	created, err := s.service.CreateExchange(r.Context(), x)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, toExchangeResponse(created, true))
}

func parseDay(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, invalidRequest("%s must be YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

// handleGetExchange returns one exchange.
func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	id, err := exchangeID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	x, err := s.service.GetExchange(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, toExchangeResponse(x, true))
}

// handleImport runs an exchange file import. The whole file is read into
// memory: it is parsed as one batch and attached to the exchange afterwards.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id, err := exchangeID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, fmt.Errorf("%w: request body over %d bytes", core.ErrFileTooLarge, maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, invalidRequest("multipart form: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/csv"
	}

	ctx := core.ContextWithOrigin(r.Context(), core.Origin{
		Source:    "http",
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	res, err := s.service.ImportExchange(ctx, core.ImportRequest{
		ExchangeID: id,
		File: core.ImportFile{
			FileName:    header.Filename,
			ContentType: contentType,
			Data:        data,
		},
		Locale: requestLocale(r),
	})
	if err != nil {
		s.respondErrorWith(w, r, err, statusFor(err), ErrorResponse{RunID: res.RunID})
		return
	}

	writeJSON(w, r, http.StatusOK, importResponse{
		RunID:         res.RunID,
		Success:       res.Success,
		State:         string(res.State),
		Entries:       res.Entries,
		Items:         res.Items,
		SkippedGroups: res.SkippedGroups,
		DurationMS:    res.Duration.Milliseconds(),
	})
}

// handleDownloadImportFile returns the file attached by the last import.
func (s *Server) handleDownloadImportFile(w http.ResponseWriter, r *http.Request) {
	id, err := exchangeID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	f, err := s.service.ImportFile(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}

// handleCloseExchange closes an exchange; later imports are refused.
func (s *Server) handleCloseExchange(w http.ResponseWriter, r *http.Request) {
	id, err := exchangeID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	x, err := s.service.CloseExchange(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, toExchangeResponse(x, true))
}

// handleGeneratePublicToken issues a new public token for the exchange.
func (s *Server) handleGeneratePublicToken(w http.ResponseWriter, r *http.Request) {
	id, err := exchangeID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	x, err := s.service.GeneratePublicToken(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, toExchangeResponse(x, true))
}

// handlePublicExchange resolves a public token to its exchange.
func (s *Server) handlePublicExchange(w http.ResponseWriter, r *http.Request) {
	x, err := s.service.ExchangeByPublicToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, toExchangeResponse(x, false))
}
