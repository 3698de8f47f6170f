// Package chunks provides the HTTP API over the filing pipeline: document
// normalization, statement location, extraction and the stored tickers.
package chunks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"intrinseco/pkg/core/calc"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/extract"
	"intrinseco/pkg/core/ingest"
	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/pipeline"
	"intrinseco/pkg/core/store"
	"intrinseco/pkg/core/utils"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 64 << 20

// Handler holds dependencies for the filing endpoints. Extractor and Repo
// are optional; their endpoints answer 503 when missing.
type Handler struct {
	Loader       *ingest.Loader
	Chunker      pipeline.Chunker
	Extractor    pipeline.Extractor
	Repo         store.Repository
	MinHits      int
	MaxBodyBytes int64
	Dump         *utils.DumpWriter
	log          *zap.Logger
}

// NewHandler creates a handler with the default limits.
func NewHandler(loader *ingest.Loader, c pipeline.Chunker, e pipeline.Extractor, repo store.Repository) *Handler {
	return &Handler{
		Loader:       loader,
		Chunker:      c,
		Extractor:    e,
		Repo:         repo,
		MinHits:      chunker.DefaultMinHits,
		MaxBodyBytes: DefaultMaxBodyBytes,
		log:          logging.Named("api"),
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/normalize", h.HandleNormalize)
	mux.HandleFunc("/api/chunks", h.HandleChunks)
	mux.HandleFunc("/api/extract", h.HandleExtract)
	mux.HandleFunc("/api/tickers", h.HandleTickers)
	mux.HandleFunc("/api/tickers/{ticker}", h.HandleTicker)
	mux.HandleFunc("/api/tickers/{ticker}/{period}", h.HandlePeriod)
	mux.Handle("/metrics", promhttp.Handler())
}

// DocumentRequest carries a raw document. Binary formats (PDF) travel in
// ContentBase64; Filename selects the format and defaults to HTML.
type DocumentRequest struct {
	Filename      string `json:"filename"`
	Content       string `json:"content"`
	ContentBase64 string `json:"content_base64"`
	StartPage     string `json:"start_page"`
	EndPage       string `json:"end_page"`
}

func (d DocumentRequest) data() ([]byte, error) {
	if d.ContentBase64 != "" {
		return base64.StdEncoding.DecodeString(d.ContentBase64)
	}
	return []byte(d.Content), nil
}

func (d DocumentRequest) name() string {
	if d.Filename == "" {
		return "document.html"
	}
	return d.Filename
}

// NormalizeResponse is returned by POST /api/normalize.
type NormalizeResponse struct {
	Format ingest.Format `json:"format"`
	Text   string        `json:"text"`
	Length int           `json:"length"`
}

// HandleNormalize handles POST /api/normalize.
func (h *Handler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodPost) {
		return
	}

	var req DocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, ok := h.load(w, r.Context(), req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NormalizeResponse{Format: doc.Format, Text: doc.Text, Length: len([]rune(doc.Text))})
}

// ChunksRequest is the body of POST /api/chunks. Content is normalized text.
type ChunksRequest struct {
	Content string `json:"content"`
	MinHits *int   `json:"min_hits"`
}

// HandleChunks handles POST /api/chunks.
func (h *Handler) HandleChunks(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodPost) {
		return
	}

	var req ChunksRequest
	if !h.decode(w, r, &req) {
		return
	}
	minHits := h.MinHits
	if req.MinHits != nil {
		minHits = *req.MinHits
	}

	out, err := h.Chunker.GetChunks(r.Context(), req.Content, minHits)
	if err != nil {
		h.log.Warn("chunk location failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "no usable chunks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	DocumentRequest
	Ticker  string `json:"ticker"`
	Period  string `json:"period"`
	MinHits int    `json:"min_hits"`
	Store   bool   `json:"store"`
}

// HandleExtract handles POST /api/extract: the whole pipeline on one
// document, optionally storing the result.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodPost) {
		return
	}
	if h.Extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction is not configured")
		return
	}

	var req ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := req.data()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 content")
		return
	}

	opts := []pipeline.Option{
		pipeline.WithMinHits(h.MinHits),
		pipeline.WithDumpWriter(h.Dump),
	}
	if req.Store {
		if h.Repo == nil {
			writeError(w, http.StatusServiceUnavailable, "storage is not configured")
			return
		}
		opts = append(opts, pipeline.WithRepository(h.Repo))
	}

	loader := bytesLoader{loader: h.Loader, name: req.name(), data: data}
	o := pipeline.NewOrchestrator(loader, h.Chunker, h.Extractor, opts...)
	report, err := o.Process(r.Context(), pipeline.Job{
		Path:      req.name(),
		Ticker:    req.Ticker,
		Period:    req.Period,
		StartPage: req.StartPage,
		EndPage:   req.EndPage,
		MinHits:   req.MinHits,
	})
	if err != nil {
		writeJSON(w, statusFor(err), report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TickersResponse is returned by GET /api/tickers.
type TickersResponse struct {
	Count   int                   `json:"count"`
	Page    int                   `json:"page"`
	Tickers []store.TickerSummary `json:"tickers"`
}

// HandleTickers handles GET /api/tickers?page=0&page_size=20.
func (h *Handler) HandleTickers(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodGet) || !h.requireRepo(w) {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	count, err := h.Repo.CountTickers(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	list, err := h.Repo.ListTickers(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TickersResponse{Count: count, Page: max(page, 0), Tickers: list})
}

// TickerResponse is returned by GET /api/tickers/{ticker}.
type TickerResponse struct {
	Ticker  string                         `json:"ticker"`
	Periods []string                       `json:"periods"`
	Data    map[string]calc.Derived        `json:"data"`
	Changes map[string]map[string]*float64 `json:"changes"`
	Ratios  map[string]calc.PriceRatios    `json:"ratios,omitempty"`
}

// HandleTicker handles GET and DELETE /api/tickers/{ticker}. GET accepts
// an optional ?price= to compute market multiples for every period.
func (h *Handler) HandleTicker(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodGet, http.MethodDelete) || !h.requireRepo(w) {
		return
	}
	ticker := r.PathValue("ticker")

	if r.Method == http.MethodDelete {
		if err := h.Repo.DeleteTicker(r.Context(), ticker); err != nil {
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	stored, err := h.Repo.GetTicker(r.Context(), ticker)
	if err != nil {
		h.fail(w, err)
		return
	}

	var price float64
	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err = strconv.ParseFloat(raw, 64)
		if err != nil || price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be a positive number")
			return
		}
	}
	writeJSON(w, http.StatusOK, NewTickerResponse(ticker, stored, price))
}

// NewTickerResponse derives every stored period of ticker and the
// year-over-year changes. Ratios are filled only for a positive price.
func NewTickerResponse(ticker string, stored map[string]calc.Finances, price float64) TickerResponse {
	resp := TickerResponse{
		Ticker:  strings.ToUpper(ticker),
		Periods: make([]string, 0, len(stored)),
		Data:    make(map[string]calc.Derived, len(stored)),
	}
	for period, f := range stored {
		resp.Periods = append(resp.Periods, period)
		resp.Data[period] = calc.Derive(f)
	}
	calc.SortPeriods(resp.Periods)
	resp.Changes = calc.PeriodChanges(resp.Data)

	if price > 0 {
		resp.Ratios = make(map[string]calc.PriceRatios, len(resp.Data))
		for period, d := range resp.Data {
			resp.Ratios[period] = calc.Ratios(price, d)
		}
	}
	return resp
}

// HandlePeriod handles DELETE /api/tickers/{ticker}/{period}.
func (h *Handler) HandlePeriod(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r, http.MethodDelete) || !h.requireRepo(w) {
		return
	}
	if err := h.Repo.DeletePeriod(r.Context(), r.PathValue("ticker"), r.PathValue("period")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// preflight sets the CORS headers, answers OPTIONS and rejects other
// methods. It reports whether the caller should continue.
func (h *Handler) preflight(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(append(methods, http.MethodOptions), ", "))
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) load(w http.ResponseWriter, ctx context.Context, req DocumentRequest) (ingest.Document, bool) {
	data, err := req.data()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 content")
		return ingest.Document{}, false
	}
	doc, err := h.Loader.LoadBytes(ctx, req.name(), data, req.StartPage, req.EndPage)
	if err != nil {
		h.fail(w, err)
		return ingest.Document{}, false
	}
	return doc, true
}

func (h *Handler) requireRepo(w http.ResponseWriter) bool {
	if h.Repo == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid), errors.Is(err, ingest.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrNoText), errors.Is(err, chunker.ErrChunker),
		errors.Is(err, pipeline.ErrLowConfidence), errors.Is(err, pipeline.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrExtraction):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// bytesLoader serves a document already in memory to the pipeline.
type bytesLoader struct {
	loader *ingest.Loader
	name   string
	data   []byte
}

func (b bytesLoader) Load(ctx context.Context, _, startPage, endPage string) (ingest.Document, error) {
	return b.loader.LoadBytes(ctx, b.name, b.data, startPage, endPage)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
