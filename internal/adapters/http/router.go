package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/config"
	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

const (
	serviceName     = "digest-api"
	reportDateInput = "2006-01-02"
)

// DigestRecorder receives per-action observations.
type DigestRecorder interface {
	RecordDocuments(succeeded, failed int)
	RecordRun(action, stage string, promptChars int)
	RecordCatalog(source string, models []string)
}

type MetricsProvider interface {
	DigestRecorder
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

type Router struct {
	cfg       config.Config
	digest    ports.DigestService
	catalog   ports.ModelCatalogResolver
	templates ports.TemplateService
	metrics   MetricsProvider
}

func NewRouter(
	cfg config.Config,
	digest ports.DigestService,
	catalog ports.ModelCatalogResolver,
	templates ports.TemplateService,
) *Router {
	return &Router{
		cfg:       cfg,
		digest:    digest,
		catalog:   catalog,
		templates: templates,
	}
}

func (rt *Router) WithMetrics(metrics MetricsProvider) *Router {
	rt.metrics = metrics
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", serveOpenAPI)
	mux.HandleFunc("GET /v1/models", rt.listModels)
	mux.HandleFunc("POST /v1/prompts", rt.buildPrompt)
	mux.HandleFunc("POST /v1/generations", rt.generate)
	mux.HandleFunc("GET /v1/templates/{name}", rt.getTemplate)
	mux.HandleFunc("PUT /v1/templates/{name}", rt.saveTemplate)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if validator, err := newOpenAPIValidator(context.Background()); err != nil {
		slog.Error("openapi_validator_disabled", "error", err)
	} else {
		handler = validator.middleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	catalog := rt.catalog.Resolve(r.Context(), rt.cfg.GoogleAPIKey)
	if rt.metrics != nil {
		rt.metrics.RecordCatalog(string(catalog.Source), catalog.IDs())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  catalog.IDs(),
		"default": catalog.Default().ID(),
		"source":  catalog.Source,
	})
}

type documentStatus struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Pages       *int   `json:"pages,omitempty"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

type promptResponse struct {
	Prompt    string                 `json:"prompt"`
	Uploaded  int                    `json:"uploaded"`
	Succeeded int                    `json:"succeeded"`
	Documents []documentStatus       `json:"documents"`
	Failures  []domain.FailureReport `json:"failures"`
}

func (rt *Router) buildPrompt(w http.ResponseWriter, r *http.Request) {
	req, uploads, ok := rt.readDigestRequest(w, r)
	if !ok {
		return
	}

	run, err := rt.digest.BuildPrompt(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordRun("prompt", run)

	statuses := documentStatuses(uploads, run.Results, extractPDFPageCount)
	writeJSON(w, http.StatusOK, promptResponse{
		Prompt:    run.Prompt.Text(),
		Uploaded:  len(uploads),
		Succeeded: run.Corpus.Len(),
		Documents: statuses,
		Failures:  run.Failures,
	})
}

type generationResponse struct {
	Model    string                 `json:"model"`
	Text     string                 `json:"text,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Kind     domain.FailureKind     `json:"kind,omitempty"`
	Stage    domain.Stage           `json:"stage"`
	Failures []domain.FailureReport `json:"failures"`
}

func (rt *Router) generate(w http.ResponseWriter, r *http.Request) {
	req, _, ok := rt.readDigestRequest(w, r)
	if !ok {
		return
	}

	run, err := rt.digest.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordRun("generate", run)

	resp := generationResponse{
		Stage:    run.Stage,
		Failures: run.Failures,
	}
	if run.Outcome != nil {
		resp.Model = run.Outcome.Model
		resp.Text = run.Outcome.Content
		resp.Error = run.Outcome.Message
		resp.Kind = run.Outcome.Kind
	}
	writeJSON(w, mapOutcomeToHTTPStatus(run.Outcome), resp)
}

func (rt *Router) getTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := rt.templates.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (rt *Router) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	tpl := domain.PromptTemplate{Name: r.PathValue("name"), Content: body.Content}
	if err := rt.templates.Save(r.Context(), tpl); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// readDigestRequest writes the error response itself and reports whether to continue.
func (rt *Router) readDigestRequest(w http.ResponseWriter, r *http.Request) (domain.DigestRequest, []upload, bool) {
	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if err := parseDigestForm(w, r, maxBytes); err != nil {
		if errors.Is(err, errUploadTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
			return domain.DigestRequest{}, nil, false
		}
		writeError(w, r, err)
		return domain.DigestRequest{}, nil, false
	}

	uploads, err := readUploads(r)
	if err != nil {
		writeError(w, r, err)
		return domain.DigestRequest{}, nil, false
	}

	req, err := rt.digestRequest(r, uploads)
	if err != nil {
		writeError(w, r, err)
		return domain.DigestRequest{}, nil, false
	}
	return req, uploads, true
}

func (rt *Router) digestRequest(r *http.Request, uploads []upload) (domain.DigestRequest, error) {
	req := domain.DigestRequest{
		Documents: documentsOf(uploads),
		APIKey:    rt.cfg.GoogleAPIKey,
	}

	loc := rt.location()
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		date, err := time.ParseInLocation(reportDateInput, raw, loc)
		if err != nil {
			return domain.DigestRequest{}, domain.WrapError(domain.ErrInvalidInput, "parse date", err)
		}
		req.Date = date
	} else {
		req.Date = time.Now().In(loc)
	}

	if content := r.FormValue("template"); strings.TrimSpace(content) != "" {
		req.Template = domain.PromptTemplate{Content: content}
	} else if name := strings.TrimSpace(r.FormValue("template_name")); name != "" {
		if rt.templates == nil {
			return domain.DigestRequest{}, domain.WrapError(domain.ErrTemplateNotFound, "resolve template", errors.New("name="+name))
		}
		tpl, err := rt.templates.Get(r.Context(), name)
		if err != nil {
			return domain.DigestRequest{}, err
		}
		req.Template = *tpl
	}

	if raw := strings.TrimSpace(r.FormValue("model")); raw != "" {
		model, err := domain.NewModelDescriptor(raw)
		if err != nil {
			return domain.DigestRequest{}, err
		}
		req.Model = model
	}
	return req, nil
}

func (rt *Router) location() *time.Location {
	if rt.cfg.ReportLocation != nil {
		return rt.cfg.ReportLocation
	}
	return time.UTC
}

func (rt *Router) recordRun(action string, run *domain.DigestRun) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordDocuments(run.Corpus.Len(), len(run.Failures))
	rt.metrics.RecordRun(action, string(run.Stage), len([]rune(run.Prompt.Text())))
}

// documentStatuses reports the extracted page count. A document whose text could not be
// decoded falls back to its structural count, so a scanned or encrypted PDF still shows
// its size while a corrupt one shows none.
func documentStatuses(uploads []upload, results []domain.ExtractionResult, countPages pageCounter) []documentStatus {
	out := make([]documentStatus, 0, len(uploads))
	for i, u := range uploads {
		status := documentStatus{
			Name:        u.doc.Name,
			ContentType: u.contentType,
			Status:      "ok",
		}
		if i < len(results) {
			res := results[i]
			if res.Failed {
				status.Status = "failed"
				status.Reason = res.Reason
				if countPages != nil {
					status.Pages = countPages(u.doc.Name, u.doc.Data, u.contentType)
				}
			} else {
				pages := len(res.Pages)
				status.Pages = &pages
			}
		}
		out = append(out, status)
	}
	return out
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
