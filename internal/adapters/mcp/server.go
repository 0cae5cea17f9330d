package mcpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/broker-report-digest/internal/config"
	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

const (
	serverName      = "broker-report-digest"
	serverVersion   = "1.0.0"
	reportDateInput = "2006-01-02"
)

// Server exposes the digest actions as MCP tools.
type Server struct {
	cfg       config.Config
	digest    ports.DigestService
	catalog   ports.ModelCatalogResolver
	templates ports.TemplateService
}

func NewServer(
	cfg config.Config,
	digest ports.DigestService,
	catalog ports.ModelCatalogResolver,
	templates ports.TemplateService,
) *Server {
	return &Server{
		cfg:       cfg,
		digest:    digest,
		catalog:   catalog,
		templates: templates,
	}
}

func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List generation-capable models, default first."),
	), s.handleListModels)

	srv.AddTool(mcp.NewTool("build_prompt",
		digestToolOptions("Assemble the digest prompt from broker report documents without calling the model.")...,
	), s.handleBuildPrompt)

	srv.AddTool(mcp.NewTool("generate_digest",
		append(digestToolOptions("Assemble the digest prompt and generate the digest with the selected model."),
			mcp.WithString("model", mcp.Description("Model identifier; the catalog default when omitted.")),
		)...,
	), s.handleGenerateDigest)

	return srv
}

func digestToolOptions(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithArray("documents",
			mcp.Required(),
			mcp.Description("Documents in upload order."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"data_base64": map[string]any{"type": "string"},
				},
				"required": []string{"name", "data_base64"},
			}),
		),
		mcp.WithString("date", mcp.Description("Report date as YYYY-MM-DD; today when omitted.")),
		mcp.WithString("template", mcp.Description("Template text containing the {date} placeholder.")),
		mcp.WithString("template_name", mcp.Description("Name of a stored template.")),
	}
}

// ServeStdio blocks until ctx is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.MCPServer()).Listen(ctx, in, out)
}

func (s *Server) handleListModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog := s.catalog.Resolve(ctx, s.cfg.GoogleAPIKey)
	return jsonResult(map[string]any{
		"models":  catalog.IDs(),
		"default": catalog.Default().ID(),
		"source":  catalog.Source,
	}, false)
}

func (s *Server) handleBuildPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, rejected, err := s.digestRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(req.Documents) == 0 && len(rejected) > 0 {
		return mcp.NewToolResultError(noDecodableDocuments(rejected)), nil
	}
	run, err := s.digest.BuildPrompt(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"prompt":    run.Prompt.Text(),
		"uploaded":  len(req.Documents) + len(rejected),
		"succeeded": run.Corpus.Len(),
		"failures":  append(rejected, run.Failures...),
	}, false)
}

func (s *Server) handleGenerateDigest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, rejected, err := s.digestRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(req.Documents) == 0 && len(rejected) > 0 {
		return mcp.NewToolResultError(noDecodableDocuments(rejected)), nil
	}
	run, err := s.digest.Generate(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	failures := append(rejected, run.Failures...)
	payload := map[string]any{
		"stage":    run.Stage,
		"failures": failures,
	}
	failed := false
	if run.Outcome != nil {
		payload["model"] = run.Outcome.Model
		if run.Outcome.Failed {
			failed = true
			payload["error"] = run.Outcome.Message
			payload["kind"] = run.Outcome.Kind
		} else {
			payload["text"] = run.Outcome.Content
		}
	}
	slog.Info("mcp_generate_digest", "stage", run.Stage, "documents", len(req.Documents)+len(rejected), "failures", len(failures))
	return jsonResult(payload, failed)
}

// digestRequest also returns the entries that could not be decoded; they never reach extraction.
func (s *Server) digestRequest(ctx context.Context, request mcp.CallToolRequest) (domain.DigestRequest, []domain.FailureReport, error) {
	args := request.GetArguments()
	docs, rejected, err := decodeDocuments(args["documents"])
	if err != nil {
		return domain.DigestRequest{}, nil, err
	}
	req := domain.DigestRequest{
		Documents: docs,
		APIKey:    s.cfg.GoogleAPIKey,
	}

	loc := s.cfg.ReportLocation
	if loc == nil {
		loc = time.UTC
	}
	if raw := strings.TrimSpace(request.GetString("date", "")); raw != "" {
		date, err := time.ParseInLocation(reportDateInput, raw, loc)
		if err != nil {
			return domain.DigestRequest{}, nil, domain.WrapError(domain.ErrInvalidInput, "parse date", err)
		}
		req.Date = date
	} else {
		req.Date = time.Now().In(loc)
	}

	if content := request.GetString("template", ""); strings.TrimSpace(content) != "" {
		req.Template = domain.PromptTemplate{Content: content}
	} else if name := strings.TrimSpace(request.GetString("template_name", "")); name != "" {
		tpl, err := s.templates.Get(ctx, name)
		if err != nil {
			return domain.DigestRequest{}, nil, err
		}
		req.Template = *tpl
	}

	if raw := strings.TrimSpace(request.GetString("model", "")); raw != "" {
		model, err := domain.NewModelDescriptor(raw)
		if err != nil {
			return domain.DigestRequest{}, nil, err
		}
		req.Model = model
	}
	return req, rejected, nil
}

// decodeDocuments fails the call only when the argument is not an array.
// A malformed entry becomes a failure report and the rest are still decoded.
func decodeDocuments(raw any) ([]domain.Document, []domain.FailureReport, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, []domain.FailureReport{}, nil
		}
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "decode documents", errors.New("documents must be an array"))
	}

	docs := make([]domain.Document, 0, len(items))
	rejected := []domain.FailureReport{}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			rejected = append(rejected, domain.FailureReport{
				Name:   fmt.Sprintf("documents[%d]", i),
				Reason: "entry must be an object",
			})
			continue
		}
		name, _ := obj["name"].(string)
		if strings.TrimSpace(name) == "" {
			rejected = append(rejected, domain.FailureReport{
				Name:   fmt.Sprintf("documents[%d]", i),
				Reason: "name is required",
			})
			continue
		}
		encoded, _ := obj["data_base64"].(string)
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			rejected = append(rejected, domain.FailureReport{
				Name:   name,
				Reason: "invalid base64: " + err.Error(),
			})
			continue
		}
		docs = append(docs, domain.Document{Name: name, Data: data})
	}
	return docs, rejected, nil
}

func noDecodableDocuments(rejected []domain.FailureReport) string {
	reasons := make([]string, 0, len(rejected))
	for _, r := range rejected {
		reasons = append(reasons, r.Name+": "+r.Reason)
	}
	return "no decodable documents: " + strings.Join(reasons, "; ")
}

func jsonResult(payload any, isError bool) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	result := mcp.NewToolResultText(string(raw))
	result.IsError = isError
	return result, nil
}
