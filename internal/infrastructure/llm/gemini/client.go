package gemini

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "/v1beta"
	listPageSize   = "1000"
	maxListPages   = 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	breakers   *resilience.Breakers
}

func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) WithBreakers(breakers *resilience.Breakers) *Client {
	c.breakers = breakers
	return c
}

type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

// ListModels returns every registry entry across all pages, unfiltered.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]domain.RemoteModel, error) {
	var models []domain.RemoteModel
	err := c.execute(ctx, "gemini.list_models", func(ctx context.Context) error {
		models = models[:0]
		token := ""
		for page := 0; page < maxListPages; page++ {
			query := url.Values{"pageSize": []string{listPageSize}}
			if token != "" {
				query.Set("pageToken", token)
			}
			var resp listModelsResponse
			if err := c.getJSON(ctx, apiVersion+"/models", query, apiKey, &resp, "list models"); err != nil {
				return err
			}
			for _, m := range resp.Models {
				models = append(models, domain.RemoteModel{
					Name:                       m.Name,
					SupportedGenerationMethods: m.SupportedGenerationMethods,
				})
			}
			token = resp.NextPageToken
			if token == "" {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, classifyKind("list models", err)
	}
	return models, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateContent sends the prompt as a single user turn and returns the text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, apiKey string, model domain.ModelDescriptor, prompt string) (string, error) {
	if model.IsZero() {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("model is required"))
	}

	request := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	var response generateResponse
	path := apiVersion + "/" + model.ResourceName() + ":" + domain.GenerateContentMethod
	err := c.execute(ctx, "gemini.generate_content", func(ctx context.Context) error {
		return c.postJSON(ctx, path, apiKey, request, &response, "generate content")
	})
	if err != nil {
		return "", classifyKind("generate content", err)
	}

	if len(response.Candidates) == 0 {
		if reason := response.PromptFeedback.BlockReason; reason != "" {
			return "", domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("prompt blocked: "+reason))
		}
		return "", errors.New("generate content: response has no candidates")
	}

	candidate := response.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		reason := cmp.Or(candidate.FinishReason, "FINISH_REASON_UNSPECIFIED")
		return "", domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("candidate has no content: finishReason="+reason))
	}

	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.breakers == nil {
		return fn(ctx)
	}
	return c.breakers.Do(ctx, operation, fn, geminiVerdict)
}
