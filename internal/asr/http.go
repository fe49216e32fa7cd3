package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPConfig configures an HTTPClient backend talking to a multipart
// transcription endpoint (the shape used by OpenAI-compatible Whisper
// APIs).
type HTTPConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// HTTPClient posts normalized WAV chunks to a remote transcription
// endpoint.
type HTTPClient struct {
	cfg        HTTPConfig
	httpClient *http.Client
}

// NewHTTPClient constructs an HTTP-backed ASR client.
func NewHTTPClient(cfg HTTPConfig, httpClient *http.Client) *HTTPClient {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{cfg: cfg, httpClient: httpClient}
}

func (c *HTTPClient) Provider() string { return c.cfg.Provider }
func (c *HTTPClient) Model() string    { return c.cfg.Model }

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Error    *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// TranscribeChunk uploads the WAV chunk as multipart form data and parses
// the JSON transcription response.
func (c *HTTPClient) TranscribeChunk(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Response{}, NewError(ErrorKindAuth, "transcribe_chunk", fmt.Errorf("missing api key"))
	}
	file, err := os.Open(req.WavPath)
	if err != nil {
		return Response{}, NewError(ErrorKindClient, "transcribe_chunk", fmt.Errorf("open wav chunk: %w", err))
	}
	defer file.Close()

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(req.WavPath))
	if err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", err)
	}
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	_ = writer.WriteField("model", model)
	if req.LanguageHint != "" {
		_ = writer.WriteField("language", req.LanguageHint)
	}
	if err := writer.Close(); err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(body.String()))
	if err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, NewError(ClassifyError(err), "transcribe_chunk", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		kind := statusKind(resp.StatusCode)
		return Response{}, NewError(kind, "transcribe_chunk", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Response{}, NewError(ErrorKindUnknown, "transcribe_chunk", fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return Response{}, NewError(ErrorKindServer, "transcribe_chunk", fmt.Errorf("api error: %s", parsed.Error.Message))
	}

	return Response{
		Text:     parsed.Text,
		Language: parsed.Language,
		Meta:     map[string]any{"backend": "http", "status_code": resp.StatusCode},
	}, nil
}

func statusKind(statusCode int) ErrorKind {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorKindAuth
	case statusCode == http.StatusTooManyRequests:
		return ErrorKindQuota
	case statusCode == http.StatusRequestTimeout:
		return ErrorKindTimeout
	case statusCode >= http.StatusInternalServerError:
		return ErrorKindServer
	case statusCode >= http.StatusBadRequest:
		return ErrorKindClient
	default:
		return ErrorKindUnknown
	}
}
