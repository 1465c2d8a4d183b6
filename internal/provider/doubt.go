package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"
)

// snippetLimit caps how much of an error body is kept for display.
const snippetLimit = 200

// ErrMalformedReply is returned when a 2xx reply lacks the expected field.
var ErrMalformedReply = errors.New("malformed reply")

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Snippet)
}

// DoubtClient talks to the ask-doubt HTTP API: POST /ask-doubt for answers
// and POST /ocr for image text extraction.
type DoubtClient struct {
	baseURL string
	http    *http.Client
}

// NewDoubtClient returns a client for the API rooted at baseURL. A nil
// httpClient means http.DefaultClient (no timeout).
func NewDoubtClient(baseURL string, httpClient *http.Client) *DoubtClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DoubtClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *DoubtClient) Name() string { return "prepseek" }

type askRequest struct {
	Messages []Turn `json:"messages"`
}

type askResponse struct {
	Answer *string `json:"answer"`
}

// Answer posts the whole transcript and returns the answer field of the reply.
func (c *DoubtClient) Answer(ctx context.Context, transcript []Turn) (string, error) {
	if transcript == nil {
		transcript = []Turn{}
	}
	body, err := json.Marshal(askRequest{Messages: transcript})
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask-doubt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ask-doubt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var reply askResponse
	if err := c.do(req, "ask-doubt", &reply); err != nil {
		return "", err
	}
	if reply.Answer == nil {
		return "", fmt.Errorf("ask-doubt: %w: missing answer field", ErrMalformedReply)
	}
	return *reply.Answer, nil
}

type ocrResponse struct {
	Text *string `json:"text"`
}

// Recognize uploads img as the multipart field "image" and returns the extracted text.
func (c *DoubtClient) Recognize(ctx context.Context, img Image) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := img.Name
	if name == "" {
		name = "image"
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", &buf)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var reply ocrResponse
	if err := c.do(req, "ocr", &reply); err != nil {
		return "", err
	}
	if reply.Text == nil {
		return "", fmt.Errorf("ocr: %w: missing text field", ErrMalformedReply)
	}
	return *reply.Text, nil
}

// do executes req and decodes a 2xx JSON body into out. Non-2xx responses
// and undecodable bodies become *StatusError so callers can show a snippet.
func (c *DoubtClient) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Snippet: snippet(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Snippet: snippet(data)}, ErrMalformedReply)
	}
	return nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}
