package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/customHttpClient"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

// Client talks to the storage, catalog and chat endpoints. Every failure it
// returns is a *sessionModel.ServiceError.
type Client struct {
	httpClient   *http.Client
	documentsURL string
	chatURL      string
	authToken    string
	log          *logger_i.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithAuthToken sends a bearer token on every request.
func WithAuthToken(token string) Option {
	return func(cl *Client) {
		cl.authToken = token
	}
}

func New(settings config.ClientSettings, opts ...Option) *Client {
	c := &Client{
		httpClient:   customHttpClient.Shared(),
		documentsURL: settings.DocumentsURL,
		chatURL:      settings.ChatURL,
		log:          logger_i.NewLogger("transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put sends body as one request to destination.
func (c *Client) Put(ctx context.Context, destination, contentType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, destination, bytes.NewReader(body))
	if err != nil {
		return 0, &sessionModel.ServiceError{Operation: "upload", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &sessionModel.ServiceError{Operation: "upload", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if !isSuccess(resp.StatusCode) {
		return resp.StatusCode, &sessionModel.ServiceError{
			Operation:  "upload",
			StatusCode: resp.StatusCode,
			Message:    serviceMessage(raw),
		}
	}
	c.log.Debug("upload stored", "status", resp.StatusCode, "bytes", len(body))
	return resp.StatusCode, nil
}

// FetchDocuments lists the user's documents in server order. A body that is
// not a JSON array is an empty catalog, and entries that are not objects are
// skipped.
func (c *Client) FetchDocuments(ctx context.Context, userID string) ([]commonModels.DocumentRecord, error) {
	endpoint, err := url.Parse(c.documentsURL)
	if err != nil {
		return nil, &sessionModel.ServiceError{Operation: "documents", Err: err}
	}
	q := endpoint.Query()
	q.Set("user_id", userID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &sessionModel.ServiceError{Operation: "documents", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &sessionModel.ServiceError{Operation: "documents", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sessionModel.ServiceError{Operation: "documents", StatusCode: resp.StatusCode, Err: err}
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &sessionModel.ServiceError{
			Operation:  "documents",
			StatusCode: resp.StatusCode,
			Message:    serviceMessage(raw),
		}
	}

	docs, skipped := DecodeDocuments(raw)
	if skipped > 0 {
		c.log.Warn("skipped malformed catalog entries", "count", skipped)
	}
	return docs, nil
}

// Ask posts a question and returns the answer text picked from the response.
func (c *Client) Ask(ctx context.Context, question, userID string) (string, error) {
	payload, err := json.Marshal(chatRequest{Question: question, UserID: userID})
	if err != nil {
		return "", &sessionModel.ServiceError{Operation: "chat", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(payload))
	if err != nil {
		return "", &sessionModel.ServiceError{Operation: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &sessionModel.ServiceError{Operation: "chat", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &sessionModel.ServiceError{Operation: "chat", StatusCode: resp.StatusCode, Err: err}
	}
	if !isSuccess(resp.StatusCode) {
		return "", &sessionModel.ServiceError{
			Operation:  "chat",
			StatusCode: resp.StatusCode,
			Message:    serviceMessage(raw),
		}
	}
	return ExtractAnswer(raw), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

type chatRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// serviceMessage returns the "message" field of an error body. Other fields,
// "error" included, carry backend detail and are never surfaced.
func serviceMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if s, ok := body["message"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return ""
}

// ExtractAnswer picks the first non-empty string among answer, body and
// message. Anything else is shown as the response text itself.
func ExtractAnswer(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"answer", "body", "message"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return compact.String()
	}
	return string(raw)
}

// PathEscape escapes one path segment so slashes and spaces in user ids and
// file names stay inside their segment.
func PathEscape(segment string) string {
	return url.PathEscape(segment)
}

// UploadDestination is the PUT target for a user's file.
func UploadDestination(base, userID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), PathEscape(userID), PathEscape(fileName))
}
