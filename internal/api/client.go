package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultServer       = "http://localhost:5000"
	defaultHTTPTimeout  = 2 * time.Minute
	maxErrorBodyBytes   = 512
	requestIDHeader     = "X-Request-ID"
	uploadFieldName     = "files"
	feedStatusSuccess   = "success"
	endpointFeed        = "/feed"
	endpointComments    = "/comments"
	endpointChat        = "/chat"
	endpointUpload      = "/upload"
	endpointRemoveBook  = "/remove-book"
	defaultItemsPerPage = 10
	serverEnvVar        = "BOOKFEED_SERVER"
	itemsPerPageEnvVar  = "BOOKFEED_ITEMS_PER_PAGE"
	contentTypeJSON     = "application/json"
)

// ErrNoFiles is returned by Upload when called without any paths.
var ErrNoFiles = errors.New("no files selected")

// Config describes how to reach the backend.
type Config struct {
	Server       string
	ItemsPerPage int
	HTTPClient   *http.Client
	Logger       logrus.FieldLogger
}

// Client talks to the BookFeed JSON backend.
type Client struct {
	base         *url.URL
	itemsPerPage int
	http         *http.Client
	log          logrus.FieldLogger
}

// NewFromEnv fills unset fields from the environment and builds a client.
func NewFromEnv(cfg Config) (*Client, error) {
	if cfg.Server == "" {
		if env := os.Getenv(serverEnvVar); env != "" {
			cfg.Server = env
		} else {
			cfg.Server = defaultServer
		}
	}
	if cfg.ItemsPerPage <= 0 {
		if env := os.Getenv(itemsPerPageEnvVar); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid %s %q", itemsPerPageEnvVar, env)
			}
			cfg.ItemsPerPage = n
		} else {
			cfg.ItemsPerPage = defaultItemsPerPage
		}
	}
	return New(cfg)
}

// New builds a client from an explicit configuration.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if raw == "" {
		raw = defaultServer
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", raw)
	}
	perPage := cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = defaultItemsPerPage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		base:         base,
		itemsPerPage: perPage,
		http:         pickHTTPClient(cfg.HTTPClient),
		log:          logger,
	}, nil
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Chat replies wait on an LLM; callers bound individual requests with contexts.
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// ItemsPerPage reports the configured page size.
func (c *Client) ItemsPerPage() int {
	return c.itemsPerPage
}

// Server reports the backend base URL.
func (c *Client) Server() string {
	return c.base.String()
}

// Feed fetches one page of quotes.
func (c *Client) Feed(ctx context.Context, query FeedQuery) (FeedPage, error) {
	perPage := query.ItemsPerPage
	if perPage <= 0 {
		perPage = c.itemsPerPage
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("books", strings.Join(query.Books, ","))
	params.Set("items_per_page", strconv.Itoa(perPage))

	req, err := c.newRequest(ctx, http.MethodGet, endpointFeed, params, nil)
	if err != nil {
		return FeedPage{}, err
	}
	var page FeedPage
	if err := c.doJSON(req, endpointFeed, &page); err != nil {
		return FeedPage{}, err
	}
	if page.Status != feedStatusSuccess {
		return FeedPage{}, &BackendError{Endpoint: endpointFeed, Message: firstNonEmpty(page.Message, "no feed data received")}
	}
	return page, nil
}

// Comments fetches the thread attached to quoteID, oldest first.
func (c *Client) Comments(ctx context.Context, quoteID string) ([]Comment, error) {
	if strings.TrimSpace(quoteID) == "" {
		return nil, fmt.Errorf("quote id cannot be empty")
	}
	path := endpointComments + "/" + url.PathEscape(quoteID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var payload commentsResponse
	if err := c.doJSON(req, endpointComments, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, &BackendError{Endpoint: endpointComments, Message: firstNonEmpty(payload.Error, "failed to load comments")}
	}
	if payload.Comments == nil {
		return []Comment{}, nil
	}
	return payload.Comments, nil
}

// Chat posts a message to a quote thread.
func (c *Client) Chat(ctx context.Context, body ChatRequest) (ChatResult, error) {
	if strings.TrimSpace(body.Message) == "" {
		return ChatResult{}, fmt.Errorf("message cannot be empty")
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return ChatResult{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpointChat, nil, bytes.NewReader(buf))
	if err != nil {
		return ChatResult{}, err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	var result ChatResult
	if err := c.doJSON(req, endpointChat, &result); err != nil {
		return ChatResult{}, err
	}
	if !result.Success {
		return result, &BackendError{Endpoint: endpointChat, Message: firstNonEmpty(result.Error, "failed to send message")}
	}
	return result, nil
}

// Upload posts the files at paths as one multipart request.
func (c *Client) Upload(ctx context.Context, paths []string) (UploadResult, error) {
	if len(paths) == 0 {
		return UploadResult{}, ErrNoFiles
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		if err := attachFile(writer, path); err != nil {
			return UploadResult{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpointUpload, nil, &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, requestID, err := c.do(req)
	if err != nil {
		return UploadResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, err
	}
	var result UploadResult
	decodeErr := json.Unmarshal(data, &result)
	// The backend reports rejected uploads (400/413/500) as {"error": "..."}.
	if decodeErr == nil && result.Error != "" {
		c.logOutcome(endpointUpload, requestID, resp.StatusCode, result.Error)
		return result, &BackendError{Endpoint: endpointUpload, Message: result.Error}
	}
	if resp.StatusCode >= 400 {
		return UploadResult{}, c.statusError(endpointUpload, requestID, resp, data)
	}
	if decodeErr != nil {
		return UploadResult{}, fmt.Errorf("failed to decode %s response: %w", endpointUpload, decodeErr)
	}
	c.logOutcome(endpointUpload, requestID, resp.StatusCode, "")
	return result, nil
}

// RemoveBook asks the backend to drop every quote from title.
func (c *Client) RemoveBook(ctx context.Context, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("book title cannot be empty")
	}
	buf, err := json.Marshal(removeBookRequest{Book: title})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpointRemoveBook, nil, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	resp, requestID, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return c.statusError(endpointRemoveBook, requestID, resp, data)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	c.logOutcome(endpointRemoveBook, requestID, resp.StatusCode, "")
	return nil
}

func attachFile(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	part, err := writer.CreateFormFile(uploadFieldName, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := *c.base
	escaped := strings.TrimRight(c.base.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, fmt.Errorf("build request path %q: %w", escaped, err)
	}
	target.Path = unescaped
	target.RawPath = escaped
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, string, error) {
	requestID := req.Header.Get(requestIDHeader)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method":     req.Method,
			"url":        req.URL.String(),
			"request_id": requestID,
		}).WithError(err).Warn("bookfeed request failed")
		return nil, requestID, err
	}
	return resp, requestID, nil
}

func (c *Client) doJSON(req *http.Request, endpoint string, out any) error {
	resp, requestID, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return c.statusError(endpoint, requestID, resp, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logOutcome(endpoint, requestID, resp.StatusCode, err.Error())
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	c.logOutcome(endpoint, requestID, resp.StatusCode, "")
	return nil
}

func (c *Client) statusError(endpoint, requestID string, resp *http.Response, body []byte) error {
	message := strings.TrimSpace(string(body))
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		message = firstNonEmpty(envelope.Error, envelope.Message, message)
	}
	if len(message) > maxErrorBodyBytes {
		message = message[:maxErrorBodyBytes]
	}
	c.logOutcome(endpoint, requestID, resp.StatusCode, message)
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    message,
	}
}

func (c *Client) logOutcome(endpoint, requestID string, status int, problem string) {
	entry := c.log.WithFields(logrus.Fields{
		"endpoint":   endpoint,
		"request_id": requestID,
		"status":     status,
	})
	if problem != "" {
		entry.WithField("problem", problem).Warn("bookfeed request rejected")
		return
	}
	entry.Debug("bookfeed request completed")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
