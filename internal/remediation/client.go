package remediation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"AccessDeck/internal/logger"
	"AccessDeck/internal/metrics"
	"AccessDeck/internal/webconfig"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrBackendUnavailable covers network failures and an open circuit breaker.
var ErrBackendUnavailable = errors.New("remediation backend unavailable")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Endpoint, e.Message, e.Status)
}

// ProgressFunc receives upload progress in percent (0-100).
type ProgressFunc func(percent int)

// Blob is a downloaded file.
type Blob struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Session struct {
	SessionID        string `json:"sessionId"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type UploadFile struct {
	Name string
	Data []byte
}

type BatchResult struct {
	SessionID string            `json:"sessionId"`
	Files     []BatchFileResult `json:"files"`
}

// BatchFileResult keeps the backend's per-file object verbatim in Raw.
type BatchFileResult struct {
	FileName string          `json:"fileName"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Summary  *Summary        `json:"summary,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

func (b *BatchFileResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		FileName string   `json:"fileName"`
		Name     string   `json:"name"`
		Filename string   `json:"filename"`
		Status   string   `json:"status"`
		Error    string   `json:"error"`
		Summary  *Summary `json:"summary"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.FileName = firstNonEmpty(aux.FileName, aux.Filename, aux.Name)
	b.Status = aux.Status
	b.Error = aux.Error
	b.Summary = aux.Summary
	b.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Client talks to the remote analysis/remediation backend. Every call waits
// on the rate limiter and runs inside the circuit breaker.
type Client struct {
	baseURL   string
	endpoints webconfig.BackendEndpoints
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.Registry
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, cfg webconfig.BackendConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: cfg.Endpoints,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker("remediation-backend", c.metrics)
	return c
}

func newBreaker(name string, m *metrics.Registry) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	// 4xx answers mean the backend is up; only transport errors and 5xx trip.
	st.IsSuccessful = func(err error) bool {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.Status < http.StatusInternalServerError
		}
		return err == nil
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		m.SetBreakerState(name, int(to))
		logger.Remediation.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("backend circuit breaker state changed")
	}
	return gobreaker.NewCircuitBreaker(st)
}

func (c *Client) BaseURL() string { return c.baseURL }

// Analyze uploads a document as multipart field "file" and decodes the report.
func (c *Client) Analyze(ctx context.Context, name string, data []byte, progress ProgressFunc) (*Report, error) {
	endpoint := c.endpoints.Upload
	if c.endpoints.UploadPDF != "" && strings.EqualFold(filepath.Ext(name), ".pdf") {
		endpoint = c.endpoints.UploadPDF
	}
	body, contentType, err := multipartBody(func(w *multipart.Writer) error {
		return writeFilePart(w, "file", name, data)
	})
	if err != nil {
		return nil, err
	}
	raw, _, err := c.do(ctx, "upload", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, newProgressReader(body, progress))
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(body))
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	report, err := ParseReport(raw)
	if err != nil {
		return nil, err
	}
	if report.FileName == "" {
		report.FileName = name
	}
	return report, nil
}

// Download fetches the remediated file: by download id when the report has
// one, otherwise by posting the original file again.
func (c *Client) Download(ctx context.Context, report *Report, name string, data []byte) (*Blob, error) {
	var build func(ctx context.Context) (*http.Request, error)
	if report != nil && report.DownloadID != "" {
		u := c.baseURL + c.endpoints.Download + "?id=" + url.QueryEscape(report.DownloadID)
		build = func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		}
	} else {
		body, contentType, err := multipartBody(func(w *multipart.Writer) error {
			return writeFilePart(w, "file", name, data)
		})
		if err != nil {
			return nil, err
		}
		build = func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoints.Download, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", contentType)
			return req, nil
		}
	}

	raw, header, err := c.do(ctx, "download", build)
	if err != nil {
		return nil, err
	}
	return &Blob{
		FileName:    attachmentName(header.Get("Content-Disposition"), "remediated-"+filepath.Base(name)),
		ContentType: header.Get("Content-Type"),
		Data:        raw,
	}, nil
}

func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	raw, _, err := c.do(ctx, "session", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoints.Session, strings.NewReader("{}"))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.SessionID == "" {
		return nil, fmt.Errorf("decode session: missing sessionId")
	}
	return &s, nil
}

func (c *Client) KeepAlive(ctx context.Context, sessionID string) error {
	_, _, err := c.do(ctx, "keepalive", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoints.Session, strings.NewReader("{}"))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Session-ID", sessionID)
		return req, nil
	})
	return err
}

// BatchUpload sends files as "files[]" with the session id as a form field.
func (c *Client) BatchUpload(ctx context.Context, sessionID string, files []UploadFile, progress ProgressFunc) (*BatchResult, error) {
	body, contentType, err := multipartBody(func(w *multipart.Writer) error {
		for _, f := range files {
			if err := writeFilePart(w, "files[]", f.Name, f.Data); err != nil {
				return err
			}
		}
		if sessionID != "" {
			return w.WriteField("sessionId", sessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	raw, _, err := c.do(ctx, "batch_upload", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoints.BatchUpload, newProgressReader(body, progress))
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(body))
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	var res BatchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode batch result: %w", err)
	}
	return &res, nil
}

// BatchDownload returns the zip of every remediated file in the session.
func (c *Client) BatchDownload(ctx context.Context, sessionID string) (*Blob, error) {
	u := c.baseURL + c.endpoints.BatchDownload + "?sessionId=" + url.QueryEscape(sessionID)
	raw, header, err := c.do(ctx, "batch_download", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Session-ID", sessionID)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	ct := header.Get("Content-Type")
	if ct == "" {
		ct = "application/zip"
	}
	return &Blob{FileName: "remediated-files.zip", ContentType: ct, Data: raw}, nil
}

func (c *Client) do(ctx context.Context, endpoint string, build func(context.Context) (*http.Request, error)) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	started := time.Now()
	type result struct {
		body   []byte
		header http.Header
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			c.metrics.BackendError(endpoint, "transport")
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.metrics.BackendError(endpoint, "read")
			return nil, fmt.Errorf("%w: read body: %v", ErrBackendUnavailable, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.metrics.BackendError(endpoint, "status")
			return nil, &APIError{
				Endpoint: endpoint,
				Status:   resp.StatusCode,
				Body:     truncate(string(body), 2048),
				Message:  errorMessage(body, resp.StatusCode),
			}
		}
		return result{body: body, header: resp.Header}, nil
	})
	c.metrics.ObserveBackend(endpoint, started, err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		logger.Remediation.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Dur("elapsed", time.Since(started)).
			Msg("backend call failed")
		return nil, nil, err
	}
	res := out.(result)
	logger.Remediation.Debug().
		Str("endpoint", endpoint).
		Int("bytes", len(res.body)).
		Dur("elapsed", time.Since(started)).
		Msg("backend call")
	return res.body, res.header, nil
}

func multipartBody(fill func(*multipart.Writer) error) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field, name string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     field,
		"filename": filepath.Base(name),
	}))
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// progressReader reports how much of the body the transport has consumed.
type progressReader struct {
	r        *bytes.Reader
	total    int
	read     int
	last     int
	progress ProgressFunc
}

func newProgressReader(body []byte, fn ProgressFunc) io.Reader {
	if fn == nil {
		return bytes.NewReader(body)
	}
	return &progressReader{r: bytes.NewReader(body), total: len(body), last: -1, progress: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += n
	pct := 100
	if p.total > 0 {
		pct = p.read * 100 / p.total
	}
	if pct != p.last {
		p.last = pct
		p.progress(pct)
	}
	return n, err
}

func attachmentName(disposition, fallback string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	return fallback
}

func errorMessage(body []byte, status int) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]interface{}:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
