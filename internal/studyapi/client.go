// Package studyapi is the HTTP client for the remote Tutoroo study service.
// The service owns plans, grading, and feedback generation; this client is
// a thin JSON/multipart wrapper with no local state.
package studyapi

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
	"strconv"
	"time"
)

// ErrNoActiveState marks a 404 on the status endpoint: the plan has no
// recorded study state yet. Callers treat it as an empty read, not a failure.
var ErrNoActiveState = errors.New("no active study state")

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// A stalled remote call must not hold the session's busy flag forever.
const requestTimeout = 30 * time.Second

type Client struct {
	baseURL string
	token   string
	client  HTTPClient
}

func New(baseURL, token string) *Client {
	return NewWithClient(baseURL, token, &http.Client{Timeout: requestTimeout})
}

func NewWithClient(baseURL, token string, client HTTPClient) *Client {
	return &Client{baseURL: baseURL, token: token, client: client}
}

// Status reads the plan's current study state. A 404 returns
// ErrNoActiveState with a nil response.
func (c *Client) Status(ctx context.Context, planID int64) (*StatusResponse, error) {
	q := url.Values{}
	if planID > 0 {
		q.Set("planId", strconv.FormatInt(planID, 10))
	}
	var out StatusResponse
	if err := c.getJSON(ctx, "/api/study/status", q, &out); err != nil {
		if isStatusCode(err, http.StatusNotFound) {
			return nil, ErrNoActiveState
		}
		return nil, err
	}
	return &out, nil
}

// StartClass opens the first session of a study day and returns the tutor's
// opening message plus the day's phase schedule.
func (c *Client) StartClass(ctx context.Context, req *ClassStartRequest) (*ClassStartResponse, error) {
	var out ClassStartResponse
	if err := c.postJSON(ctx, "/api/tutor/class/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession announces a phase change and fetches the phase opener.
func (c *Client) StartSession(ctx context.Context, req *SessionStartRequest) (*SessionStartResponse, error) {
	var out SessionStartResponse
	if err := c.postJSON(ctx, "/api/tutor/session/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one user message to the tutor.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/api/tutor/feedback/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTest requests the day's test question.
func (c *Client) GenerateTest(ctx context.Context, planID int64, dayCount int) (*TestResponse, error) {
	q := url.Values{}
	q.Set("planId", strconv.FormatInt(planID, 10))
	q.Set("dayCount", strconv.Itoa(dayCount))
	var out TestResponse
	if err := c.getJSON(ctx, "/api/tutor/test/generate", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTest uploads the answer as multipart: a JSON "data" part plus an
// optional "image" part.
func (c *Client) SubmitTest(ctx context.Context, planID int64, textAnswer string, image []byte, imageName string) (*TestSubmitResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	data, err := json.Marshal(map[string]any{"planId": planID, "textAnswer": textAnswer})
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	part, err := mw.CreateFormField("data")
	if err != nil {
		return nil, fmt.Errorf("create data part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write data part: %w", err)
	}

	if len(image) > 0 {
		fw, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			return nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := fw.Write(image); err != nil {
			return nil, fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out TestSubmitResponse
	if err := c.doMultipart(ctx, "/api/tutor/test/submit", &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveLog records the day's study log (pre-finalize bookkeeping).
func (c *Client) SaveLog(ctx context.Context, req *LogRequest) error {
	return c.postJSON(ctx, "/api/study/logs", req, nil)
}

// GenerateAiFeedback finalizes today's study for the plan and returns the
// generated summary feedback.
func (c *Client) GenerateAiFeedback(ctx context.Context, planID int64) (*FeedbackResponse, error) {
	var out FeedbackResponse
	path := fmt.Sprintf("/api/study/plans/%d/ai-feedback", planID)
	if err := c.postJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAudio sends a recorded audio clip for speech recognition and
// returns the recognized text.
func (c *Client) UploadAudio(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("create audio part: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/tutor/stt", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newStatusError(resp)
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(bytes.TrimSpace(text)), nil
}

// DownloadReview streams the day's review PDF.
func (c *Client) DownloadReview(ctx context.Context, planID int64, dayCount int) ([]byte, error) {
	q := url.Values{}
	q.Set("planId", strconv.FormatInt(planID, 10))
	q.Set("dayCount", strconv.Itoa(dayCount))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/study/review/download?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}
	return io.ReadAll(resp.Body)
}

// ListPlans returns the user's enrolled plans.
func (c *Client) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	var out []PlanSummary
	if err := c.getJSON(ctx, "/api/study/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlan enrolls a new study plan and returns its summary.
func (c *Client) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*PlanSummary, error) {
	var out PlanSummary
	if err := c.postJSON(ctx, "/api/study/plans", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calendar returns the studied days of a month for the dashboard calendar.
// A zero planID asks for all of the user's plans.
func (c *Client) Calendar(ctx context.Context, year, month int, planID int64) (*CalendarResponse, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	if planID > 0 {
		q.Set("planId", strconv.FormatInt(planID, 10))
	}
	var out CalendarResponse
	if err := c.getJSON(ctx, "/api/study/calendar", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlanDetail fetches one plan's dashboard detail.
func (c *Client) PlanDetail(ctx context.Context, planID int64) (*PlanSummary, error) {
	var out PlanSummary
	path := fmt.Sprintf("/api/study/plans/%d", planID)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- transport plumbing ---

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doMultipart(ctx context.Context, path string, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx service response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("study api error %d: %s", e.Code, e.Body)
}

func newStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

func isStatusCode(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
