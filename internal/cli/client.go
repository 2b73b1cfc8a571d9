package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultTimeout покрывает полный run оптимизации (дедлайн 5m) с запасом.
const DefaultTimeout = 6 * time.Minute

// --- Response types (дублируются из domain и api/dto.go, CLI не импортирует internal) ---

// CheckResult — результат одной проверки.
type CheckResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs *int64 `json:"latencyMs,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HealthResponse — результат проверки здоровья.
type HealthResponse struct {
	CheckID   string        `json:"checkId"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   string        `json:"overall"`
	Checks    []CheckResult `json:"checks"`
	Alerts    []string      `json:"alerts"`
}

// StatusResponse — быстрый статус.
type StatusResponse struct {
	Status     string    `json:"status"`
	LatencyMs  int64     `json:"latencyMs"`
	CheckedAt  time.Time `json:"checkedAt"`
	StatusCode int       `json:"statusCode,omitempty"`
}

// PhaseResponse — результат фазы.
type PhaseResponse struct {
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	TaskCount  int      `json:"taskCount"`
	Errors     []string `json:"errors"`
	DurationMs int64    `json:"durationMs"`
}

// Summary — счётчики run.
type Summary struct {
	TotalTasks int `json:"totalTasks"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// RunResponse — полный результат run.
type RunResponse struct {
	RunID       string          `json:"runId"`
	Purpose     string          `json:"purpose"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	DurationMs  int64           `json:"durationMs"`
	Phases      []PhaseResponse `json:"phases"`
	Summary     Summary         `json:"summary"`
	TimedOut    bool            `json:"timedOut,omitempty"`
	Aborted     bool            `json:"aborted,omitempty"`
	Error       string          `json:"error,omitempty"`
	Alerts      []string        `json:"alerts,omitempty"`
}

// RunSummaryResponse — строка списка runs.
type RunSummaryResponse struct {
	RunID      string    `json:"runId"`
	Purpose    string    `json:"purpose"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Summary    Summary   `json:"summary"`
	AlertCount int       `json:"alertCount"`
	PhaseCount int       `json:"phaseCount"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Purpose string
	Limit   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ответ API с кодом >= 400.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	// Data — частичный результат, если API его вернул.
	Data json.RawMessage
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Sentinel API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Status возвращает быстрый статус сайта.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	err := c.get("/api/v1/status", &status)
	return &status, err
}

// LatestHealth возвращает последнюю проверку здоровья.
func (c *Client) LatestHealth() (*HealthResponse, error) {
	var health HealthResponse
	err := c.get("/api/v1/health", &health)
	return &health, err
}

// RunHealthCheck запускает полную проверку.
func (c *Client) RunHealthCheck() (*HealthResponse, error) {
	var health HealthResponse
	err := c.post("/api/v1/health/checks", nil, &health)
	return &health, err
}

// RunOptimization запускает оптимизацию и ждёт её завершения.
// При фатальной ошибке возвращает частичный результат вместе с *APIError.
func (c *Client) RunOptimization() (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/optimizations", nil, &run)

	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Data) > 0 {
		if jsonErr := json.Unmarshal(apiErr.Data, &run); jsonErr == nil {
			return &run, err
		}
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns возвращает историю runs.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunSummaryResponse, error) {
	params := url.Values{}
	if opts.Purpose != "" {
		params.Set("purpose", opts.Purpose)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var runs []RunSummaryResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return apiErr
	}

	apiErr.Code = er.Error.Code
	apiErr.Message = er.Error.Message
	if len(er.Data) > 0 && string(er.Data) != "null" {
		apiErr.Data = er.Data
	}
	return apiErr
}
