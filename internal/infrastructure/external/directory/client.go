// Package directory implements the Course Directory Service client.
// The directory owns the course catalog; the engine only reads the
// published and approved part of it.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the directory client.
type ClientConfig struct {
	// BaseURL is the directory API base URL, without a trailing slash.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// PageSize is the per_page value used while listing.
	PageSize int

	// MaxPages bounds the pagination loop.
	MaxPages int

	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:  baseURL,
		Timeout:  15 * time.Second,
		PageSize: 100,
		MaxPages: 50,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the Course Directory Service.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuitbreaker.CircuitBreaker
	mapper     *Mapper
}

// NewClient creates a new directory client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 50
	}

	logger := config.Logger.With("component", "directory_client")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		breaker: circuitbreaker.DirectoryBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
		mapper: NewMapper(),
	}
}

// ListPublishedCourses fetches every published and approved course,
// following pagination until a short page or the last page reported by meta.
func (c *Client) ListPublishedCourses(ctx context.Context) ([]normalize.RawCourse, error) {
	var all []normalize.RawCourse

	for page := 1; page <= c.config.MaxPages; page++ {
		courses, meta, err := c.listCoursesPage(ctx, page)
		if err != nil {
			return nil, shared.WrapError("directory", "ListPublishedCourses", shared.ErrExternalService,
				fmt.Sprintf("page %d", page), err)
		}

		all = append(all, c.mapper.ToRawCourses(courses)...)

		if len(courses) < c.config.PageSize || (meta != nil && meta.TotalPages > 0 && page >= meta.TotalPages) {
			break
		}
	}

	c.logger.Debug("courses listed", "count", len(all))
	return all, nil
}

func (c *Client) listCoursesPage(ctx context.Context, page int) ([]CourseDTO, *Meta, error) {
	params := url.Values{}
	params.Set("status", "published")
	params.Set("approved", "true")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.config.PageSize))

	var response APIResponse[[]CourseDTO]
	if err := c.doRequest(ctx, http.MethodGet, "/courses?"+params.Encode(), &response); err != nil {
		return nil, nil, err
	}
	if !response.Success {
		return nil, nil, fmt.Errorf("api error: %s", response.Error)
	}
	return response.Data, response.Meta, nil
}

// IsHealthy checks whether the directory answers its health endpoint.
// It bypasses the breaker so a probe never counts as traffic.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]any]
	return c.doSingleRequest(ctx, http.MethodGet, "/health", &response) == nil && response.Success
}

// BreakerState reports the state of the directory circuit.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// doRequest runs a single request through the breaker. There is no retry;
// a failed load leaves the catalog empty until the next Load.
func (c *Client) doRequest(ctx context.Context, method, path string, result any) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSingleRequest(ctx, method, path, result)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return shared.WrapError("directory", "request", shared.ErrServiceUnavailable, "circuit open", err)
	}
	return err
}

func (c *Client) doSingleRequest(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIErrorDTO{Status: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
