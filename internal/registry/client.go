// Package registry проверяет коды маркировки в реестре.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
)

// CheckPath - путь проверки кодов на площадке реестра.
const CheckPath = "/api/v4/true-api/codes/check"

// DefaultTimeout - предельное время запроса проверки.
const DefaultTimeout = 10 * time.Second

var (
	ErrNoEndpoint       = errors.New("no healthy registry endpoint")
	ErrNoAPIKey         = errors.New("registry api key is not configured")
	ErrEmptyReply       = errors.New("registry reply has no codes")
	ErrUnexpectedStatus = errors.New("unexpected registry status")
)

// BestEndpoint отдаёт текущую лучшую площадку реестра.
type BestEndpoint interface {
	Best() (string, bool)
}

// Client проверяет коды маркировки. При любой ошибке возвращает синтетический результат.
type Client struct {
	endpoints  BestEndpoint
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient создаёт клиент реестра.
func NewClient(endpoints BestEndpoint, apiKey string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoints: endpoints,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Validate проверяет один код. Площадка фиксируется в начале вызова,
// повторных попыток нет. Ошибки не возвращаются: вместо них используется синтетический результат.
func (c *Client) Validate(ctx context.Context, cis string) models.Verdict {
	base, ok := c.endpoints.Best()

	started := time.Now()
	verdict, err := c.check(ctx, base, ok, cis)
	if err != nil {
		c.logger.Warnw("registry unavailable, using synthetic verdict",
			"mode", "degraded",
			"cis", cis,
			"endpoint", base,
			"error", err,
		)
		return Synthetic(cis)
	}

	c.logger.Infow("mark code checked",
		"cis", cis,
		"endpoint", base,
		"usable", verdict.IsUsable(),
		"elapsed", time.Since(started),
	)
	return verdict
}

func (c *Client) check(ctx context.Context, base string, ok bool, cis string) (models.Verdict, error) {
	if !ok {
		return models.Verdict{}, ErrNoEndpoint
	}
	if c.apiKey == "" {
		return models.Verdict{}, ErrNoAPIKey
	}

	body, err := json.Marshal(checkRequest{Codes: []string{cis}})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+CheckPath, bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Verdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return models.Verdict{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var reply checkReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return models.Verdict{}, fmt.Errorf("decode registry reply: %w", err)
	}
	if len(reply.Codes) == 0 {
		return models.Verdict{}, ErrEmptyReply
	}

	v := reply.Codes[0].verdict(cis)
	v.Endpoint = base
	return v, nil
}
