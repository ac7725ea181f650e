// Package endpoints выбирает рабочую площадку реестра маркировки.
package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HealthPath - путь проверки доступности площадки.
const HealthPath = "/api/v4/true-api/cdn/health/check"

// DefaultCandidates - площадки реестра по умолчанию.
var DefaultCandidates = []string{
	"https://cdn01.crpt.ru",
	"https://cdn02.crpt.ru",
	"https://cdn03.crpt.ru",
	"https://cdn04.crpt.ru",
	"https://cdn05.crpt.ru",
	"https://cdn06.crpt.ru",
	"https://cdn07.crpt.ru",
	"https://cdn08.crpt.ru",
	"https://cdn09.crpt.ru",
	"https://cdn10.crpt.ru",
	"https://cdn11.crpt.ru",
}

// Prober проверяет доступность одной площадки.
type Prober interface {
	Probe(ctx context.Context, baseURL string) error
}

// HTTPProber проверяет площадку запросом health check.
type HTTPProber struct {
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProber создаёт HTTP-проверку площадок.
func NewHTTPProber(apiKey string) *HTTPProber {
	return &HTTPProber{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// Probe возвращает nil, если площадка ответила успешным статусом.
func (p *HTTPProber) Probe(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected health status: %d", resp.StatusCode)
	}
	return nil
}
