package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agamariel/markstation/internal/models"
)

// DocPath - путь регистрации чека в облачной кассе.
const DocPath = "/api/v5/doc"

// ErrTokenRejected - касса не приняла токен.
var ErrTokenRejected = errors.New("fiscal api rejected token")

// HTTPSubmitter отправляет чеки в облачную кассу по HTTP.
type HTTPSubmitter struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewHTTPSubmitter создаёт клиента облачной кассы.
func NewHTTPSubmitter(apiURL, token string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSubmitter{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit отправляет чек. Любой неуспешный статус считается ошибкой.
func (s *HTTPSubmitter) Submit(ctx context.Context, receipt *models.Receipt) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+DocPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrTokenRejected
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected fiscal api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
