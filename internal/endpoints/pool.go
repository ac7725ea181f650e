package endpoints

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
)

// DefaultProbeTimeout - предельное время одной проверки площадки.
const DefaultProbeTimeout = 5 * time.Second

// Pool хранит список площадок и текущую лучшую из них.
type Pool struct {
	mu         sync.RWMutex
	candidates []models.EndpointCandidate
	best       string

	prober  Prober
	timeout time.Duration
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// NewPool создаёт пул площадок. Пустой список заменяется площадками по умолчанию.
func NewPool(urls []string, prober Prober, timeout time.Duration, logger *zap.SugaredLogger) *Pool {
	if len(urls) == 0 {
		urls = DefaultCandidates
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	candidates := make([]models.EndpointCandidate, len(urls))
	for i, u := range urls {
		candidates[i] = models.EndpointCandidate{BaseURL: u}
	}
	return &Pool{
		candidates: candidates,
		prober:     prober,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
}

// Refresh последовательно проверяет все площадки и выбирает самую быструю из доступных.
// Ошибка одной площадки не прерывает проверку остальных.
func (p *Pool) Refresh(ctx context.Context) []models.EndpointCandidate {
	p.mu.RLock()
	probed := make([]models.EndpointCandidate, len(p.candidates))
	copy(probed, p.candidates)
	p.mu.RUnlock()

	best := -1
	for i := range probed {
		probed[i] = p.probe(ctx, probed[i].BaseURL)
		if !probed[i].Healthy {
			continue
		}
		if best < 0 || probed[i].Latency < probed[best].Latency {
			best = i
		}
	}

	p.mu.Lock()
	p.candidates = probed
	p.best = ""
	if best >= 0 {
		p.best = probed[best].BaseURL
	}
	p.mu.Unlock()

	if best >= 0 {
		p.logger.Infow("registry endpoint selected", "endpoint", probed[best].BaseURL, "latency", probed[best].Latency)
	} else {
		p.logger.Warnw("no healthy registry endpoints", "candidates", len(probed))
	}

	return p.Candidates()
}

func (p *Pool) probe(ctx context.Context, baseURL string) models.EndpointCandidate {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := p.now()
	err := p.prober.Probe(ctx, baseURL)
	c := models.EndpointCandidate{
		BaseURL:  baseURL,
		Latency:  p.now().Sub(started),
		ProbedAt: started,
		Healthy:  err == nil,
	}
	if err != nil {
		c.Error = err.Error()
		p.logger.Debugw("registry endpoint unavailable", "endpoint", baseURL, "error", err)
	}
	return c
}

// Best возвращает лучшую площадку. false означает, что доступных площадок нет.
func (p *Pool) Best() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.best, p.best != ""
}

// Candidates возвращает копию списка площадок с результатами последней проверки.
func (p *Pool) Candidates() []models.EndpointCandidate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.EndpointCandidate, len(p.candidates))
	copy(out, p.candidates)
	return out
}
