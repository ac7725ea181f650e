package endpoints

import (
	"context"

	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
)

// Refresher перепроверяет площадки по запросу в отдельной горутине.
type Refresher struct {
	pool    *Pool
	trigger chan struct{}
	onDone  func([]models.EndpointCandidate)
	logger  *zap.SugaredLogger
}

// NewRefresher создаёт воркер проверки площадок. onDone получает результат каждой проверки.
func NewRefresher(pool *Pool, onDone func([]models.EndpointCandidate), logger *zap.SugaredLogger) *Refresher {
	if onDone == nil {
		onDone = func([]models.EndpointCandidate) {}
	}
	return &Refresher{
		pool:    pool,
		trigger: make(chan struct{}, 1),
		onDone:  onDone,
		logger:  logger,
	}
}

// Trigger запрашивает проверку. false означает, что проверка уже запрошена.
func (r *Refresher) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start запускает воркер и останавливается по ctx.Done(). Первая проверка выполняется сразу.
func (r *Refresher) Start(ctx context.Context) {
	r.Trigger()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.trigger:
				r.logger.Infow("probing registry endpoints")
				r.onDone(r.pool.Refresh(ctx))
			}
		}
	}()
}
