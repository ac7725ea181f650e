package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/scan"
	"github.com/agamariel/markstation/internal/units"
)

// ErrPersistMark - код не удалось сохранить в заказе.
var ErrPersistMark = errors.New("failed to save mark code")

// OrderRepository - хранилище заказов.
type OrderRepository interface {
	LookupOrder(ctx context.Context, orderID string) (*models.Customer, []models.OrderLine, error)
	PersistMark(ctx context.Context, orderID, productName, code string) error
}

// Validator проверяет код маркировки в реестре.
type Validator interface {
	Validate(ctx context.Context, cis string) models.Verdict
}

// Finalizer фискализирует заказ.
type Finalizer interface {
	Finalize(ctx context.Context, order *models.Order) (*models.Receipt, error)
}

// Station связывает сканер, реестр, хранилище заказов и кассу.
// Все изменения состояния выполняются в цикле станции.
type Station struct {
	loop      *Loop
	session   *Session
	repo      OrderRepository
	validator Validator
	finalizer Finalizer
	logger    *zap.SugaredLogger

	runCtx    context.Context
	endpoints []models.EndpointCandidate
	notice    string
	timeout   time.Duration
}

// New создаёт станцию. timeout ограничивает обращения к хранилищу заказов.
func New(repo OrderRepository, validator Validator, finalizer Finalizer, timeout time.Duration, logger *zap.SugaredLogger) *Station {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Station{
		loop:      NewLoop(64),
		session:   NewSession(),
		repo:      repo,
		validator: validator,
		finalizer: finalizer,
		logger:    logger,
		runCtx:    context.Background(),
		timeout:   timeout,
	}
}

// Run запускает цикл станции и блокируется до отмены контекста.
func (s *Station) Run(ctx context.Context) error {
	s.runCtx = ctx
	s.logger.Infow("station loop started")
	err := s.loop.Run(ctx)
	s.logger.Infow("station loop stopped")
	return err
}

// Enqueue передаёт строку сканера в цикл станции. Используется читателем сканера.
func (s *Station) Enqueue(token string) {
	s.loop.Dispatch(func() {
		if err := s.handleToken(token); err != nil {
			s.logger.Warnw("scan rejected", "error", err)
		}
	})
}

// Scan обрабатывает строку, введённую оператором вручную.
func (s *Station) Scan(ctx context.Context, token string) error {
	return s.loop.Call(ctx, func() error {
		return s.handleToken(token)
	})
}

// Select выделяет единицу.
func (s *Station) Select(ctx context.Context, unit int) error {
	return s.loop.Call(ctx, func() error {
		return s.session.Select(unit)
	})
}

// Waive снимает требование марки с единицы.
func (s *Station) Waive(ctx context.Context, unit int) error {
	return s.loop.Call(ctx, func() error {
		changed, err := s.session.Waive(unit)
		if err != nil {
			return err
		}
		if changed {
			u := s.session.Order().Units[unit]
			s.logger.Infow("mark waived", "order", s.session.Order().ID(), "unit", u.Label())
			s.setNotice("%s: продажа без марки", u.Label())
		}
		return nil
	})
}

// Confirm применяет пригодный код к единице. Код сначала сохраняется в заказе;
// при ошибке сохранения решение остаётся открытым.
func (s *Station) Confirm(ctx context.Context) error {
	return s.loop.Call(ctx, func() error {
		p, ok := s.session.Pending()
		if !ok || p.InFlight() {
			return ErrNoDecisionPending
		}

		order := s.session.Order()
		u := order.Units[p.Unit]
		if p.Verdict.IsUsable() {
			if err := s.persist(ctx, order.ID(), u.ProductName, p.Code); err != nil {
				s.setNotice("не удалось сохранить марку: %v", err)
				return err
			}
		}

		state, err := s.session.Resolve(p.Unit, *p.Verdict, DecisionAccept)
		if err != nil {
			return err
		}
		s.logger.Infow("mark decision", "order", order.ID(), "unit", u.Label(), "state", state)
		if state == models.UnitApplied {
			s.setNotice("%s: марка применена", u.Label())
		}
		return nil
	})
}

// Reject отклоняет код, ожидающий решения оператора.
func (s *Station) Reject(ctx context.Context) error {
	return s.loop.Call(ctx, func() error {
		p, ok := s.session.Pending()
		if !ok || p.InFlight() {
			return ErrNoDecisionPending
		}
		if _, err := s.session.Resolve(p.Unit, *p.Verdict, DecisionReject); err != nil {
			return err
		}
		s.setNotice("код отклонён, отсканируйте другую марку")
		return nil
	})
}

// Clear убирает заказ со станции.
func (s *Station) Clear(ctx context.Context) error {
	return s.loop.Call(ctx, func() error {
		s.session.Clear()
		s.notice = ""
		return nil
	})
}

// Finalize фискализирует текущий заказ.
func (s *Station) Finalize(ctx context.Context) (*models.Receipt, error) {
	var receipt *models.Receipt
	err := s.loop.Call(ctx, func() error {
		order := s.session.Order()
		if order == nil {
			return ErrNoOrder
		}
		r, err := s.finalizer.Finalize(ctx, order)
		if err != nil {
			s.logger.Warnw("fiscalization refused", "order", order.ID(), "error", err)
			s.setNotice("чек не отправлен: %v", err)
			return err
		}

		order.Fiscalized = true
		receipt = r
		s.logger.Infow("order fiscalized", "order", order.ID(), "receipt", r.ID, "total", r.Total)
		s.setNotice("чек по заказу %s отправлен", order.ID())
		return nil
	})
	return receipt, err
}

// Snapshot возвращает снимок состояния для интерфейса.
func (s *Station) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Call(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// OnEndpointsRefreshed принимает результат проверки площадок реестра.
func (s *Station) OnEndpointsRefreshed(candidates []models.EndpointCandidate) {
	s.loop.Dispatch(func() {
		s.endpoints = candidates
	})
}

func (s *Station) handleToken(token string) error {
	intent, err := scan.Classify(token)
	if err != nil {
		if errors.Is(err, scan.ErrEmptyToken) {
			return nil
		}
		return err
	}

	switch intent.Kind {
	case scan.IntentOrderLookup:
		return s.loadOrder(intent.Value)
	case scan.IntentMarkCode:
		return s.submitMark(intent.Value)
	default:
		return fmt.Errorf("unknown intent %s", intent.Kind)
	}
}

func (s *Station) loadOrder(orderID string) error {
	ctx, cancel := context.WithTimeout(s.runCtx, s.timeout)
	defer cancel()

	customer, lines, err := s.repo.LookupOrder(ctx, orderID)
	if err != nil {
		s.setNotice("заказ %s не загружен: %v", orderID, err)
		return fmt.Errorf("lookup order %s: %w", orderID, err)
	}

	expanded, anomalies, err := units.ExpandOrder(lines)
	if err != nil {
		s.setNotice("заказ %s содержит некорректные строки: %v", orderID, err)
		return fmt.Errorf("expand order %s: %w", orderID, err)
	}
	for _, a := range anomalies {
		s.logger.Warnw("order line anomaly", "order", orderID, "anomaly", a)
	}

	s.session.Load(&models.Order{
		Customer:  *customer,
		Lines:     lines,
		Units:     expanded,
		Anomalies: anomalies,
		LoadedAt:  time.Now(),
	})
	s.logger.Infow("order loaded", "order", orderID, "lines", len(lines), "units", len(expanded))
	s.setNotice("загружен заказ %s", orderID)
	return nil
}

func (s *Station) submitMark(raw string) error {
	if s.session.Order() == nil {
		return ErrNoOrder
	}

	cis := scan.NormalizeMarkCode(raw)
	unit, ok := s.session.AttributeScan()
	if !ok {
		s.logger.Infow("scan discarded, no unit awaits a mark", "cis", cis)
		s.setNotice("марка не требуется ни одной позиции")
		return nil
	}

	if err := s.session.BeginValidation(unit, cis); err != nil {
		return err
	}

	label := s.session.Order().Units[unit].Label()
	s.setNotice("%s: проверка марки...", label)
	generation := s.session.Generation()
	ctx := s.runCtx
	go func() {
		verdict := s.validator.Validate(ctx, cis)
		s.loop.Dispatch(func() {
			s.applyVerdict(generation, unit, label, verdict)
		})
	}()
	return nil
}

func (s *Station) applyVerdict(generation uint64, unit int, label string, verdict models.Verdict) {
	awaiting, err := s.session.SetVerdict(generation, unit, verdict)
	if err != nil {
		s.logger.Infow("verdict dropped", "unit", label, "error", err)
		return
	}

	if !awaiting {
		s.logger.Warnw("mark code rejected", "unit", label, "cis", verdict.Code, "problems", verdict.Problems())
		s.setNotice("%s: марку нельзя использовать: %s", label, strings.Join(verdict.Problems(), ", "))
		return
	}

	if verdict.Synthetic() {
		s.setNotice("%s: реестр недоступен, результат проверки не подтверждён", label)
		return
	}
	s.setNotice("%s: марка действительна, подтвердите применение", label)
}

func (s *Station) persist(ctx context.Context, orderID, productName, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.PersistMark(ctx, orderID, productName, code); err != nil {
		s.logger.Errorw("failed to persist mark", "order", orderID, "product", productName, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistMark, err)
	}
	return nil
}

func (s *Station) setNotice(format string, args ...any) {
	s.notice = fmt.Sprintf(format, args...)
}
