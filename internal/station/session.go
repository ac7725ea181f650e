// Package station управляет состоянием станции сканирования маркированных товаров.
package station

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agamariel/markstation/internal/models"
)

var (
	ErrNoOrder            = errors.New("no order loaded")
	ErrUnitOutOfRange     = errors.New("unit index out of range")
	ErrValidationInFlight = errors.New("another mark validation is in progress")
	ErrNotAwaitingMark    = errors.New("unit is not awaiting a mark")
	ErrNoValidation       = errors.New("no validation in progress for unit")
	ErrNoDecisionPending  = errors.New("no verdict awaits a decision")
	ErrStaleVerdict       = errors.New("verdict belongs to a replaced order")
)

var one = decimal.NewFromInt(1)

// Decision - решение оператора по результату проверки.
type Decision int

const (
	DecisionReject Decision = iota
	DecisionAccept
)

// Pending - проверка кода, ожидающая ответа реестра или решения оператора.
type Pending struct {
	Unit    int
	Code    string
	Verdict *models.Verdict
}

// InFlight сообщает, что ответ реестра ещё не получен.
func (p Pending) InFlight() bool {
	return p.Verdict == nil
}

// Session - состояние станции: текущий заказ, выделенная единица и проверка в работе.
// Не потокобезопасна: владеет ей только цикл станции.
type Session struct {
	order      *models.Order
	selected   int
	pending    *Pending
	generation uint64
}

// NewSession создаёт пустую сессию.
func NewSession() *Session {
	return &Session{selected: -1}
}

// Load заменяет текущий заказ. Незавершённая проверка предыдущего заказа отбрасывается.
func (s *Session) Load(order *models.Order) {
	s.order = order
	s.pending = nil
	s.generation++
	s.selected = -1
	s.selectNext(-1)
}

// Clear убирает заказ со станции.
func (s *Session) Clear() {
	s.order = nil
	s.pending = nil
	s.generation++
	s.selected = -1
}

// Order возвращает текущий заказ или nil.
func (s *Session) Order() *models.Order {
	return s.order
}

// Generation меняется при каждой замене заказа.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Selected возвращает выделенную единицу или -1.
func (s *Session) Selected() int {
	return s.selected
}

// Pending возвращает копию текущей проверки.
func (s *Session) Pending() (Pending, bool) {
	if s.pending == nil {
		return Pending{}, false
	}
	return *s.pending, true
}

// Select выделяет единицу по индексу.
func (s *Session) Select(unit int) error {
	if err := s.checkUnit(unit); err != nil {
		return err
	}
	s.selected = unit
	return nil
}

// AttributeScan выбирает единицу для отсканированного кода: выделенную,
// если она ждёт марку, иначе первую ждущую марку. false - код некуда применить.
func (s *Session) AttributeScan() (int, bool) {
	if s.order == nil {
		return 0, false
	}
	if s.selected >= 0 && s.selected < len(s.order.Units) && s.order.Units[s.selected].State == models.UnitAwaitingMark {
		return s.selected, true
	}
	for i, u := range s.order.Units {
		if u.State == models.UnitAwaitingMark {
			return i, true
		}
	}
	return 0, false
}

// BeginValidation переводит единицу в проверку. Одновременно проверяется только один код.
func (s *Session) BeginValidation(unit int, code string) error {
	if err := s.checkUnit(unit); err != nil {
		return err
	}
	if s.pending != nil {
		return ErrValidationInFlight
	}
	u := &s.order.Units[unit]
	if u.State != models.UnitAwaitingMark {
		return fmt.Errorf("%s: %w", u.Label(), ErrNotAwaitingMark)
	}
	u.State = models.UnitPendingValidation
	s.pending = &Pending{Unit: unit, Code: code}
	return nil
}

// SetVerdict принимает ответ реестра. Непригодный код сразу возвращает единицу
// в ожидание марки; пригодный ждёт решения оператора. true - решение требуется.
func (s *Session) SetVerdict(generation uint64, unit int, verdict models.Verdict) (bool, error) {
	if generation != s.generation {
		return false, ErrStaleVerdict
	}
	if s.pending == nil || s.pending.Unit != unit || !s.pending.InFlight() {
		return false, ErrNoValidation
	}
	if !verdict.IsUsable() {
		s.order.Units[unit].State = models.UnitAwaitingMark
		s.pending = nil
		return false, nil
	}
	s.pending.Verdict = &verdict
	return true, nil
}

// Resolve завершает проверку. Единица становится APPLIED только при пригодном
// коде и согласии оператора, иначе код отбрасывается и единица снова ждёт марку.
func (s *Session) Resolve(unit int, verdict models.Verdict, decision Decision) (models.UnitState, error) {
	if s.pending == nil || s.pending.Unit != unit || s.pending.InFlight() {
		return "", ErrNoDecisionPending
	}
	code := s.pending.Code
	s.pending = nil

	u := &s.order.Units[unit]
	if decision != DecisionAccept || !verdict.IsUsable() {
		u.State = models.UnitAwaitingMark
		u.MarkCode = ""
		return u.State, nil
	}

	u.State = models.UnitApplied
	u.MarkCode = code
	if line := &s.order.Lines[u.LineIndex]; line.Quantity.GreaterThan(one) {
		line.MarkCode = code
	}
	s.selectNext(unit)
	return u.State, nil
}

// Waive снимает требование марки с единицы. Для единиц не в ожидании марки ничего не делает.
func (s *Session) Waive(unit int) (bool, error) {
	if err := s.checkUnit(unit); err != nil {
		return false, err
	}
	u := &s.order.Units[unit]
	if u.State != models.UnitAwaitingMark {
		return false, nil
	}
	u.State = models.UnitWaived
	if s.selected == unit {
		s.selectNext(unit)
	}
	return true, nil
}

// selectNext выделяет следующую после from единицу, ждущую марку, с переходом в начало списка.
func (s *Session) selectNext(from int) {
	if s.order == nil {
		return
	}
	n := len(s.order.Units)
	for step := 1; step <= n; step++ {
		i := (from + step + n) % n
		if s.order.Units[i].State == models.UnitAwaitingMark {
			s.selected = i
			return
		}
	}
}

func (s *Session) checkUnit(unit int) error {
	if s.order == nil {
		return ErrNoOrder
	}
	if unit < 0 || unit >= len(s.order.Units) {
		return fmt.Errorf("%d: %w", unit, ErrUnitOutOfRange)
	}
	return nil
}
