package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UnitState описывает этап жизненного цикла единицы товара.
type UnitState string

const (
	UnitNotRequired       UnitState = "NOT_REQUIRED"
	UnitAwaitingMark      UnitState = "AWAITING_MARK"
	UnitPendingValidation UnitState = "PENDING_VALIDATION"
	UnitApplied           UnitState = "APPLIED"
	UnitWaived            UnitState = "WAIVED"
)

// Resolved сообщает, что состояние не препятствует фискализации.
func (s UnitState) Resolved() bool {
	switch s {
	case UnitNotRequired, UnitApplied, UnitWaived:
		return true
	default:
		return false
	}
}

// Visual переводит состояние в признак отображения для интерфейса.
func (s UnitState) Visual() string {
	switch s {
	case UnitNotRequired:
		return "not_required"
	case UnitAwaitingMark:
		return "needs_mark"
	case UnitPendingValidation:
		return "pending"
	case UnitApplied:
		return "applied"
	case UnitWaived:
		return "waived"
	default:
		return "unknown"
	}
}

// ScannableUnit - отдельно сканируемый экземпляр товара, полученный из строки заказа.
type ScannableUnit struct {
	Position     int             `json:"position"`
	LineIndex    int             `json:"line_index"`
	DisplayIndex int             `json:"display_index"`
	Expanded     bool            `json:"expanded"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Weight       decimal.Decimal `json:"weight"`
	Amount       decimal.Decimal `json:"amount"`
	RequiresMark bool            `json:"requires_mark"`
	State        UnitState       `json:"state"`
	MarkCode     string          `json:"mark_code,omitempty"`
}

// Label возвращает имя единицы с порядковым номером, если строка развёрнута.
func (u ScannableUnit) Label() string {
	if u.Expanded {
		return fmt.Sprintf("%s [%d]", u.ProductName, u.DisplayIndex)
	}
	return u.ProductName
}

// MarkText - текст колонки марки в таблице товаров.
func (u ScannableUnit) MarkText() string {
	switch u.State {
	case UnitNotRequired, UnitWaived:
		return "БЕЗ МАРКИ"
	case UnitApplied:
		return u.MarkCode
	case UnitPendingValidation:
		return "проверка..."
	default:
		return ""
	}
}
