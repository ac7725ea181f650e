package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer содержит реквизиты покупателя из заказа.
type Customer struct {
	OrderID       string `json:"order_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmployeeID    string `json:"employee_id"`
	Phone         string `json:"phone"`
	DeliveryPoint string `json:"delivery_point"`
	GRDCode       string `json:"grd_code"`
}

// OrderLine - строка заказа в том виде, в каком она хранится в базе.
type OrderLine struct {
	ProductName  string          `db:"product_name"`
	CaseWeight   decimal.Decimal `db:"case_weight"`
	Price        decimal.Decimal `db:"price"`
	Quantity     decimal.Decimal `db:"quantity"`
	TotalWeight  decimal.Decimal `db:"total_weight"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	RequiresMark bool            `db:"is_marked"`
	Excise       bool            `db:"is_excise"`
	GTIN         string          `db:"gtin"`
	MarkCode     string          `db:"mark"`
}

// Order - загруженный на станцию заказ вместе с развёрнутыми единицами.
type Order struct {
	Customer   Customer
	Lines      []OrderLine
	Units      []ScannableUnit
	Anomalies  []string
	Fiscalized bool
	LoadedAt   time.Time
}

// ID возвращает номер заказа.
func (o *Order) ID() string {
	return o.Customer.OrderID
}

// IsResolved сообщает, что все единицы заказа находятся в разрешённом конечном состоянии.
func (o *Order) IsResolved() bool {
	for i := range o.Units {
		if !o.Units[i].State.Resolved() {
			return false
		}
	}
	return true
}

// UnresolvedUnits возвращает единицы, мешающие фискализации.
func (o *Order) UnresolvedUnits() []ScannableUnit {
	var out []ScannableUnit
	for _, u := range o.Units {
		if !u.State.Resolved() {
			out = append(out, u)
		}
	}
	return out
}

// AppliedMarks возвращает принятые коды маркировки по строке заказа.
func (o *Order) AppliedMarks(lineIndex int) []string {
	var codes []string
	for _, u := range o.Units {
		if u.LineIndex == lineIndex && u.State == UnitApplied && u.MarkCode != "" {
			codes = append(codes, u.MarkCode)
		}
	}
	return codes
}

// Clone делает глубокую копию заказа.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = append([]OrderLine(nil), o.Lines...)
	c.Units = append([]ScannableUnit(nil), o.Units...)
	c.Anomalies = append([]string(nil), o.Anomalies...)
	return &c
}

// TotalAmount возвращает сумму заказа по строкам.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.TotalAmount)
	}
	return total
}
