package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Признаки предмета расчёта.
const (
	PaymentObjectCommodity    = 1
	PaymentObjectMarkedExcise = 31
	PaymentObjectMarked       = 33
)

// ReceiptPosition - позиция фискального чека, одна на строку заказа.
type ReceiptPosition struct {
	UUID               uuid.UUID       `json:"uuid"`
	ProductName        string          `json:"product_name"`
	ProductCode        string          `json:"product_code"`
	MeasureName        string          `json:"measure_name"`
	MeasureCode        int             `json:"measure_code"`
	Price              decimal.Decimal `json:"price"`
	Quantity           decimal.Decimal `json:"quantity"`
	Amount             decimal.Decimal `json:"amount"`
	TaxPercent         decimal.Decimal `json:"tax_percent"`
	TaxSum             decimal.Decimal `json:"tax_sum"`
	PaymentMethod      int             `json:"payment_method"`
	PaymentObject      int             `json:"payment_object"`
	IsExcise           bool            `json:"is_excise"`
	MarkCode           string          `json:"mark_code,omitempty"`
	MarkCodes          []string        `json:"mark_codes,omitempty"`
	MarkProcessingMode *int            `json:"mark_processing_mode,omitempty"`
}

// ReceiptPayment - оплата по чеку.
type ReceiptPayment struct {
	Type int             `json:"type"`
	Sum  decimal.Decimal `json:"sum"`
}

// Receipt - фискальный чек, собранный по полностью разрешённому заказу.
type Receipt struct {
	ID            uuid.UUID         `json:"id"`
	OrderID       string            `json:"doc_num"`
	CheckoutDate  time.Time         `json:"checkout_date"`
	DocType       string            `json:"doc_type"`
	TaxSystem     int               `json:"tax_system"`
	Cashier       string            `json:"cashier"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	Positions     []ReceiptPosition `json:"positions"`
	Payments      []ReceiptPayment  `json:"payments"`
	Total         decimal.Decimal   `json:"total"`
}
