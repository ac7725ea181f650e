// Package fiscal собирает фискальный чек по заказу и отправляет его в облачную кассу.
package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
)

var (
	ErrOrderUnresolved   = errors.New("order has units without a resolved mark")
	ErrAlreadyFiscalized = errors.New("order is already fiscalized")
	ErrEmptyReceipt      = errors.New("order has no lines to fiscalize")
	ErrSubmissionFailed  = errors.New("receipt submission failed")
)

const (
	docTypeSale        = "SALE"
	measureName        = "шт"
	measureCode        = 796
	fullPaymentMethod  = 1
	markProcessingMode = 0
)

var hundred = decimal.NewFromInt(100)

// RejectedError перечисляет единицы, мешающие фискализации.
type RejectedError struct {
	OrderID string
	Units   []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order %s: %d unresolved units: %s", e.OrderID, len(e.Units), strings.Join(e.Units, ", "))
}

// Is позволяет сравнивать ошибку с ErrOrderUnresolved через errors.Is.
func (e *RejectedError) Is(target error) bool {
	return target == ErrOrderUnresolved
}

// Submitter отправляет чек в кассу.
type Submitter interface {
	Submit(ctx context.Context, receipt *models.Receipt) error
}

// Config - параметры чека.
type Config struct {
	TaxPercent    decimal.Decimal
	TaxSystem     int
	PaymentMethod int
	Cashier       string
}

// Gate - единственная точка отправки чеков. Не пропускает заказы с неразрешёнными единицами.
type Gate struct {
	cfg       Config
	submitter Submitter
	logger    *zap.SugaredLogger
	now       func() time.Time
	newID     func() uuid.UUID
}

// NewGate создаёт шлюз фискализации.
func NewGate(cfg Config, submitter Submitter, logger *zap.SugaredLogger) *Gate {
	return &Gate{
		cfg:       cfg,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.New,
	}
}

// Finalize проверяет, что все единицы заказа разрешены, собирает чек и отправляет его.
// Повторных попыток отправки нет.
func (g *Gate) Finalize(ctx context.Context, order *models.Order) (*models.Receipt, error) {
	if order.Fiscalized {
		return nil, ErrAlreadyFiscalized
	}

	if unresolved := order.UnresolvedUnits(); len(unresolved) > 0 {
		labels := make([]string, len(unresolved))
		for i, u := range unresolved {
			labels[i] = u.Label()
		}
		return nil, &RejectedError{OrderID: order.ID(), Units: labels}
	}

	receipt := g.Assemble(order)
	if len(receipt.Positions) == 0 {
		return nil, ErrEmptyReceipt
	}

	if err := g.submitter.Submit(ctx, receipt); err != nil {
		g.logger.Errorw("receipt submission failed", "order", order.ID(), "receipt", receipt.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	g.logger.Infow("receipt submitted", "order", order.ID(), "receipt", receipt.ID, "total", receipt.Total)
	return receipt, nil
}

// Assemble собирает чек: одна позиция на строку заказа, марки берутся из применённых единиц.
func (g *Gate) Assemble(order *models.Order) *models.Receipt {
	receipt := &models.Receipt{
		ID:            g.newID(),
		OrderID:       order.ID(),
		CheckoutDate:  g.now(),
		DocType:       docTypeSale,
		TaxSystem:     g.cfg.TaxSystem,
		Cashier:       g.cfg.Cashier,
		CustomerEmail: order.Customer.Email,
		CustomerPhone: order.Customer.Phone,
		Total:         decimal.Zero,
	}

	for li, line := range order.Lines {
		if !line.Quantity.IsPositive() {
			continue
		}
		pos := g.position(line, order.AppliedMarks(li))
		receipt.Positions = append(receipt.Positions, pos)
		receipt.Total = receipt.Total.Add(pos.Amount)
	}

	receipt.Payments = []models.ReceiptPayment{{
		Type: g.cfg.PaymentMethod,
		Sum:  receipt.Total,
	}}
	return receipt
}

func (g *Gate) position(line models.OrderLine, marks []string) models.ReceiptPosition {
	amount := line.Price.Mul(line.Quantity).Round(2)
	pos := models.ReceiptPosition{
		UUID:          g.newID(),
		ProductName:   line.ProductName,
		ProductCode:   line.GTIN,
		MeasureName:   measureName,
		MeasureCode:   measureCode,
		Price:         line.Price,
		Quantity:      line.Quantity,
		Amount:        amount,
		TaxPercent:    g.cfg.TaxPercent,
		TaxSum:        amount.Mul(g.cfg.TaxPercent).Div(hundred).Round(2),
		PaymentMethod: fullPaymentMethod,
		PaymentObject: models.PaymentObjectCommodity,
		IsExcise:      line.Excise,
	}

	if len(marks) == 0 {
		return pos
	}

	pos.PaymentObject = models.PaymentObjectMarked
	if line.Excise {
		pos.PaymentObject = models.PaymentObjectMarkedExcise
	}
	pos.MarkCode = marks[0]
	pos.MarkCodes = marks
	mode := markProcessingMode
	pos.MarkProcessingMode = &mode
	if pos.ProductCode == "" && len(marks[0]) >= 16 {
		pos.ProductCode = marks[0][2:16]
	}
	return pos
}
