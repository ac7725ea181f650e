package fiscal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/units"
)

type recordingSubmitter struct {
	err      error
	receipts []*models.Receipt
}

func (s *recordingSubmitter) Submit(ctx context.Context, r *models.Receipt) error {
	s.receipts = append(s.receipts, r)
	return s.err
}

func newTestGate(sub Submitter) *Gate {
	g := NewGate(Config{
		TaxPercent:    decimal.NewFromInt(20),
		TaxSystem:     0,
		PaymentMethod: 1,
		Cashier:       "Кассир по умолчанию",
	}, sub, zap.NewNop().Sugar())
	g.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func buildOrder(t *testing.T, lines ...models.OrderLine) *models.Order {
	t.Helper()
	expanded, anomalies, err := units.ExpandOrder(lines)
	require.NoError(t, err)
	return &models.Order{
		Customer:  models.Customer{OrderID: "1001", Email: "buyer@example.com", Phone: "+79990000000"},
		Lines:     lines,
		Units:     expanded,
		Anomalies: anomalies,
	}
}

func cheese() models.OrderLine {
	return models.OrderLine{
		ProductName:  "Сыр",
		Price:        decimal.NewFromInt(450),
		Quantity:     decimal.NewFromInt(1),
		TotalAmount:  decimal.NewFromInt(450),
		RequiresMark: true,
	}
}

func TestGate_RejectsUnresolvedThenAcceptsAfterWaive(t *testing.T) {
	sub := &recordingSubmitter{}
	g := newTestGate(sub)
	order := buildOrder(t, cheese())

	_, err := g.Finalize(context.Background(), order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderUnresolved))

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, []string{"Сыр"}, rejected.Units)
	assert.Empty(t, sub.receipts)

	order.Units[0].State = models.UnitWaived

	receipt, err := g.Finalize(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, sub.receipts, 1)
	assert.Same(t, receipt, sub.receipts[0])
	require.Len(t, receipt.Positions, 1)
	assert.Equal(t, models.PaymentObjectCommodity, receipt.Positions[0].PaymentObject)
	assert.Empty(t, receipt.Positions[0].MarkCode)
}

func TestGate_ListsEveryUnresolvedUnit(t *testing.T) {
	order := buildOrder(t,
		models.OrderLine{ProductName: "Milk", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(3), TotalAmount: decimal.NewFromInt(300), RequiresMark: true},
		models.OrderLine{ProductName: "Bread", Price: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1), TotalAmount: decimal.NewFromInt(50)},
	)
	order.Units[0].State = models.UnitApplied
	order.Units[0].MarkCode = "0104600000000001215aaa"
	order.Units[2].State = models.UnitPendingValidation

	_, err := newTestGate(&recordingSubmitter{}).Finalize(context.Background(), order)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "1001", rejected.OrderID)
	assert.Equal(t, []string{"Milk [2]", "Milk [3]"}, rejected.Units)
	assert.Contains(t, err.Error(), "Milk [2]")
}

func TestGate_Assemble(t *testing.T) {
	order := buildOrder(t,
		models.OrderLine{ProductName: "Milk", GTIN: "04600000000001", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(3), TotalAmount: decimal.NewFromInt(300), RequiresMark: true},
		models.OrderLine{ProductName: "Вино", Price: decimal.RequireFromString("899.90"), Quantity: decimal.NewFromInt(1), TotalAmount: decimal.RequireFromString("899.90"), RequiresMark: true, Excise: true},
		models.OrderLine{ProductName: "Bread", Price: decimal.RequireFromString("45.50"), Quantity: decimal.NewFromInt(2), TotalAmount: decimal.NewFromInt(91)},
		models.OrderLine{ProductName: "Пусто", Price: decimal.NewFromInt(10), Quantity: decimal.Zero},
	)
	require.Len(t, order.Anomalies, 1)

	order.Units[0].State, order.Units[0].MarkCode = models.UnitApplied, "0104600000000001215aaa"
	order.Units[1].State, order.Units[1].MarkCode = models.UnitApplied, "0104600000000001215bbb"
	order.Units[2].State = models.UnitWaived
	order.Units[3].State, order.Units[3].MarkCode = models.UnitApplied, "0104607777777777215ccc"

	sub := &recordingSubmitter{}
	receipt, err := newTestGate(sub).Finalize(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, "1001", receipt.OrderID)
	assert.Equal(t, "SALE", receipt.DocType)
	assert.Equal(t, "buyer@example.com", receipt.CustomerEmail)
	assert.Equal(t, "+79990000000", receipt.CustomerPhone)
	assert.NotEqual(t, uuid.Nil, receipt.ID)
	require.Len(t, receipt.Positions, 3)

	milk := receipt.Positions[0]
	assert.Equal(t, models.PaymentObjectMarked, milk.PaymentObject)
	assert.Equal(t, "0104600000000001215aaa", milk.MarkCode)
	assert.Equal(t, []string{"0104600000000001215aaa", "0104600000000001215bbb"}, milk.MarkCodes)
	require.NotNil(t, milk.MarkProcessingMode)
	assert.Equal(t, 0, *milk.MarkProcessingMode)
	assert.Equal(t, "04600000000001", milk.ProductCode)
	assert.True(t, milk.Amount.Equal(decimal.NewFromInt(300)))
	assert.True(t, milk.TaxSum.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "шт", milk.MeasureName)
	assert.Equal(t, 796, milk.MeasureCode)

	wine := receipt.Positions[1]
	assert.Equal(t, models.PaymentObjectMarkedExcise, wine.PaymentObject)
	assert.Equal(t, "04607777777777", wine.ProductCode)
	assert.True(t, wine.TaxSum.Equal(decimal.RequireFromString("179.98")))

	bread := receipt.Positions[2]
	assert.Equal(t, models.PaymentObjectCommodity, bread.PaymentObject)
	assert.Nil(t, bread.MarkProcessingMode)
	assert.True(t, bread.Amount.Equal(decimal.NewFromInt(91)))

	wantTotal := decimal.RequireFromString("1290.90")
	assert.True(t, receipt.Total.Equal(wantTotal), receipt.Total.String())
	require.Len(t, receipt.Payments, 1)
	assert.True(t, receipt.Payments[0].Sum.Equal(wantTotal))
	assert.Equal(t, 1, receipt.Payments[0].Type)
}

func TestGate_AlreadyFiscalized(t *testing.T) {
	sub := &recordingSubmitter{}
	order := buildOrder(t, models.OrderLine{ProductName: "Bread", Price: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)})
	order.Fiscalized = true

	_, err := newTestGate(sub).Finalize(context.Background(), order)
	assert.ErrorIs(t, err, ErrAlreadyFiscalized)
	assert.Empty(t, sub.receipts)
}

func TestGate_EmptyOrder(t *testing.T) {
	order := buildOrder(t, models.OrderLine{ProductName: "Пусто", Quantity: decimal.Zero})

	_, err := newTestGate(&recordingSubmitter{}).Finalize(context.Background(), order)
	assert.ErrorIs(t, err, ErrEmptyReceipt)
}

func TestGate_SubmissionFailed(t *testing.T) {
	apiErr := errors.New("503 service unavailable")
	sub := &recordingSubmitter{err: apiErr}
	order := buildOrder(t, models.OrderLine{ProductName: "Bread", Price: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)})

	receipt, err := newTestGate(sub).Finalize(context.Background(), order)
	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, apiErr)
	assert.Len(t, sub.receipts, 1, "no retry")
}
