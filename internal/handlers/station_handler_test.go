package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/auth"
	"github.com/agamariel/markstation/internal/fiscal"
	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/station"
	"github.com/agamariel/markstation/internal/storage"
	"github.com/agamariel/markstation/internal/units"
)

type mockStation struct {
	err     error
	receipt *models.Receipt
	scanned string
	unit    int
}

func (m *mockStation) Snapshot(ctx context.Context) (station.Snapshot, error) {
	return station.Snapshot{Selected: -1}, nil
}

func (m *mockStation) Scan(ctx context.Context, token string) error {
	m.scanned = token
	return m.err
}

func (m *mockStation) Select(ctx context.Context, unit int) error {
	m.unit = unit
	return m.err
}

func (m *mockStation) Waive(ctx context.Context, unit int) error {
	m.unit = unit
	return m.err
}

func (m *mockStation) Confirm(ctx context.Context) error { return m.err }
func (m *mockStation) Reject(ctx context.Context) error  { return m.err }
func (m *mockStation) Clear(ctx context.Context) error   { return m.err }

func (m *mockStation) Finalize(ctx context.Context) (*models.Receipt, error) {
	return m.receipt, m.err
}

func TestStationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"success", nil, http.StatusOK},
		{"order not found", fmt.Errorf("lookup order 7: %w", storage.ErrOrderNotFound), http.StatusNotFound},
		{"unit out of range", station.ErrUnitOutOfRange, http.StatusNotFound},
		{"fractional marked quantity", fmt.Errorf("expand: %w", units.ErrFractionalQuantity), http.StatusUnprocessableEntity},
		{"no order", station.ErrNoOrder, http.StatusConflict},
		{"validation in flight", station.ErrValidationInFlight, http.StatusConflict},
		{"no decision pending", station.ErrNoDecisionPending, http.StatusConflict},
		{"already fiscalized", fiscal.ErrAlreadyFiscalized, http.StatusConflict},
		{"submission failed", fmt.Errorf("%w: timeout", fiscal.ErrSubmissionFailed), http.StatusBadGateway},
		{"loop stopped", station.ErrLoopStopped, http.StatusServiceUnavailable},
		{"persist failure", fmt.Errorf("%w: db down", station.ErrPersistMark), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/station/decision/confirm", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := NewStationHandler(&mockStation{err: tt.err})
			err := handler.Confirm(c)

			assertStatus(t, err, rec, tt.expectedStatus)
		})
	}
}

func TestStationHandler_Scan(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantToken      string
		expectedStatus int
	}{
		{"order id", "ORDER_1001\r\n", "ORDER_1001", http.StatusOK},
		{"empty body", "  \n", "", http.StatusBadRequest},
		{"oversized body", strings.Repeat("9", maxScanBody+1), "", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/station/scan", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			mock := &mockStation{}
			err := NewStationHandler(mock).Scan(c)

			assertStatus(t, err, rec, tt.expectedStatus)
			assert.Equal(t, tt.wantToken, mock.scanned)
		})
	}
}

func TestStationHandler_UnitIndex(t *testing.T) {
	tests := []struct {
		name           string
		param          string
		expectedStatus int
	}{
		{"valid", "2", http.StatusOK},
		{"negative", "-1", http.StatusBadRequest},
		{"not a number", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("index")
			c.SetParamValues(tt.param)

			mock := &mockStation{}
			err := NewStationHandler(mock).Waive(c)

			assertStatus(t, err, rec, tt.expectedStatus)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, 2, mock.unit)
			}
		})
	}
}

func TestStationHandler_LogsOperatorOnWaive(t *testing.T) {
	e := echo.New()
	var buf bytes.Buffer
	e.Logger.SetOutput(&buf)
	e.Logger.SetLevel(log.INFO)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("index")
	c.SetParamValues("1")
	operatorID := uuid.New()
	c.Set(string(auth.OperatorIDKey), operatorID)

	err := NewStationHandler(&mockStation{}).Waive(c)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unit 1 waived by operator "+operatorID.String())
}

func TestStationHandler_FinalizeRejected(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/station/finalize", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mock := &mockStation{err: &fiscal.RejectedError{OrderID: "1001", Units: []string{"Milk [2]"}}}
	err := NewStationHandler(mock).Finalize(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Milk [2]")
}

type usableValidator struct{}

func (usableValidator) Validate(ctx context.Context, cis string) models.Verdict {
	return models.Verdict{
		Code:                     cis,
		Valid:                    true,
		FoundInSystem:            true,
		IsRealizable:             true,
		IsRemovedFromCirculation: true,
		Source:                   models.VerdictFromRegistry,
	}
}

type recordingSubmitter struct {
	mu       sync.Mutex
	receipts []*models.Receipt
}

func (s *recordingSubmitter) Submit(ctx context.Context, receipt *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, receipt)
	return nil
}

func TestStationHandler_CheckoutFlow(t *testing.T) {
	const cis = "0104601234567890215abcdefghijk"

	var persisted []string
	repo := &storage.MockOrderStorage{
		LookupOrderFunc: func(ctx context.Context, orderID string) (*models.Customer, []models.OrderLine, error) {
			if orderID != "1001" {
				return nil, nil, storage.ErrOrderNotFound
			}
			return &models.Customer{OrderID: "1001", Email: "buyer@example.com"}, []models.OrderLine{
				{ProductName: "Shoes", Price: decimal.NewFromInt(2500), Quantity: decimal.NewFromInt(1), TotalAmount: decimal.NewFromInt(2500), RequiresMark: true},
				{ProductName: "Bag", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TotalAmount: decimal.NewFromInt(100)},
			}, nil
		},
		PersistMarkFunc: func(ctx context.Context, orderID, productName, code string) error {
			persisted = append(persisted, productName+"="+code)
			return nil
		},
	}
	submitter := &recordingSubmitter{}
	logger := zap.NewNop().Sugar()
	gate := fiscal.NewGate(fiscal.Config{TaxPercent: decimal.NewFromInt(20), PaymentMethod: 1}, submitter, logger)
	st := station.New(repo, usableValidator{}, gate, time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = st.Run(ctx) }()

	e := echo.New()
	h := NewStationHandler(st)
	e.GET("/state", h.State)
	e.POST("/scan", h.Scan)
	e.POST("/decision/confirm", h.Confirm)
	e.POST("/finalize", h.Finalize)

	do := func(method, path, body string) (*httptest.ResponseRecorder, station.Snapshot) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		var snap station.Snapshot
		if rec.Code == http.StatusOK && path != "/finalize" {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		}
		return rec, snap
	}

	rec, _ := do(http.MethodPost, "/scan", "ORDER_404")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, snap := do(http.MethodPost, "/scan", "ORDER_1001")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.Order)
	require.Len(t, snap.Order.Units, 2)
	assert.Equal(t, "needs_mark", snap.Order.Units[0].Visual)
	assert.Equal(t, "not_required", snap.Order.Units[1].Visual)
	assert.Equal(t, 0, snap.Selected)

	rec, _ = do(http.MethodPost, "/finalize", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(http.MethodPost, "/scan", cis)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		_, snap := do(http.MethodGet, "/state", "")
		return snap.Pending != nil && snap.Pending.CanConfirm
	}, time.Second, 10*time.Millisecond)

	rec, snap = do(http.MethodPost, "/decision/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "applied", snap.Order.Units[0].Visual)
	assert.Equal(t, cis, snap.Order.Units[0].Mark)
	assert.True(t, snap.Order.Resolved)
	assert.Equal(t, []string{"Shoes=" + cis}, persisted)

	rec, _ = do(http.MethodPost, "/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "1001", receipt.OrderID)
	require.Len(t, receipt.Positions, 2)
	assert.Equal(t, models.PaymentObjectMarked, receipt.Positions[0].PaymentObject)
	assert.Len(t, submitter.receipts, 1)

	rec, _ = do(http.MethodPost, "/finalize", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
