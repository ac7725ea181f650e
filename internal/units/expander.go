// Package units разворачивает строки заказа в отдельно сканируемые единицы.
package units

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agamariel/markstation/internal/models"
)

var (
	ErrNonPositiveQuantity = errors.New("line quantity is not positive")
	ErrFractionalQuantity  = errors.New("marked line has fractional quantity")
)

const (
	amountPlaces = 2
	weightPlaces = 3
)

// Expand разворачивает одну строку заказа.
// Немаркированная строка или строка с количеством 1 даёт одну единицу,
// маркированная строка с количеством q > 1 даёт q единиц с долями веса и суммы.
func Expand(lineIndex int, line models.OrderLine) ([]models.ScannableUnit, error) {
	if !line.Quantity.IsPositive() {
		return nil, fmt.Errorf("%s: %w", line.ProductName, ErrNonPositiveQuantity)
	}

	if !line.RequiresMark {
		return []models.ScannableUnit{single(lineIndex, line, models.UnitNotRequired)}, nil
	}

	if !line.Quantity.Equal(line.Quantity.Truncate(0)) {
		return nil, fmt.Errorf("%s: quantity %s: %w", line.ProductName, line.Quantity, ErrFractionalQuantity)
	}

	if line.Quantity.Equal(decimal.NewFromInt(1)) {
		u := single(lineIndex, line, models.UnitAwaitingMark)
		seed(&u, line.MarkCode)
		return []models.ScannableUnit{u}, nil
	}

	n := line.Quantity.IntPart()
	count := decimal.NewFromInt(n)
	amountShare := line.TotalAmount.DivRound(count, amountPlaces)
	weightShare := line.TotalWeight.DivRound(count, weightPlaces)

	out := make([]models.ScannableUnit, 0, n)
	amountLeft := line.TotalAmount
	weightLeft := line.TotalWeight
	for i := int64(1); i <= n; i++ {
		amount, weight := amountShare, weightShare
		if i == n {
			// остаток от округления забирает последняя единица
			amount, weight = amountLeft, weightLeft
		}
		amountLeft = amountLeft.Sub(amount)
		weightLeft = weightLeft.Sub(weight)

		out = append(out, models.ScannableUnit{
			LineIndex:    lineIndex,
			DisplayIndex: int(i),
			Expanded:     true,
			ProductName:  line.ProductName,
			Price:        line.Price,
			Quantity:     decimal.NewFromInt(1),
			Weight:       weight,
			Amount:       amount,
			RequiresMark: true,
			State:        models.UnitAwaitingMark,
		})
	}
	seed(&out[0], line.MarkCode)

	return out, nil
}

// ExpandOrder разворачивает все строки заказа с сохранением порядка.
// Строки с неположительным количеством не дают единиц и возвращаются как аномалии.
func ExpandOrder(lines []models.OrderLine) ([]models.ScannableUnit, []string, error) {
	var (
		out       []models.ScannableUnit
		anomalies []string
	)
	for i, line := range lines {
		units, err := Expand(i, line)
		if err != nil {
			if errors.Is(err, ErrNonPositiveQuantity) {
				anomalies = append(anomalies, err.Error())
				continue
			}
			return nil, nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, units...)
	}

	for i := range out {
		out[i].Position = i
	}

	return out, anomalies, nil
}

func single(lineIndex int, line models.OrderLine, state models.UnitState) models.ScannableUnit {
	return models.ScannableUnit{
		LineIndex:    lineIndex,
		DisplayIndex: 1,
		ProductName:  line.ProductName,
		Price:        line.Price,
		Quantity:     line.Quantity,
		Weight:       line.TotalWeight,
		Amount:       line.TotalAmount,
		RequiresMark: line.RequiresMark,
		State:        state,
	}
}

// seed переносит ранее сохранённую марку на первую единицу строки.
func seed(u *models.ScannableUnit, mark string) {
	if mark == "" {
		return
	}
	u.State = models.UnitApplied
	u.MarkCode = mark
}
