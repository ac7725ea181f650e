package station

import (
	"github.com/shopspring/decimal"

	"github.com/agamariel/markstation/internal/models"
)

// UnitView - строка таблицы товаров для интерфейса.
type UnitView struct {
	Index       int              `json:"index"`
	Label       string           `json:"label"`
	ProductName string           `json:"product_name"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Amount      decimal.Decimal  `json:"amount"`
	Weight      decimal.Decimal  `json:"weight"`
	Mark        string           `json:"mark"`
	State       models.UnitState `json:"state"`
	Visual      string           `json:"visual"`
}

// OrderView - заказ на станции.
type OrderView struct {
	Customer   models.Customer `json:"customer"`
	Units      []UnitView      `json:"units"`
	Anomalies  []string        `json:"anomalies,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Resolved   bool            `json:"resolved"`
	Fiscalized bool            `json:"fiscalized"`
}

// PendingView - проверка кода, ожидающая реестра или оператора.
type PendingView struct {
	Unit       int             `json:"unit"`
	Code       string          `json:"code"`
	InFlight   bool            `json:"in_flight"`
	Verdict    *models.Verdict `json:"verdict,omitempty"`
	CanConfirm bool            `json:"can_confirm"`
	Problems   []string        `json:"problems,omitempty"`
}

// Snapshot - снимок состояния станции, который отрисовывает интерфейс.
type Snapshot struct {
	Order     *OrderView                 `json:"order,omitempty"`
	Selected  int                        `json:"selected"`
	Pending   *PendingView               `json:"pending,omitempty"`
	Notice    string                     `json:"notice,omitempty"`
	Endpoints []models.EndpointCandidate `json:"endpoints"`
}

func (s *Station) snapshot() Snapshot {
	snap := Snapshot{
		Selected:  s.session.Selected(),
		Notice:    s.notice,
		Endpoints: append([]models.EndpointCandidate(nil), s.endpoints...),
	}

	order := s.session.Order()
	if order == nil {
		return snap
	}

	view := &OrderView{
		Customer:   order.Customer,
		Units:      make([]UnitView, len(order.Units)),
		Anomalies:  append([]string(nil), order.Anomalies...),
		Total:      order.TotalAmount(),
		Resolved:   order.IsResolved(),
		Fiscalized: order.Fiscalized,
	}
	for i, u := range order.Units {
		view.Units[i] = UnitView{
			Index:       i,
			Label:       u.Label(),
			ProductName: u.ProductName,
			Quantity:    u.Quantity,
			Amount:      u.Amount,
			Weight:      u.Weight,
			Mark:        u.MarkText(),
			State:       u.State,
			Visual:      u.State.Visual(),
		}
	}
	snap.Order = view

	if p, ok := s.session.Pending(); ok {
		pv := &PendingView{
			Unit:     p.Unit,
			Code:     p.Code,
			InFlight: p.InFlight(),
		}
		if p.Verdict != nil {
			v := *p.Verdict
			pv.Verdict = &v
			pv.CanConfirm = v.IsUsable()
			pv.Problems = v.Problems()
		}
		snap.Pending = pv
	}

	return snap
}
