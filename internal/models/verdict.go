package models

import "time"

// VerdictSource показывает, откуда получен результат проверки кода.
type VerdictSource string

const (
	VerdictFromRegistry VerdictSource = "registry"
	VerdictSynthetic    VerdictSource = "synthetic"
)

// Verdict - результат проверки кода маркировки в реестре.
type Verdict struct {
	Code                     string        `json:"cis"`
	Valid                    bool          `json:"valid"`
	FoundInSystem            bool          `json:"found"`
	IsSold                   bool          `json:"sold"`
	IsBlocked                bool          `json:"is_blocked"`
	IsRealizable             bool          `json:"realizable"`
	IsRemovedFromCirculation bool          `json:"utilised"`
	GTIN                     string        `json:"gtin,omitempty"`
	ProducerINN              string        `json:"producer_inn,omitempty"`
	PackageType              string        `json:"package_type,omitempty"`
	ProductionDate           *time.Time    `json:"production_date,omitempty"`
	ExpireDate               *time.Time    `json:"expire_date,omitempty"`
	ErrorCode                int           `json:"error_code,omitempty"`
	Source                   VerdictSource `json:"source"`
	Endpoint                 string        `json:"endpoint,omitempty"`
}

// IsUsable сообщает, можно ли применить код к продаже.
// Реестр требует, чтобы единица уже была выведена из оборота.
func (v Verdict) IsUsable() bool {
	return v.FoundInSystem &&
		!v.IsSold &&
		!v.IsBlocked &&
		v.IsRealizable &&
		v.IsRemovedFromCirculation
}

// Synthetic сообщает, что результат сформирован локально без обращения к реестру.
func (v Verdict) Synthetic() bool {
	return v.Source == VerdictSynthetic
}

// Problems перечисляет причины, по которым код нельзя применить.
func (v Verdict) Problems() []string {
	var p []string
	if !v.FoundInSystem {
		p = append(p, "код не найден в реестре")
	}
	if v.IsSold {
		p = append(p, "товар уже продан")
	}
	if v.IsBlocked {
		p = append(p, "товар заблокирован")
	}
	if !v.IsRealizable {
		p = append(p, "товар не введён в оборот")
	}
	if !v.IsRemovedFromCirculation {
		p = append(p, "товар не выведен из оборота")
	}
	return p
}
