package registry

import (
	"time"

	"github.com/agamariel/markstation/internal/models"
)

type checkRequest struct {
	Codes []string `json:"codes"`
}

type checkReply struct {
	Code        int         `json:"code"`
	Description string      `json:"description"`
	Codes       []codeReply `json:"codes"`
}

// codeReply - сведения о коде в ответе реестра. Отсутствующие флаги
// принимают значения, которые реестр подразумевает по умолчанию.
type codeReply struct {
	CIS            string `json:"cis"`
	Valid          bool   `json:"valid"`
	Found          *bool  `json:"found"`
	Realizable     *bool  `json:"realizable"`
	Utilised       bool   `json:"utilised"`
	IsBlocked      bool   `json:"isBlocked"`
	Sold           bool   `json:"sold"`
	GTIN           string `json:"gtin"`
	ProducerINN    string `json:"producerInn"`
	PackageType    string `json:"packageType"`
	ProductionDate string `json:"productionDate"`
	ExpireDate     string `json:"expireDate"`
	ErrorCode      int    `json:"errorCode"`
}

func (r codeReply) verdict(requested string) models.Verdict {
	cis := r.CIS
	if cis == "" {
		cis = requested
	}
	return models.Verdict{
		Code:                     cis,
		Valid:                    r.Valid,
		FoundInSystem:            boolOr(r.Found, true),
		IsSold:                   r.Sold,
		IsBlocked:                r.IsBlocked,
		IsRealizable:             boolOr(r.Realizable, true),
		IsRemovedFromCirculation: r.Utilised,
		GTIN:                     r.GTIN,
		ProducerINN:              r.ProducerINN,
		PackageType:              r.PackageType,
		ProductionDate:           parseDate(r.ProductionDate),
		ExpireDate:               parseDate(r.ExpireDate),
		ErrorCode:                r.ErrorCode,
		Source:                   models.VerdictFromRegistry,
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
