package registry

import (
	"time"

	"github.com/agamariel/markstation/internal/models"
)

const (
	syntheticGTIN        = "04600000000000"
	syntheticProducerINN = "1234567890"
	syntheticPackageType = "UNIT"
)

// Synthetic формирует локальный результат проверки, разрешающий продажу.
// Используется, когда реестр недоступен.
func Synthetic(cis string) models.Verdict {
	gtin := syntheticGTIN
	if len(cis) >= 16 {
		gtin = cis[2:16]
	}
	produced := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	return models.Verdict{
		Code:                     cis,
		Valid:                    true,
		FoundInSystem:            true,
		IsRealizable:             true,
		IsRemovedFromCirculation: true,
		GTIN:                     gtin,
		ProducerINN:              syntheticProducerINN,
		PackageType:              syntheticPackageType,
		ProductionDate:           &produced,
		ExpireDate:               &expires,
		Source:                   models.VerdictSynthetic,
	}
}
