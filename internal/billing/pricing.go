package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kos-manager/models"
)

// ConfirmedBillingDays is the flat multiplier for confirmed residents. It does not
// follow the calendar.
const ConfirmedBillingDays = 30

var ErrUnknownResidentStatus = errors.New("unknown resident status")

// AllResidentStatuses is the closed set of statuses MonthlyAmount knows how to price.
var AllResidentStatuses = []models.ResidentStatus{
	models.ResidentConfirmed,
	models.ResidentProspective,
}

func ParseResidentStatus(s string) (models.ResidentStatus, error) {
	for _, status := range AllResidentStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResidentStatus, s)
}

// ResidentStatusOf resolves the status used for pricing a tenancy. A tenancy
// without a resident record is billed as prospective.
func ResidentStatusOf(tenancy *models.Tenancy) (models.ResidentStatus, error) {
	if tenancy == nil || tenancy.Resident == nil {
		return models.ResidentProspective, nil
	}
	return ParseResidentStatus(string(tenancy.Resident.Status))
}

// MonthlyAmount prices one month of a room for the period containing date.
//
//   - confirmed resident:   dailyRate * 30
//   - prospective resident: dailyRate * days in the month
func MonthlyAmount(dailyRate decimal.Decimal, status models.ResidentStatus, date time.Time) (decimal.Decimal, error) {
	switch status {
	case models.ResidentConfirmed:
		return dailyRate.Mul(decimal.NewFromInt(ConfirmedBillingDays)), nil
	case models.ResidentProspective:
		return dailyRate.Mul(decimal.NewFromInt(int64(DaysInMonth(date)))), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownResidentStatus, status)
	}
}
