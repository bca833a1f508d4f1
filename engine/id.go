package engine

import (
	"github.com/google/uuid"
)

// newCalculationID mints a globally unique calculation id.
func newCalculationID() CalculationID {
	return CalculationID("calc-" + uuid.NewString())
}
