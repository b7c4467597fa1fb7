package engine

import "fmt"

// UnsupportedFrequencyError is returned when a frequency configuration
// is missing or names a variant the engine does not know.
type UnsupportedFrequencyError struct {
	Frequency string
}

func (e *UnsupportedFrequencyError) Error() string {
	if e.Frequency == "" {
		return "frecuencia de pago no soportada"
	}
	return fmt.Sprintf("frecuencia de pago no soportada: %s", e.Frequency)
}

// UnsupportedLendingModelError is returned when loan terms name a
// lending model the engine does not implement.
type UnsupportedLendingModelError struct {
	Model LendingModel
}

func (e *UnsupportedLendingModelError) Error() string {
	return fmt.Sprintf("modalidad de préstamo no soportada: %s", e.Model)
}
