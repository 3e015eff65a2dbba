package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
)

// ValidateInputs checks every field of the inputs against its accepted range
// and returns all violations joined into one error.
func ValidateInputs(in sizing.RocketInputs) error {
	var errs []error

	fields := []struct {
		name  string
		value float64
	}{
		{"payload mass", in.PayloadMass},
		{"specific impulse", in.SpecificImpulse},
		{"launch latitude", in.LaunchLatitude},
		{"orbit altitude", in.OrbitAltitude},
		{"structural fraction", in.StructuralFraction},
		{"delta-v budget", in.DeltaVBudget},
	}
	for _, field := range fields {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			errs = append(errs, fmt.Errorf("%s must be a finite number, got %v", field.name, field.value))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if in.PayloadMass <= 0 {
		errs = append(errs, fmt.Errorf("payload mass must be positive, got %v kg", in.PayloadMass))
	}
	if in.SpecificImpulse <= 0 {
		errs = append(errs, fmt.Errorf("specific impulse must be positive, got %v s", in.SpecificImpulse))
	}
	if in.LaunchLatitude < constants.MinLatitude || in.LaunchLatitude > constants.MaxLatitude {
		errs = append(errs, fmt.Errorf("launch latitude must be between %v and %v degrees, got %v",
			constants.MinLatitude, constants.MaxLatitude, in.LaunchLatitude))
	}
	if in.OrbitAltitude < 0 {
		errs = append(errs, fmt.Errorf("orbit altitude must not be negative, got %v m", in.OrbitAltitude))
	}
	if in.StructuralFraction <= 0 || in.StructuralFraction >= 1 {
		errs = append(errs, fmt.Errorf("structural fraction must be between 0 and 1 exclusive, got %v", in.StructuralFraction))
	}
	if err := ValidateDeltaV(in.DeltaVBudget); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateDeltaV checks that a delta-v budget in m/s lies within the
// accepted window.
func ValidateDeltaV(deltaV float64) error {
	if deltaV < constants.MinDeltaVBudget || deltaV > constants.MaxDeltaVBudget {
		return fmt.Errorf("delta-v budget must be between %.2f and %.2f m/s, got %.2f",
			constants.MinDeltaVBudget, constants.MaxDeltaVBudget, deltaV)
	}
	return nil
}

// ValidateDeltaVKilometers checks a delta-v budget given in km/s, the unit
// used by the interactive prompt.
func ValidateDeltaVKilometers(deltaVKm float64) error {
	minKm := constants.MinDeltaVBudget / constants.MetersPerKilometer
	maxKm := constants.MaxDeltaVBudget / constants.MetersPerKilometer
	if deltaVKm < minKm || deltaVKm > maxKm {
		return fmt.Errorf("please enter a delta-v budget between %.1f and %.1f km/s", minKm, maxKm)
	}
	return nil
}

// InputWarnings returns advisory messages for inputs that are valid but
// unrealistic.
func InputWarnings(in sizing.RocketInputs) []string {
	var warnings []string

	if in.StructuralFraction < constants.TypicalMinStructuralFraction ||
		in.StructuralFraction > constants.TypicalMaxStructuralFraction {
		warnings = append(warnings, fmt.Sprintf("Structural fraction %v is outside the typical range of %.0f%% to %.0f%%",
			in.StructuralFraction, constants.TypicalMinStructuralFraction*100, constants.TypicalMaxStructuralFraction*100))
	}
	if in.OrbitAltitude < constants.KarmanLine {
		warnings = append(warnings, fmt.Sprintf("Orbit altitude %.0f m is below the Karman line (%.0f m)",
			in.OrbitAltitude, constants.KarmanLine))
	}

	return warnings
}
