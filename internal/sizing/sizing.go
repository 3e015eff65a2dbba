// Package sizing defines the data structures for a single-stage rocket sizing
// run and includes the pipeline that computes them.
package sizing

import (
	"errors"
	"fmt"

	"github.com/iwvelando/rocket-calculator/pkg/physics"
	"go.uber.org/zap"
)

// FatalReason is reported when the structural fraction cannot be made
// feasible by the single adjustment step.
const FatalReason = "structural fraction infeasible even after adjustment"

// RocketInputs holds the validated parameters of one calculation.
type RocketInputs struct {
	PayloadMass        float64 `json:"payloadMassKg" yaml:"payloadMass" mapstructure:"payloadMass"`
	SpecificImpulse    float64 `json:"specificImpulseS" yaml:"specificImpulse" mapstructure:"specificImpulse"`
	LaunchLatitude     float64 `json:"launchLatitudeDeg" yaml:"launchLatitude" mapstructure:"launchLatitude"`
	OrbitAltitude      float64 `json:"orbitAltitudeM" yaml:"orbitAltitude" mapstructure:"orbitAltitude"`
	StructuralFraction float64 `json:"structuralFraction" yaml:"structuralFraction" mapstructure:"structuralFraction"`
	DeltaVBudget       float64 `json:"deltaVBudgetMps" yaml:"deltaVBudget" mapstructure:"deltaVBudget"`
}

// WithStructuralFraction returns a copy of the inputs using the given
// structural fraction.
func (in RocketInputs) WithStructuralFraction(fraction float64) RocketInputs {
	in.StructuralFraction = fraction
	return in
}

// Performance holds the quantities that follow directly from the inputs and
// cannot fail.
type Performance struct {
	OrbitalVelocity          float64 `json:"orbitalVelocityMps"`
	RotationalBoost          float64 `json:"rotationalBoostMps"`
	SelectedDeltaV           float64 `json:"selectedDeltaVMps"`
	MassRatio                float64 `json:"massRatio"`
	EffectiveExhaustVelocity float64 `json:"effectiveExhaustVelocityMps"`
}

// Evaluate computes the orbital velocity, rotational boost, mass ratio and
// exhaust velocity for the inputs.
func Evaluate(inputs RocketInputs) Performance {
	massRatio, exhaustVelocity := physics.MassRatioAndExhaustVelocity(inputs.DeltaVBudget, inputs.SpecificImpulse)
	return Performance{
		OrbitalVelocity:          physics.OrbitalVelocity(inputs.OrbitAltitude),
		RotationalBoost:          physics.RotationalBoost(inputs.LaunchLatitude),
		SelectedDeltaV:           inputs.DeltaVBudget,
		MassRatio:                massRatio,
		EffectiveExhaustVelocity: exhaustVelocity,
	}
}

// CalculationResult holds everything computed for one set of inputs.
type CalculationResult struct {
	Performance
	Inputs                      RocketInputs          `json:"inputs"`
	Masses                      physics.MassBreakdown `json:"masses"`
	StructuralFraction          float64               `json:"structuralFraction"`
	RequestedStructuralFraction float64               `json:"requestedStructuralFraction"`
	Adjusted                    bool                  `json:"adjusted"`
}

// FatalError is returned when the adjusted structural fraction is still
// infeasible. No result is produced in that case.
type FatalError struct {
	Performance      Performance
	OriginalFraction float64
	AdjustedFraction float64
	Err              error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s (original %v, adjusted %.4f)", FatalReason, e.OriginalFraction, e.AdjustedFraction)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Adjust caps the structural fraction at the feasibility boundary for the
// mass ratio and evaluates the total mass once more. It returns the capped
// fraction alongside the outcome; there is no further search.
func Adjust(payload, massRatio float64) (physics.MassBreakdown, float64, error) {
	capped := physics.MaxStructuralFraction(massRatio)
	breakdown, err := physics.TotalMass(payload, massRatio, capped)
	return breakdown, capped, err
}

// Calculate runs the sizing pipeline for inputs that have already been
// validated. An infeasible structural fraction is adjusted once; if the
// adjusted fraction is infeasible too a *FatalError is returned.
func Calculate(logger *zap.Logger, inputs RocketInputs) (CalculationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	performance := Evaluate(inputs)
	massRatio := performance.MassRatio
	result := CalculationResult{
		Performance:                 performance,
		Inputs:                      inputs,
		StructuralFraction:          inputs.StructuralFraction,
		RequestedStructuralFraction: inputs.StructuralFraction,
	}

	breakdown, err := physics.TotalMass(inputs.PayloadMass, massRatio, inputs.StructuralFraction)
	if err == nil {
		result.Masses = breakdown
		checkPostConditions(logger, inputs.PayloadMass, breakdown)
		return result, nil
	}

	var infeasible *physics.InfeasibleError
	if !errors.As(err, &infeasible) {
		return CalculationResult{}, fmt.Errorf("failed to compute total mass: %w", err)
	}

	logger.Warn(fmt.Sprintf("structural fraction of %v is too high for this configuration", inputs.StructuralFraction),
		zap.String("op", "sizing.Calculate"),
		zap.Float64("massRatio", massRatio),
		zap.Float64("denominator", infeasible.Denominator),
	)

	breakdown, capped, err := Adjust(inputs.PayloadMass, massRatio)
	adjusted := inputs.WithStructuralFraction(capped)
	if err != nil {
		logger.Error("structural fraction still infeasible after adjustment",
			zap.String("op", "sizing.Calculate"),
			zap.Float64("originalFraction", inputs.StructuralFraction),
			zap.Float64("adjustedFraction", adjusted.StructuralFraction),
		)
		return CalculationResult{}, &FatalError{
			Performance:      performance,
			OriginalFraction: inputs.StructuralFraction,
			AdjustedFraction: adjusted.StructuralFraction,
			Err:              err,
		}
	}

	logger.Info(fmt.Sprintf("adjusted structural fraction to the maximum possible value %.4f", adjusted.StructuralFraction),
		zap.String("op", "sizing.Calculate"),
	)

	result.Inputs = adjusted
	result.StructuralFraction = adjusted.StructuralFraction
	result.Adjusted = true
	result.Masses = breakdown
	checkPostConditions(logger, inputs.PayloadMass, breakdown)
	return result, nil
}

// checkPostConditions logs a negative fuel mass or an unbalanced breakdown.
// The values are reported as computed.
func checkPostConditions(logger *zap.Logger, payload float64, breakdown physics.MassBreakdown) {
	if err := errors.Join(physics.CheckFuelMass(breakdown), physics.CheckMassBalance(payload, breakdown)); err != nil {
		logger.Warn("mass post-condition violated",
			zap.String("op", "sizing.Calculate"),
			zap.Error(err),
		)
	}
}
