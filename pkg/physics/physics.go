// Package physics provides the closed-form equations used to size a
// single-stage rocket.
package physics

import (
	"fmt"
	"math"

	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/iwvelando/rocket-calculator/pkg/mathutil"
)

// Physical constants.
const (
	// GravitationalConstant in m^3 kg^-1 s^-2
	GravitationalConstant = 6.67430e-11

	// EarthMass in kg
	EarthMass = 5.972e24

	// EarthRadius is the mean (and equatorial, for the rotational boost) radius in m
	EarthRadius = 6371000.0

	// SecondsPerDay is the rotation period used for the angular velocity
	SecondsPerDay = 86400.0

	// EarthAngularVelocity in rad/s
	EarthAngularVelocity = 2 * math.Pi / SecondsPerDay

	// StandardGravity in m/s^2, used to convert specific impulse to exhaust velocity
	StandardGravity = 9.81
)

// MassBreakdown holds the decomposition of the initial rocket mass.
type MassBreakdown struct {
	TotalMass      float64 `json:"totalMassKg"`
	StructuralMass float64 `json:"structuralMassKg"`
	FuelMass       float64 `json:"fuelMassKg"`
}

// InfeasibleError signals that the requested structural fraction leaves no
// finite total mass for the given mass ratio.
type InfeasibleError struct {
	MassRatio          float64
	StructuralFraction float64
	Denominator        float64
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("structural fraction %v is infeasible for mass ratio %.4f (denominator %g)",
		e.StructuralFraction, e.MassRatio, e.Denominator)
}

// OrbitalVelocity returns the circular orbital velocity in m/s at the given
// altitude above the mean Earth radius.
func OrbitalVelocity(altitude float64) float64 {
	radius := EarthRadius + altitude
	return math.Sqrt(GravitationalConstant * EarthMass / radius)
}

// RotationalBoost returns the eastward surface velocity in m/s contributed by
// Earth's rotation at the given latitude. Any latitude is accepted and the
// result is not clamped, so latitudes past the poles yield negative values.
func RotationalBoost(latitudeDeg float64) float64 {
	latitudeRad := latitudeDeg * (math.Pi / 180)
	return EarthAngularVelocity * EarthRadius * math.Cos(latitudeRad)
}

// MassRatioAndExhaustVelocity applies the Tsiolkovsky rocket equation and
// returns the mass ratio together with the effective exhaust velocity.
func MassRatioAndExhaustVelocity(deltaV, specificImpulse float64) (float64, float64) {
	exhaustVelocity := specificImpulse * StandardGravity
	return math.Exp(deltaV / exhaustVelocity), exhaustVelocity
}

// TotalMass decomposes the initial mass for a payload, mass ratio and
// structural fraction. It returns an *InfeasibleError when the denominator
// 1 - massRatio*structuralFraction is not positive.
func TotalMass(payload, massRatio, structuralFraction float64) (MassBreakdown, error) {
	// The explicit conversion forces rounding of the product so the boundary
	// case is not changed by a fused multiply-add.
	denominator := 1 - float64(massRatio*structuralFraction)
	if denominator <= 0 {
		return MassBreakdown{}, &InfeasibleError{
			MassRatio:          massRatio,
			StructuralFraction: structuralFraction,
			Denominator:        denominator,
		}
	}

	total := massRatio * payload / denominator
	structure := structuralFraction * total
	return MassBreakdown{
		TotalMass:      total,
		StructuralMass: structure,
		FuelMass:       total - structure - payload,
	}, nil
}

// MaxStructuralFraction returns the structural fraction at which the total
// mass denominator reaches zero.
func MaxStructuralFraction(massRatio float64) float64 {
	return 1 / massRatio
}

// CheckFuelMass reports a negative fuel mass as an error. It never clamps.
func CheckFuelMass(breakdown MassBreakdown) error {
	if breakdown.FuelMass < 0 {
		return fmt.Errorf("negative fuel mass %g kg for total mass %g kg", breakdown.FuelMass, breakdown.TotalMass)
	}
	return nil
}

// CheckMassBalance reports a breakdown whose parts do not add up to the
// total mass within constants.MassTolerance.
func CheckMassBalance(payload float64, breakdown MassBreakdown) error {
	sum := breakdown.StructuralMass + breakdown.FuelMass + payload
	if !mathutil.WithinRelativeTolerance(breakdown.TotalMass, sum, constants.MassTolerance) {
		return fmt.Errorf("mass breakdown does not balance: total %g kg, parts sum to %g kg", breakdown.TotalMass, sum)
	}
	return nil
}
