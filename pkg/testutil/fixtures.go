// Package testutil provides shared input fixtures for tests.
package testutil

import "github.com/iwvelando/rocket-calculator/internal/sizing"

// ReferenceInputs returns the calculator's built-in defaults: 1 kg payload,
// Isp 350 s, 45° latitude, 200 km orbit, fraction 0.10 and 9.5 km/s.
func ReferenceInputs() sizing.RocketInputs {
	return sizing.RocketInputs{
		PayloadMass:        1,
		SpecificImpulse:    350,
		LaunchLatitude:     45,
		OrbitAltitude:      200000,
		StructuralFraction: 0.10,
		DeltaVBudget:       9500,
	}
}

// FeasibleInputs returns inputs whose requested structural fraction works
// without adjustment. The total mass is about 262,963.20 kg.
func FeasibleInputs() sizing.RocketInputs {
	return sizing.RocketInputs{
		PayloadMass:        1000,
		SpecificImpulse:    450,
		LaunchLatitude:     28.5,
		OrbitAltitude:      200000,
		StructuralFraction: 0.10,
		DeltaVBudget:       10000,
	}
}

// FatalInputs returns valid inputs that stay infeasible after adjustment.
// Their mass ratio is far from a rounding tie, so the outcome does not
// depend on the platform's exp.
func FatalInputs() sizing.RocketInputs {
	return sizing.RocketInputs{
		PayloadMass:        1,
		SpecificImpulse:    390,
		LaunchLatitude:     45,
		OrbitAltitude:      200000,
		StructuralFraction: 0.10,
		DeltaVBudget:       9650,
	}
}
