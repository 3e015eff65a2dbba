// Package output provides utilities for formatting and displaying sizing results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// csvHeader lists the CSV columns in output order.
var csvHeader = []string{
	"payloadMassKg",
	"specificImpulseS",
	"launchLatitudeDeg",
	"orbitAltitudeM",
	"deltaVBudgetMps",
	"requestedStructuralFraction",
	"structuralFraction",
	"adjusted",
	"orbitalVelocityMps",
	"rotationalBoostMps",
	"massRatio",
	"effectiveExhaustVelocityMps",
	"totalMassKg",
	"structuralMassKg",
	"fuelMassKg",
}

// Write renders the result in the named format.
func Write(w io.Writer, format string, result sizing.CalculationResult) error {
	switch format {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, result)
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	}
	return fmt.Errorf("unsupported output format %s", format)
}

// PrettyFormat outputs a human-readable report of a successful calculation.
func PrettyFormat(w io.Writer, result sizing.CalculationResult) error {
	p := message.NewPrinter(language.English)
	in := result.Inputs
	m := result.Masses

	writeCalculations(p, w, in, result.Performance)
	if result.Adjusted {
		writeAdjustment(p, w, result.RequestedStructuralFraction, result.StructuralFraction)
	}

	_, _ = p.Fprintf(w, "5. Total Initial Mass (m0): %.2f kg\n", m.TotalMass)
	_, _ = p.Fprintf(w, "   Structural Mass (m_structure): %.2f kg\n", m.StructuralMass)
	_, _ = p.Fprintf(w, "   Fuel Mass (m_fuel): %.2f kg\n", m.FuelMass)

	_, _ = p.Fprintf(w, "\n=== Summary ===\n")
	_, _ = p.Fprintf(w, "Payload Mass: %.2f kg\n", in.PayloadMass)
	_, _ = p.Fprintf(w, "Structural Mass: %.2f kg\n", m.StructuralMass)
	_, _ = p.Fprintf(w, "Fuel Mass: %.2f kg\n", m.FuelMass)
	_, _ = p.Fprintf(w, "Total Initial Mass: %.2f kg\n", m.TotalMass)
	_, _ = p.Fprintf(w, "Delta-v Budget: %.2f m/s\n", result.SelectedDeltaV)
	_, _ = p.Fprintf(w, "Mass Ratio: %.2f\n", result.MassRatio)
	_, _ = p.Fprintf(w, "Effective Exhaust Velocity (ve): %.2f m/s\n", result.EffectiveExhaustVelocity)
	_, _ = p.Fprintf(w, "Orbital Velocity: %.2f m/s\n", result.OrbitalVelocity)
	_, _ = p.Fprintf(w, "Earth's Rotational Boost: %.2f m/s\n", result.RotationalBoost)

	_, _ = p.Fprintf(w, "\n=== Notes ===\n")
	_, _ = p.Fprintf(w, "- Original Structural Fraction entered: %s.\n", formatFraction(result.RequestedStructuralFraction))
	_, err := p.Fprintf(w, "- Adjusted Structural Fraction (if needed): %.4f\n", result.StructuralFraction)
	if err != nil {
		return err
	}
	return writeStandardNotes(w)
}

// FatalFormat outputs the report of a calculation that failed because the
// structural fraction stayed infeasible after adjustment.
func FatalFormat(w io.Writer, inputs sizing.RocketInputs, fatal *sizing.FatalError) error {
	p := message.NewPrinter(language.English)

	writeCalculations(p, w, inputs, fatal.Performance)
	writeAdjustment(p, w, fatal.OriginalFraction, fatal.AdjustedFraction)
	_, err := fmt.Fprintf(w, "\nError: Even after adjustment, the structural fraction is too high for the given configuration.\n")
	return err
}

// CsvFormat outputs a header row and one data row in comma-separated value format.
func CsvFormat(w io.Writer, result sizing.CalculationResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	if err := writer.Write(csvRecord(result)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// CsvString returns the CSV rendering of a result.
func CsvString(result sizing.CalculationResult) string {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, result); err != nil {
		return ""
	}
	return buf.String()
}

// JSONFormat outputs the result as indented JSON.
func JSONFormat(w io.Writer, result sizing.CalculationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeCalculations(p *message.Printer, w io.Writer, in sizing.RocketInputs, perf sizing.Performance) {
	_, _ = p.Fprintf(w, "=== Calculations ===\n\n")
	_, _ = p.Fprintf(w, "1. Orbital Velocity: %.2f m/s\n", perf.OrbitalVelocity)
	_, _ = p.Fprintf(w, "2. Earth's Rotational Boost at %s° Latitude: %.2f m/s\n", strconv.FormatFloat(in.LaunchLatitude, 'f', -1, 64), perf.RotationalBoost)
	_, _ = p.Fprintf(w, "3. Selected Delta-v Budget: %.2f m/s\n", perf.SelectedDeltaV)
	_, _ = p.Fprintf(w, "4. Tsiolkovsky Mass Ratio: %.2f\n", perf.MassRatio)
	_, _ = p.Fprintf(w, "   Effective Exhaust Velocity (ve): %.2f m/s\n", perf.EffectiveExhaustVelocity)
}

func writeAdjustment(p *message.Printer, w io.Writer, original, adjusted float64) {
	_, _ = p.Fprintf(w, "\nWarning: Structural fraction of %s is too high for this configuration.\n", formatFraction(original))
	_, _ = p.Fprintf(w, "Automatically adjusting to the maximum possible structural fraction: %.4f\n", adjusted)
}

func writeStandardNotes(w io.Writer) error {
	_, err := fmt.Fprintf(w, "- Ensure that the structural mass fraction is realistic (typically between %.0f%% to %.0f%%).\n"+
		"- This calculator assumes a single-stage rocket. Multi-stage designs can optimize the mass ratio further.\n",
		constants.TypicalMinStructuralFraction*100, constants.TypicalMaxStructuralFraction*100)
	return err
}

func csvRecord(result sizing.CalculationResult) []string {
	in := result.Inputs
	return []string{
		formatFixed(in.PayloadMass, 2),
		formatFixed(in.SpecificImpulse, 2),
		formatFixed(in.LaunchLatitude, 4),
		formatFixed(in.OrbitAltitude, 2),
		formatFixed(result.SelectedDeltaV, 2),
		formatFixed(result.RequestedStructuralFraction, 4),
		formatFixed(result.StructuralFraction, 4),
		strconv.FormatBool(result.Adjusted),
		formatFixed(result.OrbitalVelocity, 2),
		formatFixed(result.RotationalBoost, 2),
		formatFixed(result.MassRatio, 4),
		formatFixed(result.EffectiveExhaustVelocity, 2),
		formatFixed(result.Masses.TotalMass, 2),
		formatFixed(result.Masses.StructuralMass, 2),
		formatFixed(result.Masses.FuelMass, 2),
	}
}

func formatFixed(value float64, decimals int) string {
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

// formatFraction prints a user-entered fraction the shortest way that
// round-trips, e.g. 0.1 rather than 0.1000.
func formatFraction(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
