// Package prompt collects rocket inputs interactively, one line per field.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/iwvelando/rocket-calculator/pkg/validation"
	"go.uber.org/zap"
)

// InvalidInputMessage is printed when a line cannot be parsed as a number.
const InvalidInputMessage = "Invalid input. Using default value."

// Prompter reads answers from in and writes prompts to out.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	logger  *zap.Logger
	eof     bool
}

func New(in io.Reader, out io.Writer, logger *zap.Logger) *Prompter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prompter{
		scanner: bufio.NewScanner(in),
		out:     out,
		logger:  logger,
	}
}

// CollectInputs asks for every field in turn. Empty answers keep the
// default. Once the input is exhausted the remaining fields keep their
// defaults without being asked.
func (p *Prompter) CollectInputs(defaults sizing.RocketInputs) (sizing.RocketInputs, error) {
	inputs := defaults

	if _, err := fmt.Fprint(p.out, "=== Rocket Design Calculator ===\n\n"+
		"Enter the following parameters or press Enter to use default values.\n\n"); err != nil {
		return sizing.RocketInputs{}, fmt.Errorf("failed to write prompt: %w", err)
	}

	fields := []struct {
		label  string
		target *float64
	}{
		{"Payload mass (kg)", &inputs.PayloadMass},
		{"Specific Impulse (s)", &inputs.SpecificImpulse},
		{"Launch Latitude (degrees)", &inputs.LaunchLatitude},
		{"Orbit Altitude (meters)", &inputs.OrbitAltitude},
		{"Structural Mass Fraction (0-1)", &inputs.StructuralFraction},
	}
	for _, field := range fields {
		value, err := p.Float(field.label, *field.target)
		if err != nil {
			return sizing.RocketInputs{}, err
		}
		*field.target = value
	}

	deltaV, err := p.DeltaV(defaults.DeltaVBudget)
	if err != nil {
		return sizing.RocketInputs{}, err
	}
	inputs.DeltaVBudget = deltaV

	if _, err := fmt.Fprintln(p.out); err != nil {
		return sizing.RocketInputs{}, fmt.Errorf("failed to write prompt: %w", err)
	}
	return inputs, nil
}

// Float asks for one number. Empty or unparsable answers return the default.
func (p *Prompter) Float(label string, def float64) (float64, error) {
	if p.eof {
		return def, nil
	}

	if _, err := fmt.Fprintf(p.out, "%s [%s]: ", label, formatDefault(def)); err != nil {
		return 0, fmt.Errorf("failed to write prompt: %w", err)
	}

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
		p.eof = true
		_, _ = fmt.Fprintln(p.out)
		return def, nil
	}

	line := strings.TrimSpace(p.scanner.Text())
	if line == "" {
		return def, nil
	}

	value, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		p.logger.Debug("unparsable answer, using default",
			zap.String("op", "prompt.Float"),
			zap.String("field", label),
			zap.String("answer", line),
		)
		if _, err := fmt.Fprintln(p.out, InvalidInputMessage); err != nil {
			return 0, fmt.Errorf("failed to write prompt: %w", err)
		}
		return def, nil
	}
	return value, nil
}

// DeltaV asks for the delta-v budget in km/s until the answer lies in the
// accepted window and returns it in m/s.
func (p *Prompter) DeltaV(defMetersPerSecond float64) (float64, error) {
	label := fmt.Sprintf("Delta-v Budget (km/s) between %.1f and %.1f",
		constants.MinDeltaVBudget/constants.MetersPerKilometer,
		constants.MaxDeltaVBudget/constants.MetersPerKilometer)
	def := defMetersPerSecond / constants.MetersPerKilometer

	for {
		km, err := p.Float(label, def)
		if err != nil {
			return 0, err
		}

		rangeErr := validation.ValidateDeltaVKilometers(km)
		if rangeErr == nil {
			return km * constants.MetersPerKilometer, nil
		}
		if p.eof {
			// Nothing left to read, so the default stands even if it is
			// outside the window; validation reports it later.
			return defMetersPerSecond, nil
		}
		if _, err := fmt.Fprintf(p.out, "%s.\n", capitalize(rangeErr.Error())); err != nil {
			return 0, fmt.Errorf("failed to write prompt: %w", err)
		}
	}
}

func formatDefault(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
