package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
)

// Options defines runtime parameters for the HTTP API.
type Options struct {
	Address      string
	MaxBodyBytes int64
	RateLimit    int
	RateWindow   time.Duration
	Version      string
}

// NewOptions normalizes the server section of the configuration, filling in
// defaults for anything left empty.
func NewOptions(conf config.ServerConfig, version string) (Options, error) {
	opts := Options{
		Address:    strings.TrimSpace(conf.Address),
		RateLimit:  conf.RateLimit,
		RateWindow: conf.RateWindow,
		Version:    strings.TrimSpace(version),
	}

	if opts.Address == "" {
		opts.Address = constants.DefaultServerAddress
	}

	size, err := ParseSize(conf.MaxBodySize)
	if err != nil {
		return Options{}, err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodySizeBytes
	}
	opts.MaxBodyBytes = size

	if opts.RateLimit < 0 {
		return Options{}, fmt.Errorf("rate limit must not be negative, got %d", opts.RateLimit)
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = constants.DefaultRateLimit
	}
	if opts.RateWindow <= 0 {
		window, err := time.ParseDuration(constants.DefaultRateWindow)
		if err != nil {
			return Options{}, fmt.Errorf("invalid default rate window: %w", err)
		}
		opts.RateWindow = window
	}

	if opts.Version == "" {
		opts.Version = "dev"
	}
	return opts, nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/n != multiplier) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
