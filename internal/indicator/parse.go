package indicator

import (
	"strconv"
	"strings"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/model"
)

// ParseSpecs parses "TYPE[:P1[:P2:P3]],..." into specs.
// Example: "SMA:20,EMA,RSI:14,MACD:12:26:9,BB:20"
// A bare name takes its defaults; MACD takes fast, slow and signal.
func ParseSpecs(s string) ([]model.IndicatorSpec, error) {
	var specs []model.IndicatorSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.Split(part, ":")
		name := strings.ToUpper(strings.TrimSpace(tokens[0]))
		params := make([]int, 0, len(tokens)-1)
		for _, tok := range tokens[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil || n <= 0 {
				return nil, apperr.BadParameter("invalid indicator spec %q", part)
			}
			params = append(params, n)
		}

		spec := model.IndicatorSpec{Name: name}
		switch {
		case name == "MACD" && len(params) <= 3:
			if len(params) > 0 {
				spec.Fast = params[0]
			}
			if len(params) > 1 {
				spec.Slow = params[1]
			}
			if len(params) > 2 {
				spec.Signal = params[2]
			}
		case name != "MACD" && len(params) <= 1:
			if len(params) == 1 {
				spec.Length = params[0]
			}
		default:
			return nil, apperr.BadParameter("too many parameters in %q", part)
		}
		if _, err := Normalize(spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
