package domain

import (
	"fmt"
	"math"
	"strings"
)

// numericReading returns the forecast value a parameter rule of the given
// weather type inspects. The second return is false for weather types that
// have no numeric reading (thunder, typhoon, other) and for readings the
// provider did not supply, so absent readings never satisfy a rule.
func numericReading(w WeatherType, f ForecastRecord) (float64, bool) {
	var v *float64
	switch w {
	case WeatherHighTemp:
		v = f.TempMax
	case WeatherLowTemp, WeatherExtremeLowTemp:
		v = f.TempMin
	case WeatherWind:
		v = f.WindSpeed
	case WeatherFog:
		v = f.Visibility
	case WeatherRain:
		v = f.Precip
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// hasNumericReading reports whether parameter rules are defined for the
// weather type.
func hasNumericReading(w WeatherType) bool {
	switch w {
	case WeatherHighTemp, WeatherLowTemp, WeatherExtremeLowTemp, WeatherWind, WeatherFog, WeatherRain:
		return true
	}
	return false
}

// readingName is the display name of the reading a weather type inspects.
func readingName(w WeatherType) string {
	switch w {
	case WeatherHighTemp:
		return "max temperature"
	case WeatherLowTemp, WeatherExtremeLowTemp:
		return "min temperature"
	case WeatherWind:
		return "wind speed"
	case WeatherFog:
		return "visibility"
	case WeatherRain:
		return "precipitation"
	}
	return ""
}

// Validate checks that exactly the condition representation matching the
// rule's kind is well-formed. Returns a ValidationError on the first problem.
func (r AlertRule) Validate() error {
	if !r.WeatherType.Valid() {
		return ValidationError{Field: "weather_type", Reason: fmt.Sprintf("unknown weather type %q", string(r.WeatherType))}
	}

	switch r.Kind {
	case KindParameter:
		if r.Operator != OpGTE && r.Operator != OpLTE {
			return ValidationError{Field: "operator", Reason: fmt.Sprintf("must be %q or %q", OpGTE, OpLTE)}
		}
		if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
			return ValidationError{Field: "threshold", Reason: "must be a finite number"}
		}
		if !hasNumericReading(r.WeatherType) {
			return ValidationError{Field: "kind", Reason: fmt.Sprintf("weather type %q has no numeric reading; use a text rule", string(r.WeatherType))}
		}
		if r.Keyword != "" {
			return ValidationError{Field: "keyword", Reason: "must be empty for parameter rules"}
		}
	case KindText:
		if strings.TrimSpace(r.Keyword) == "" {
			return ValidationError{Field: "keyword", Reason: "must not be empty for text rules"}
		}
	default:
		return ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown rule kind %q", string(r.Kind))}
	}

	return nil
}

// ConditionText renders the rule's condition for humans, e.g.
// "max temperature >= 35 °C" or `weather text contains "sandstorm"`.
// The structured fields are authoritative; this string is display-only.
func (r AlertRule) ConditionText() string {
	if r.Kind == KindText {
		return fmt.Sprintf("weather text contains %q", r.Keyword)
	}
	s := fmt.Sprintf("%s %s %g", readingName(r.WeatherType), r.Operator, r.Threshold)
	if r.Unit != "" {
		s += " " + r.Unit
	}
	return s
}
