package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRegion = "Beijing"
	testDate   = "2024-07-01"
)

func highTempRule(threshold float64) AlertRule {
	return AlertRule{
		ID:          1,
		WeatherType: WeatherHighTemp,
		Kind:        KindParameter,
		Operator:    OpGTE,
		Threshold:   threshold,
		Unit:        "°C",
		Active:      true,
	}
}

func forecast(region, date string) ForecastRecord {
	return ForecastRecord{
		Region:     region,
		Date:       date,
		TempMax:    Reading(30),
		TempMin:    Reading(20),
		WindSpeed:  Reading(10),
		Precip:     Reading(0),
		Visibility: Reading(20),
		TextDay:    "sunny",
		TextNight:  "clear",
	}
}

func TestEvaluate_ParameterThresholds(t *testing.T) {
	tests := []struct {
		name      string
		rule      AlertRule
		forecast  ForecastRecord
		wantMatch bool
	}{
		{
			name:      "high temp above threshold",
			rule:      highTempRule(35),
			forecast:  func() ForecastRecord { f := forecast(testRegion, testDate); f.TempMax = Reading(36); return f }(),
			wantMatch: true,
		},
		{
			name:      "high temp at inclusive boundary",
			rule:      highTempRule(35),
			forecast:  func() ForecastRecord { f := forecast(testRegion, testDate); f.TempMax = Reading(35); return f }(),
			wantMatch: true,
		},
		{
			name:      "high temp just below threshold",
			rule:      highTempRule(35),
			forecast:  func() ForecastRecord { f := forecast(testRegion, testDate); f.TempMax = Reading(34.999); return f }(),
			wantMatch: false,
		},
		{
			name: "low temp fires on lte",
			rule: AlertRule{ID: 2, WeatherType: WeatherLowTemp, Kind: KindParameter, Operator: OpLTE, Threshold: -5, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.TempMin = Reading(-5)
				return f
			}(),
			wantMatch: true,
		},
		{
			name: "low temp above lte threshold",
			rule: AlertRule{ID: 2, WeatherType: WeatherLowTemp, Kind: KindParameter, Operator: OpLTE, Threshold: -5, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.TempMin = Reading(-4.9)
				return f
			}(),
			wantMatch: false,
		},
		{
			name: "wind speed gte",
			rule: AlertRule{ID: 3, WeatherType: WeatherWind, Kind: KindParameter, Operator: OpGTE, Threshold: 60, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.WindSpeed = Reading(65)
				return f
			}(),
			wantMatch: true,
		},
		{
			name: "fog fires on low visibility",
			rule: AlertRule{ID: 4, WeatherType: WeatherFog, Kind: KindParameter, Operator: OpLTE, Threshold: 1, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.Visibility = Reading(0.5)
				return f
			}(),
			wantMatch: true,
		},
		{
			name: "rain fires on precipitation",
			rule: AlertRule{ID: 5, WeatherType: WeatherRain, Kind: KindParameter, Operator: OpGTE, Threshold: 50, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.Precip = Reading(80)
				return f
			}(),
			wantMatch: true,
		},
		{
			name: "fog rule ignores missing visibility",
			rule: AlertRule{ID: 4, WeatherType: WeatherFog, Kind: KindParameter, Operator: OpLTE, Threshold: 1, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.Visibility = nil
				return f
			}(),
			wantMatch: false,
		},
		{
			name: "low temp rule ignores missing reading",
			rule: AlertRule{ID: 2, WeatherType: WeatherLowTemp, Kind: KindParameter, Operator: OpLTE, Threshold: 5, Active: true},
			forecast: func() ForecastRecord {
				f := forecast(testRegion, testDate)
				f.TempMin = nil
				return f
			}(),
			wantMatch: false,
		},
		{
			name:      "inactive rule never fires",
			rule:      func() AlertRule { r := highTempRule(35); r.Active = false; return r }(),
			forecast:  func() ForecastRecord { f := forecast(testRegion, testDate); f.TempMax = Reading(40); return f }(),
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Evaluate([]AlertRule{tt.rule}, []ForecastRecord{tt.forecast})
			if !tt.wantMatch {
				assert.Empty(t, matches)
				return
			}
			require.Len(t, matches, 1)
			assert.Equal(t, tt.rule.ID, matches[0].RuleID)
			assert.Equal(t, tt.forecast.Region, matches[0].Region)
			assert.Equal(t, tt.forecast.Date, matches[0].Date)
			assert.Equal(t, tt.rule.WeatherType, matches[0].WeatherType)
			assert.Equal(t, tt.rule.ConditionText(), matches[0].Summary)
		})
	}
}

func TestEvaluate_TextRules(t *testing.T) {
	rule := AlertRule{ID: 7, WeatherType: WeatherThunder, Kind: KindText, Keyword: "thunder", Active: true}

	t.Run("keyword in day text", func(t *testing.T) {
		f := forecast(testRegion, testDate)
		f.TextDay = "thunderstorms in the afternoon"
		matches := Evaluate([]AlertRule{rule}, []ForecastRecord{f})
		require.Len(t, matches, 1)
		assert.Equal(t, WeatherThunder, matches[0].WeatherType)
	})

	t.Run("keyword in night text", func(t *testing.T) {
		f := forecast(testRegion, testDate)
		f.TextNight = "scattered thunder"
		matches := Evaluate([]AlertRule{rule}, []ForecastRecord{f})
		assert.Len(t, matches, 1)
	})

	t.Run("keyword absent", func(t *testing.T) {
		matches := Evaluate([]AlertRule{rule}, []ForecastRecord{forecast(testRegion, testDate)})
		assert.Empty(t, matches)
	})

	t.Run("containment is case-sensitive", func(t *testing.T) {
		f := forecast(testRegion, testDate)
		f.TextDay = "Thunderstorms"
		matches := Evaluate([]AlertRule{rule}, []ForecastRecord{f})
		assert.Empty(t, matches)
	})
}

func TestEvaluate_AtMostOnePerRegionDate(t *testing.T) {
	// Both day text and night text qualify, and the record appears twice in
	// the input; still only one match for the rule on that (region, date).
	rule := AlertRule{ID: 9, WeatherType: WeatherRain, Kind: KindText, Keyword: "rain", Active: true}
	f := forecast(testRegion, testDate)
	f.TextDay = "heavy rain"
	f.TextNight = "light rain"

	matches := Evaluate([]AlertRule{rule}, []ForecastRecord{f, f})
	assert.Len(t, matches, 1)
}

func TestEvaluate_DeterministicOrder(t *testing.T) {
	ruleA := highTempRule(20)
	ruleB := AlertRule{ID: 2, WeatherType: WeatherWind, Kind: KindParameter, Operator: OpGTE, Threshold: 5, Active: true}
	f1 := forecast("Shanghai", "2024-07-01")
	f2 := forecast("Shanghai", "2024-07-02")

	want := []Match{
		{RuleID: 1, Region: "Shanghai", Date: "2024-07-01", WeatherType: WeatherHighTemp, Summary: ruleA.ConditionText()},
		{RuleID: 2, Region: "Shanghai", Date: "2024-07-01", WeatherType: WeatherWind, Summary: ruleB.ConditionText()},
		{RuleID: 1, Region: "Shanghai", Date: "2024-07-02", WeatherType: WeatherHighTemp, Summary: ruleA.ConditionText()},
		{RuleID: 2, Region: "Shanghai", Date: "2024-07-02", WeatherType: WeatherWind, Summary: ruleB.ConditionText()},
	}

	got := Evaluate([]AlertRule{ruleA, ruleB}, []ForecastRecord{f1, f2})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate order mismatch (-want +got):\n%s", diff)
	}
}

func TestCollapseToEarliest(t *testing.T) {
	matches := []Match{
		{RuleID: 1, Region: "Beijing", Date: "2024-07-03", WeatherType: WeatherHighTemp},
		{RuleID: 1, Region: "Beijing", Date: "2024-07-01", WeatherType: WeatherHighTemp},
		{RuleID: 1, Region: "Beijing", Date: "2024-07-02", WeatherType: WeatherHighTemp},
		{RuleID: 2, Region: "Beijing", Date: "2024-07-02", WeatherType: WeatherWind},
		{RuleID: 1, Region: "Tianjin", Date: "2024-07-04", WeatherType: WeatherHighTemp},
	}

	got := CollapseToEarliest(matches)

	want := []Match{
		{RuleID: 1, Region: "Beijing", Date: "2024-07-01", WeatherType: WeatherHighTemp},
		{RuleID: 2, Region: "Beijing", Date: "2024-07-02", WeatherType: WeatherWind},
		{RuleID: 1, Region: "Tianjin", Date: "2024-07-04", WeatherType: WeatherHighTemp},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollapseToEarliest mismatch (-want +got):\n%s", diff)
	}
}

func TestCollapseToEarliest_Empty(t *testing.T) {
	assert.Empty(t, CollapseToEarliest(nil))
}
