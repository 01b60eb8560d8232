package domain

import "strings"

// Evaluate runs every active rule against every forecast record and returns
// the matches. Pure function: no clock, no side effects. Output order is
// deterministic — forecast order first, rule order second — and a rule
// contributes at most one match per (region, date) even when duplicate
// records or multiple qualifying readings are present.
func Evaluate(rules []AlertRule, forecasts []ForecastRecord) []Match {
	type key struct {
		ruleID int64
		region string
		date   string
	}

	var matches []Match
	seen := make(map[key]bool)

	for _, f := range forecasts {
		for _, r := range rules {
			if !r.Active || !ruleFires(r, f) {
				continue
			}
			k := key{r.ID, f.Region, f.Date}
			if seen[k] {
				continue
			}
			seen[k] = true
			matches = append(matches, Match{
				RuleID:      r.ID,
				Region:      f.Region,
				Date:        f.Date,
				WeatherType: r.WeatherType,
				Summary:     r.ConditionText(),
			})
		}
	}

	return matches
}

// ruleFires reports whether a single rule fires on a single forecast record.
func ruleFires(r AlertRule, f ForecastRecord) bool {
	switch r.Kind {
	case KindParameter:
		v, ok := numericReading(r.WeatherType, f)
		if !ok {
			return false
		}
		switch r.Operator {
		case OpGTE:
			return v >= r.Threshold
		case OpLTE:
			return v <= r.Threshold
		}
		return false
	case KindText:
		if r.Keyword == "" {
			return false
		}
		return strings.Contains(f.TextDay, r.Keyword) || strings.Contains(f.TextNight, r.Keyword)
	}
	return false
}

// CollapseToEarliest keeps, for each (rule, region), only the match with the
// earliest date. Used in interval-prediction mode, where the whole lead-time
// range is evaluated and the date closest to today wins. Relies on the
// YYYY-MM-DD date form ordering lexicographically; output preserves the
// first-appearance order of each (rule, region) group.
func CollapseToEarliest(matches []Match) []Match {
	type key struct {
		ruleID int64
		region string
	}

	best := make(map[key]int)
	var order []key

	for i, m := range matches {
		k := key{m.RuleID, m.Region}
		j, ok := best[k]
		if !ok {
			best[k] = i
			order = append(order, k)
			continue
		}
		if m.Date < matches[j].Date {
			best[k] = i
		}
	}

	out := make([]Match, 0, len(order))
	for _, k := range order {
		out = append(out, matches[best[k]])
	}
	return out
}
