// Package domain models weather-alert rules, forecast evaluation, and the
// notification lifecycle.
//
// # Rule Model
//
// An alert rule is scoped to a weather phenomenon (high-temp, wind, fog, …)
// and comes in two kinds:
//
//	parameter: a structured threshold comparison against one numeric forecast
//	           reading. The weather type decides which reading is inspected:
//
//	  high-temp                 → TempMax    (fires on ≥)
//	  low-temp/extreme-low-temp → TempMin    (fires on ≤)
//	  wind                      → WindSpeed  (fires on ≥)
//	  fog                       → Visibility (fires on ≤)
//	  rain                      → Precip     (fires on ≥)
//
//	text:      a keyword searched for in the day and night narrative fields
//	           of the forecast. Containment is case-sensitive, matching the
//	           upstream provider's narrative strings.
//
// Thunder, typhoon, and other have no numeric reading, so only text rules are
// valid for them. Comparisons are inclusive at the boundary: a high-temp rule
// with threshold 35 fires on a forecast of exactly 35.
//
// The rule stores the structured {operator, threshold, unit} fields directly;
// the human-readable condition string is generated on demand by
// [AlertRule.ConditionText], never parsed back out of prose.
//
// # Evaluation
//
// [Evaluate] is a pure function of its inputs. A rule fires at most once per
// (region, date) even when several readings would qualify, and output order
// is deterministic: forecast order first, rule order second.
//
// # Duplicate Detection
//
// A candidate notification is a repeat when a non-rejected notification for
// the same (recipient, region, weather type) already exists with CreatedAt on
// or after the window start. The window start is policy supplied by the
// caller (default: seven days before now); the detector itself is stateless.
//
// # Notification Lifecycle
//
//	pending --approve--> approved   (terminal)
//	pending --reject---> rejected   (terminal)
//
// Transitions out of a terminal state fail with [ErrInvalidState]. Duplicate
// candidates are still enqueued, carrying DedupeTag=true, so reviewers can
// see suppressed repeats; the dispatcher declines to re-send them.
package domain
