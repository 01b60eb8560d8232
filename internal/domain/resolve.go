package domain

// Resolve expands a match into the recipients who should be notified: those
// in the match's region whose subscription set contains the match's weather
// type. An empty result is valid — it just means nobody subscribes.
func Resolve(m Match, recipients []Recipient) []Recipient {
	var out []Recipient
	for _, r := range recipients {
		if r.Region == m.Region && r.SubscribedTo(m.WeatherType) {
			out = append(out, r)
		}
	}
	return out
}
