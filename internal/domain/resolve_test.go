package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FourQuadrants(t *testing.T) {
	match := Match{RuleID: 1, Region: "Beijing", Date: "2024-07-01", WeatherType: WeatherHighTemp}

	recipients := []Recipient{
		{ID: 1, Name: "region+sub", Region: "Beijing", WeatherTypes: []WeatherType{WeatherHighTemp}},
		{ID: 2, Name: "region only", Region: "Beijing", WeatherTypes: []WeatherType{WeatherRain}},
		{ID: 3, Name: "sub only", Region: "Shanghai", WeatherTypes: []WeatherType{WeatherHighTemp}},
		{ID: 4, Name: "neither", Region: "Shanghai", WeatherTypes: []WeatherType{WeatherRain}},
	}

	got := Resolve(match, recipients)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestResolve_NoSubscribersIsNotAnError(t *testing.T) {
	match := Match{Region: "Beijing", WeatherType: WeatherTyphoon}
	got := Resolve(match, []Recipient{
		{ID: 1, Region: "Beijing", WeatherTypes: []WeatherType{WeatherRain}},
	})
	assert.Empty(t, got)
}

func TestResolve_EmptySubscriptionSet(t *testing.T) {
	match := Match{Region: "Beijing", WeatherType: WeatherHighTemp}
	got := Resolve(match, []Recipient{{ID: 1, Region: "Beijing"}})
	assert.Empty(t, got)
}

func TestResolve_MultipleCategories(t *testing.T) {
	match := Match{Region: "Beijing", WeatherType: WeatherWind}
	recipients := []Recipient{
		{ID: 1, Category: CategoryCustomer, Region: "Beijing", WeatherTypes: []WeatherType{WeatherWind}},
		{ID: 2, Category: CategoryEngineer, Region: "Beijing", WeatherTypes: []WeatherType{WeatherWind, WeatherRain}},
	}

	got := Resolve(match, recipients)
	assert.Len(t, got, 2)
}
