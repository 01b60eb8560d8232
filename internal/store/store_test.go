package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
	"github.com/couchcryptid/weather-alert-service/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC))
	s, err := store.Open(":memory:", clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func testRecipient() domain.Recipient {
	return domain.Recipient{
		Name:         "Li Wei",
		Email:        "li.wei@example.com",
		Region:       "Beijing",
		Category:     domain.CategoryCustomer,
		WeatherTypes: []domain.WeatherType{domain.WeatherHighTemp, domain.WeatherRain},
	}
}

func TestRecipients_CRUD(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	added, err := s.AddRecipient(ctx, testRecipient())
	require.NoError(t, err)
	assert.NotZero(t, added.ID)

	list, err := s.ListRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "li.wei@example.com", list[0].Email)
	assert.Equal(t, []domain.WeatherType{domain.WeatherHighTemp, domain.WeatherRain}, list[0].WeatherTypes)

	added.Region = "Tianjin"
	added.Category = domain.CategoryEngineer
	updated, err := s.UpdateRecipient(ctx, added.ID, added)
	require.NoError(t, err)
	assert.Equal(t, "Tianjin", updated.Region)

	list, err = s.ListRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tianjin", list[0].Region)
	assert.Equal(t, domain.CategoryEngineer, list[0].Category)

	require.NoError(t, s.RemoveRecipient(ctx, added.ID))
	list, err = s.ListRecipients(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecipients_ValidationAndNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("bad email rejected", func(t *testing.T) {
		r := testRecipient()
		r.Email = "not-an-email"
		_, err := s.AddRecipient(ctx, r)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("bad category rejected", func(t *testing.T) {
		r := testRecipient()
		r.Category = "vendor"
		_, err := s.AddRecipient(ctx, r)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("update unknown id", func(t *testing.T) {
		_, err := s.UpdateRecipient(ctx, 999, testRecipient())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("remove unknown id", func(t *testing.T) {
		assert.ErrorIs(t, s.RemoveRecipient(ctx, 999), domain.ErrNotFound)
	})
}

func TestRegions_Distinct(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, region := range []string{"Beijing", "Shanghai", "Beijing"} {
		r := testRecipient()
		r.Region = region
		_, err := s.AddRecipient(ctx, r)
		require.NoError(t, err)
	}

	regions, err := s.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beijing", "Shanghai"}, regions)
}

func TestTemplates_FindPrefersSpecific(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	generic := domain.Template{Name: "generic", TargetRole: "all", Subject: "Weather alert", Body: "hi", Active: true}
	typed := domain.Template{Name: "heat", WeatherType: domain.WeatherHighTemp, TargetRole: "all", Subject: "Heat alert", Body: "hot", Active: true}
	engineerTyped := domain.Template{Name: "heat-eng", WeatherType: domain.WeatherHighTemp, TargetRole: "engineer", Subject: "Heat (ops)", Body: "check site", Active: true}

	for _, tpl := range []domain.Template{generic, typed, engineerTyped} {
		_, err := s.AddTemplate(ctx, tpl)
		require.NoError(t, err)
	}

	t.Run("exact type and role wins", func(t *testing.T) {
		got, err := s.FindTemplate(ctx, domain.WeatherHighTemp, domain.CategoryEngineer)
		require.NoError(t, err)
		assert.Equal(t, "heat-eng", got.Name)
	})

	t.Run("exact type beats generic", func(t *testing.T) {
		got, err := s.FindTemplate(ctx, domain.WeatherHighTemp, domain.CategoryCustomer)
		require.NoError(t, err)
		assert.Equal(t, "heat", got.Name)
	})

	t.Run("falls back to generic", func(t *testing.T) {
		got, err := s.FindTemplate(ctx, domain.WeatherFog, domain.CategoryCustomer)
		require.NoError(t, err)
		assert.Equal(t, "generic", got.Name)
	})

	t.Run("inactive templates skipped", func(t *testing.T) {
		list, err := s.ListTemplates(ctx)
		require.NoError(t, err)
		for _, tpl := range list {
			tpl.Active = false
			_, err := s.UpdateTemplate(ctx, tpl.ID, tpl)
			require.NoError(t, err)
		}
		_, err = s.FindTemplate(ctx, domain.WeatherHighTemp, domain.CategoryCustomer)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSettings_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("defaults before first save", func(t *testing.T) {
		got, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), got)
	})

	t.Run("save and reload", func(t *testing.T) {
		want := domain.Settings{AutoApproval: true, AdvanceDays: 3, IntervalPrediction: true, DedupWindowHours: 72}
		require.NoError(t, s.SaveSettings(ctx, want))

		got, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("second save overwrites", func(t *testing.T) {
		want := domain.Settings{AutoApproval: false, AdvanceDays: 1, IntervalPrediction: false, DedupWindowHours: 168}
		require.NoError(t, s.SaveSettings(ctx, want))

		got, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("invalid settings rejected", func(t *testing.T) {
		err := s.SaveSettings(ctx, domain.Settings{AdvanceDays: 30, DedupWindowHours: 168})
		assert.True(t, domain.IsValidation(err))
	})
}

func TestDeliveryLog(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	entry := store.LogEntry{
		NotificationID: "n-1",
		RecipientID:    1,
		RecipientEmail: "li.wei@example.com",
		Region:         "Beijing",
		WeatherType:    domain.WeatherHighTemp,
		Status:         store.StatusSent,
	}
	require.NoError(t, s.RecordDispatch(ctx, entry))

	clock.Advance(time.Hour)
	suppressed := entry
	suppressed.NotificationID = "n-2"
	suppressed.Status = store.StatusSuppressed
	require.NoError(t, s.RecordDispatch(ctx, suppressed))

	failed := entry
	failed.NotificationID = "n-3"
	failed.Status = store.StatusFailed
	failed.Detail = "smtp timeout"
	require.NoError(t, s.RecordDispatch(ctx, failed))

	t.Run("list newest first", func(t *testing.T) {
		got, err := s.ListLog(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "n-3", got[0].NotificationID)
		assert.Equal(t, "smtp timeout", got[0].Detail)
	})

	t.Run("limit applies", func(t *testing.T) {
		got, err := s.ListLog(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("recent notifications exclude failed", func(t *testing.T) {
		since := clock.Now().Add(-24 * time.Hour)
		got, err := s.RecentNotifications(ctx, since)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "n-1", got[0].ID)
		assert.Equal(t, "n-2", got[1].ID)
		assert.Equal(t, domain.StateApproved, got[0].State)
	})

	t.Run("window boundary honoured", func(t *testing.T) {
		// n-1 was recorded an hour before n-2; a window starting exactly at
		// n-2's timestamp keeps n-2 (inclusive) and drops n-1.
		got, err := s.RecentNotifications(ctx, clock.Now())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n-2", got[0].ID)

		got, err = s.RecentNotifications(ctx, clock.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
