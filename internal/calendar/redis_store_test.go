package calendar

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDayScore(t *testing.T) {
	assert.Equal(t, float64(20250301), dayScore("2025-03-01"))
	assert.Less(t, dayScore("2024-12-31"), dayScore("2025-01-01"))
}

// TestRedisStore needs a scratch Redis, e.g. COOKPULSE_TEST_REDIS=localhost:6379.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("COOKPULSE_TEST_REDIS")
	if addr == "" {
		t.Skip("COOKPULSE_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	s := NewScheduler(NewRedisStore(client))

	evs, err := s.AddEvent(ctx, owner, NewEvent{Date: "2025-03-03", Name: "Stock", Repeat: "weekly"})
	require.NoError(t, err)

	var g errgroup.Group
	for _, name := range []string{"Lunch", "Dinner", "Snack"} {
		g.Go(func() error {
			_, err := s.AddEvent(ctx, owner, NewEvent{Date: "2025-03-03", Name: name})
			return err
		})
	}
	require.NoError(t, g.Wait())

	days, err := s.ListRange(ctx, owner, "2025-03-03", "2025-03-03")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Len(t, days[0].Events, 4)

	n, err := s.DeleteSeries(ctx, owner, evs[0].SeriesID)
	require.NoError(t, err)
	assert.Equal(t, len(evs), n)

	for _, e := range Flatten(days) {
		if e.SeriesID == "" {
			require.NoError(t, s.DeleteEvent(ctx, owner, e.Date, e.ID))
		}
	}
	days, err = s.ListRange(ctx, owner, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Empty(t, days)
}
