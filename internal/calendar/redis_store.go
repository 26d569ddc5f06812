package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const defaultWatchRetries = 5

// RedisStore keeps one JSON list per (owner, date) under calendar:{owner}:day:{date},
// a sorted set of non-empty dates and one set of dates per series.
type RedisStore struct {
	client  redis.UniversalClient
	retries int
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, retries: defaultWatchRetries}
}

func dayKey(owner, date string) string { return "calendar:" + owner + ":day:" + date }
func datesKey(owner string) string { return "calendar:" + owner + ":dates" }
func seriesKey(owner, seriesID string) string { return "calendar:" + owner + ":series:" + seriesID }

// dayScore orders ISO dates numerically: 2025-03-01 scores 20250301.
func dayScore(date string) float64 {
	n, _ := strconv.Atoi(strings.ReplaceAll(date, "-", ""))
	return float64(n)
}

func decodeBucket(v interface{}) ([]Event, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, nil
	}
	var out []Event
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update runs fn inside a WATCH on every touched bucket and commits with MULTI/EXEC.
// A concurrent write to any of them reruns fn; persistent contention is transient.
func (s *RedisStore) Update(ctx context.Context, owner string, dates []string, fn func(map[string][]Event) error) error {
	dates = slices.Compact(slices.Sorted(slices.Values(dates)))
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = dayKey(owner, d)
	}

	txf := func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		buckets := make(map[string][]Event, len(dates))
		before := make(map[string]map[string]struct{}, len(dates))
		for i, v := range vals {
			b, err := decodeBucket(v)
			if err != nil {
				return err
			}
			if len(b) > 0 {
				buckets[dates[i]] = b
			}
			before[dates[i]] = seriesIn(b)
		}

		if err := fn(buckets); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, d := range dates {
				b := buckets[d]
				after := seriesIn(b)
				if len(b) == 0 {
					pipe.Del(ctx, keys[i])
					pipe.ZRem(ctx, datesKey(owner), d)
				} else {
					raw, err := json.Marshal(b)
					if err != nil {
						return err
					}
					pipe.Set(ctx, keys[i], raw, 0)
					pipe.ZAdd(ctx, datesKey(owner), redis.Z{Score: dayScore(d), Member: d})
				}
				for sid := range before[d] {
					if _, ok := after[sid]; !ok {
						pipe.SRem(ctx, seriesKey(owner, sid), d)
					}
				}
				for sid := range after {
					pipe.SAdd(ctx, seriesKey(owner, sid), d)
				}
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var appErr *utils.CustomError
		if utils.As(err, &appErr) {
			return appErr
		}
		return utils.Transient("try_again", err.Error())
	}
	return utils.Transient("try_again", "calendar bucket contended")
}

func (s *RedisStore) Range(ctx context.Context, owner, from, to string) (map[string][]Event, error) {
	dates, err := s.client.ZRangeByScore(ctx, datesKey(owner), &redis.ZRangeBy{
		Min: strconv.FormatFloat(dayScore(from), 'f', 0, 64),
		Max: strconv.FormatFloat(dayScore(to), 'f', 0, 64),
	}).Result()
	if err != nil {
		return nil, utils.Transient("try_again", err.Error())
	}
	out := make(map[string][]Event, len(dates))
	if len(dates) == 0 {
		return out, nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = dayKey(owner, d)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, utils.Transient("try_again", err.Error())
	}
	for i, v := range vals {
		b, err := decodeBucket(v)
		if err != nil {
			return nil, utils.ErrInternalServerError.WithCause(err)
		}
		if len(b) > 0 {
			out[dates[i]] = b
		}
	}
	return out, nil
}

func (s *RedisStore) SeriesDates(ctx context.Context, owner, seriesID string) ([]string, error) {
	dates, err := s.client.SMembers(ctx, seriesKey(owner, seriesID)).Result()
	if err != nil {
		return nil, utils.Transient("try_again", err.Error())
	}
	slices.Sort(dates)
	return dates, nil
}
