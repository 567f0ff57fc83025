package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"tablebook/internal/shared/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCacheEmptyKey(t *testing.T) {
	cache, _ := newTestRedisCache(t)

	records, err := cache.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("List() = %#v, want an empty list", records)
	}
}

func TestRedisCacheAppendKeepsOrder(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 3; i++ {
		rec := NewRecord(sampleReservation(), time.UnixMilli(int64(1712345678000+i)))
		if i == 1 {
			rec.DeliveryStatus = StatusDispatchFailed
		}
		if err := cache.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		want = append(want, rec.ReservationNumber)
	}

	records, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != len(want) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(want))
	}
	for i, rec := range records {
		if rec.ReservationNumber != want[i] {
			t.Errorf("records[%d] = %s, want %s", i, rec.ReservationNumber, want[i])
		}
	}
	if records[1].DeliveryStatus != StatusDispatchFailed {
		t.Errorf("records[1] status = %q", records[1].DeliveryStatus)
	}

	// the whole list lives under the one named key, with no expiry
	if !mr.Exists(constants.CACHE_KEY_SUBMISSIONS) {
		t.Errorf("key %s not written", constants.CACHE_KEY_SUBMISSIONS)
	}
	if ttl := mr.TTL(constants.CACHE_KEY_SUBMISSIONS); ttl != 0 {
		t.Errorf("ttl = %v, want none", ttl)
	}
}

func TestRedisCacheRetriesConflictingAppend(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	other := NewRecord(sampleReservation(), time.UnixMilli(1712345670001))
	ours := NewRecord(sampleReservation(), time.UnixMilli(1712345670002))

	// another writer appends between our read and our commit, once
	conflicts := 0
	cache.afterRead = func() {
		if conflicts > 0 {
			return
		}
		conflicts++
		writer := &RedisCache{client: cache.client, key: cache.key}
		if err := writer.Append(ctx, other); err != nil {
			t.Errorf("concurrent Append() error = %v", err)
		}
	}

	if err := cache.Append(ctx, ours); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, _ := cache.List(ctx)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (a record was dropped)", len(records))
	}
	if records[0].ReservationNumber != other.ReservationNumber || records[1].ReservationNumber != ours.ReservationNumber {
		t.Errorf("records = %s, %s", records[0].ReservationNumber, records[1].ReservationNumber)
	}
}

func TestRedisCacheGivesUpAfterRepeatedConflicts(t *testing.T) {
	cache, mr := newTestRedisCache(t)

	attempts := 0
	cache.afterRead = func() {
		attempts++
		mr.Set(constants.CACHE_KEY_SUBMISSIONS, "[]")
	}

	err := cache.Append(context.Background(), NewRecord(sampleReservation(), time.Now()))
	if !errors.Is(err, redis.TxFailedErr) {
		t.Fatalf("Append() error = %v, want TxFailedErr", err)
	}
	if attempts != maxAppendRetries {
		t.Errorf("attempts = %d, want %d", attempts, maxAppendRetries)
	}
}

func TestRedisCacheRejectsCorruptList(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	mr.Set(constants.CACHE_KEY_SUBMISSIONS, "{not json")

	if _, err := cache.List(context.Background()); err == nil {
		t.Error("List() on a corrupt value should fail")
	}
	if err := cache.Append(context.Background(), NewRecord(sampleReservation(), time.Now())); err == nil {
		t.Error("Append() onto a corrupt value should fail")
	}
	if got, _ := mr.Get(constants.CACHE_KEY_SUBMISSIONS); got != "{not json" {
		t.Errorf("corrupt value overwritten: %q", got)
	}
}
