package submission

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tablebook/pkg/logger"
)

type fakeDispatcher struct {
	err   error
	calls int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, rec Record) error {
	f.calls++
	return f.err
}

type failingCache struct{}

func (failingCache) Append(ctx context.Context, rec Record) error { return errors.New("disk full") }
func (failingCache) List(ctx context.Context) ([]Record, error) { return nil, errors.New("disk full") }

type recordingNotifier struct {
	got []Record
	err error
}

func (n *recordingNotifier) ReservationSubmitted(ctx context.Context, rec Record) error {
	n.got = append(n.got, rec)
	return n.err
}

func newTestGateway(d Dispatcher, c LocalCache, n Notifier) *Gateway {
	return NewGateway(d, c, n).WithLogger(logger.Discard())
}

func TestGatewaySubmitSuccess(t *testing.T) {
	cache := NewMemoryCache()
	notifier := &recordingNotifier{}
	gw := newTestGateway(&fakeDispatcher{}, cache, notifier)

	rec := NewRecord(sampleReservation(), time.UnixMilli(1712345678901))
	got, err := gw.Submit(context.Background(), rec)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.DeliveryStatus != StatusUnconfirmed {
		t.Errorf("DeliveryStatus = %q, want unconfirmed", got.DeliveryStatus)
	}

	cached, _ := cache.List(context.Background())
	if len(cached) != 1 || cached[0].ReservationNumber != "R45678901" {
		t.Errorf("cache = %+v", cached)
	}
	if len(notifier.got) != 1 {
		t.Errorf("notifier called %d times, want 1", len(notifier.got))
	}
}

func TestGatewayDispatchFailureStillCaches(t *testing.T) {
	cache := NewMemoryCache()
	notifier := &recordingNotifier{}
	gw := newTestGateway(&fakeDispatcher{err: errors.New("dial tcp: connection refused")}, cache, notifier)

	rec := NewRecord(sampleReservation(), time.Now())
	got, err := gw.Submit(context.Background(), rec)

	if !errors.Is(err, ErrSubmissionDispatch) {
		t.Fatalf("Submit() error = %v, want ErrSubmissionDispatch", err)
	}
	if got.DeliveryStatus != StatusDispatchFailed {
		t.Errorf("DeliveryStatus = %q", got.DeliveryStatus)
	}

	cached, _ := cache.List(context.Background())
	if len(cached) != 1 {
		t.Fatalf("record not cached after dispatch failure: %+v", cached)
	}
	if cached[0].ReservationNumber != rec.ReservationNumber || cached[0].DeliveryStatus != StatusDispatchFailed {
		t.Errorf("cached record = %+v", cached[0])
	}
	if len(notifier.got) != 0 {
		t.Error("notifier must not be called when dispatch fails")
	}
}

func TestGatewayCacheFailureFailsSubmit(t *testing.T) {
	notifier := &recordingNotifier{}
	gw := newTestGateway(&fakeDispatcher{}, failingCache{}, notifier)

	_, err := gw.Submit(context.Background(), NewRecord(sampleReservation(), time.Now()))
	if !errors.Is(err, ErrLocalCache) {
		t.Fatalf("Submit() error = %v, want ErrLocalCache", err)
	}
	if len(notifier.got) != 0 {
		t.Error("notifier called for a record that was not cached")
	}

	// a failed dispatch is reported as such even when the cache also failed
	gw = newTestGateway(&fakeDispatcher{err: errors.New("timeout")}, failingCache{}, notifier)
	if _, err := gw.Submit(context.Background(), NewRecord(sampleReservation(), time.Now())); !errors.Is(err, ErrSubmissionDispatch) {
		t.Errorf("Submit() error = %v, want ErrSubmissionDispatch", err)
	}
}

func TestGatewayNotifierFailureDoesNotFailSubmit(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	gw := newTestGateway(&fakeDispatcher{}, NewMemoryCache(), notifier)

	if _, err := gw.Submit(context.Background(), NewRecord(sampleReservation(), time.Now())); err != nil {
		t.Errorf("Submit() error = %v, want nil", err)
	}
	if len(notifier.got) != 1 {
		t.Errorf("notifier called %d times, want 1", len(notifier.got))
	}
}

func TestMemoryCacheAppendOnly(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := NewRecord(sampleReservation(), time.UnixMilli(int64(1000+i)))
			if err := cache.Append(ctx, rec); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 20 {
		t.Errorf("len(records) = %d, want 20", len(records))
	}
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.db")
	ctx := context.Background()

	cache, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("NewSQLiteCache() error = %v", err)
	}

	empty, err := cache.List(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("List() on empty cache = %v, %v", empty, err)
	}

	first := NewRecord(sampleReservation(), time.UnixMilli(1712345678901))
	second := NewRecord(sampleReservation(), time.UnixMilli(1712345679999))
	second.DeliveryStatus = StatusDispatchFailed
	for _, rec := range []Record{first, second} {
		if err := cache.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	cache.Close()

	// records survive reopening the file
	reopened, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	records, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ReservationNumber != "R45678901" || records[1].DeliveryStatus != StatusDispatchFailed {
		t.Errorf("records = %+v", records)
	}
	if records[0].Name != "山田 太郎" {
		t.Errorf("name = %q", records[0].Name)
	}
}

func TestFormDispatcherPostsMappedFields(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotForm        url.Values
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		// the reply is an HTML page nobody reads
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	mapping := FieldMapping{
		FieldDate:     "entry.1",
		FieldTime:     "entry.2",
		FieldGuests:   "entry.3",
		FieldCourse:   "entry.4",
		FieldName:     "entry.5",
		FieldRequests: "entry.9",
	}
	d := NewFormDispatcher(server.URL+"/forms/d/e", "FORM123", mapping, time.Second).WithLogger(logger.Discard())

	rec := NewRecord(sampleReservation(), time.Now())
	if err := d.Dispatch(context.Background(), rec); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if gotPath != "/forms/d/e/FORM123/formResponse" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	checks := map[string]string{
		"entry.1": "2025年4月10日（木）",
		"entry.2": "18:00",
		"entry.3": "4名",
		"entry.4": "シェフおまかせコース（¥6,500）",
		"entry.5": "山田 太郎",
		"entry.9": "なし",
	}
	for id, want := range checks {
		if got := gotForm.Get(id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}
	if len(gotForm) != len(mapping) {
		t.Errorf("unmapped fields were sent: %v", gotForm)
	}
}

func TestFormDispatcherFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	rec := NewRecord(sampleReservation(), time.Now())

	unreachable := NewFormDispatcher(server.URL, "FORM123", FieldMapping{FieldName: "entry.5"}, time.Second).WithLogger(logger.Discard())
	if err := unreachable.Dispatch(context.Background(), rec); err == nil {
		t.Error("Dispatch() to a closed server should fail")
	}

	malformed := NewFormDispatcher("http://[::1", "FORM123", nil, time.Second).WithLogger(logger.Discard())
	if err := malformed.Dispatch(context.Background(), rec); err == nil {
		t.Error("Dispatch() with a malformed URL should fail")
	}

	unconfigured := NewFormDispatcher(server.URL, "", nil, time.Second).WithLogger(logger.Discard())
	if err := unconfigured.Dispatch(context.Background(), rec); err != nil {
		t.Errorf("Dispatch() without a form id should be skipped, got %v", err)
	}
}
