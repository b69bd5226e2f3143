package stats

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/any-hub/pypi-stats/internal/cache"
	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/logging"
)

const samplePayload = `{
	"info": {"downloads": {"last_month": 120, "last_week": 30, "last_day": 4}},
	"releases": {"1.0": [{"downloads": 3}, {"downloads": 2}]}
}`

func TestGetCachesPayloadBetweenCalls(t *testing.T) {
	fetcher := &stubFetcher{status: http.StatusOK, body: samplePayload}
	statsCache, store := newTestStatsCache(t, fetcher)
	pkg := config.PackageConfig{Label: "Demo", PackageName: "demo"}

	first := statsCache.Get(context.Background(), pkg, false)
	second := statsCache.Get(context.Background(), pkg, false)

	if first == nil || second == nil {
		t.Fatalf("expected payloads, got %v / %v", first, second)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected a single upstream call, got %d", fetcher.callCount())
	}
	if got, _ := second.PeriodDownloads("last_month"); got != 120 {
		t.Fatalf("expected cached last_month 120, got %d", got)
	}
	if ttl := store.ttlFor(statsCache.Key(pkg)); ttl != time.Hour {
		t.Fatalf("natural refresh should store base ttl, got %s", ttl)
	}
}

func TestForcedRefreshAlwaysFetchesAndDoublesTTL(t *testing.T) {
	fetcher := &stubFetcher{status: http.StatusOK, body: samplePayload}
	statsCache, store := newTestStatsCache(t, fetcher)
	pkg := config.PackageConfig{Label: "Demo", PackageName: "demo"}

	_ = statsCache.Get(context.Background(), pkg, false)
	payload := statsCache.Get(context.Background(), pkg, true)

	if payload == nil {
		t.Fatalf("forced refresh should return payload")
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("forced refresh must hit upstream, got %d calls", fetcher.callCount())
	}
	if ttl := store.ttlFor(statsCache.Key(pkg)); ttl != 2*time.Hour {
		t.Fatalf("forced refresh should store double ttl, got %s", ttl)
	}
}

func TestNon200IsCachedAsAbsent(t *testing.T) {
	fetcher := &stubFetcher{status: http.StatusNotFound}
	statsCache, store := newTestStatsCache(t, fetcher)
	pkg := config.PackageConfig{Label: "Missing", PackageName: "missing"}

	if payload := statsCache.Get(context.Background(), pkg, false); payload != nil {
		t.Fatalf("non-200 should yield absent payload, got %+v", payload)
	}

	raw, err := store.Get(context.Background(), statsCache.Key(pkg))
	if err != nil {
		t.Fatalf("absent payload should still be stored: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected stored null, got %q", string(raw))
	}

	// 缓存中的 null 不算命中，下一次读取会重新回源
	_ = statsCache.Get(context.Background(), pkg, false)
	if fetcher.callCount() != 2 {
		t.Fatalf("cached null should trigger refetch, got %d calls", fetcher.callCount())
	}
}

func TestTransportErrorIsSwallowed(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	statsCache, _ := newTestStatsCache(t, fetcher)

	if payload := statsCache.Get(context.Background(), config.PackageConfig{PackageName: "demo"}, true); payload != nil {
		t.Fatalf("transport error should yield absent payload")
	}
}

func TestInvalidBodyIsCachedAsAbsent(t *testing.T) {
	fetcher := &stubFetcher{status: http.StatusOK, body: "<html>maintenance</html>"}
	statsCache, store := newTestStatsCache(t, fetcher)
	pkg := config.PackageConfig{PackageName: "demo"}

	if payload := statsCache.Get(context.Background(), pkg, false); payload != nil {
		t.Fatalf("invalid body should yield absent payload")
	}
	raw, _ := store.Get(context.Background(), statsCache.Key(pkg))
	if string(raw) != "null" {
		t.Fatalf("expected stored null, got %q", string(raw))
	}
}

func TestStoreFailureDoesNotSurface(t *testing.T) {
	fetcher := &stubFetcher{status: http.StatusOK, body: samplePayload}
	statsCache, err := New(Options{
		Store:   failingStore{},
		Fetcher: fetcher,
		TTL:     time.Hour,
		Logger:  logging.NewDiscardLogger(),
	})
	if err != nil {
		t.Fatalf("new error: %v", err)
	}
	if payload := statsCache.Get(context.Background(), config.PackageConfig{PackageName: "demo"}, false); payload == nil {
		t.Fatalf("store failures should not hide the fetched payload")
	}
}

func TestKeysDifferPerPackage(t *testing.T) {
	statsCache, _ := newTestStatsCache(t, &stubFetcher{})
	a := statsCache.Key(config.PackageConfig{PackageName: "django-cms"})
	b := statsCache.Key(config.PackageConfig{PackageName: "aldryn-forms"})
	if a == b {
		t.Fatalf("different packages must not share a key: %s", a)
	}
	if a != statsCache.Key(config.PackageConfig{Label: "other label", PackageName: "django-cms"}) {
		t.Fatalf("key should only depend on the package name")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	valid := Options{
		Store:   cache.NewMemoryStore(0),
		Fetcher: &stubFetcher{},
		TTL:     time.Hour,
		Logger:  logging.NewDiscardLogger(),
	}
	broken := []func(*Options){
		func(o *Options) { o.Store = nil },
		func(o *Options) { o.Fetcher = nil },
		func(o *Options) { o.TTL = 0 },
		func(o *Options) { o.Logger = nil },
	}
	for i, mutate := range broken {
		opts := valid
		mutate(&opts)
		if _, err := New(opts); err == nil {
			t.Fatalf("case %d: expected constructor error", i)
		}
	}
}

func newTestStatsCache(t *testing.T, fetcher Fetcher) (*StatsCache, *recordingStore) {
	t.Helper()
	store := &recordingStore{Store: cache.NewMemoryStore(0), ttls: map[string]time.Duration{}}
	statsCache, err := New(Options{
		Store:   store,
		Fetcher: fetcher,
		TTL:     time.Hour,
		Logger:  logging.NewDiscardLogger(),
	})
	if err != nil {
		t.Fatalf("new error: %v", err)
	}
	return statsCache, store
}

type stubFetcher struct {
	mu     sync.Mutex
	calls  int
	status int
	body   string
	err    error
}

func (f *stubFetcher) Fetch(ctx context.Context, packageName string) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	if f.status != http.StatusOK {
		return nil, f.status, nil
	}
	return []byte(f.body), f.status, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingStore 记录每个 key 最近一次写入的 TTL。
type recordingStore struct {
	cache.Store
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *recordingStore) ttlFor(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk unavailable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk unavailable")
}
