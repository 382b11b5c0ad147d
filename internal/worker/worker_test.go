// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
)

type stubSearcher struct {
	mu       sync.Mutex
	failures map[string]int
	calls    int
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]common.PostHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if n := s.failures[query]; n != 0 {
		if n > 0 {
			s.failures[query] = n - 1
		}
		return nil, &common.SearchError{Query: query, Err: errors.New("timeline did not load")}
	}
	return []common.PostHandle{{ID: "1", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}}, nil
}

type stubDetails struct{}

func (stubDetails) Fetch(ctx context.Context, postURL string) ([]byte, error) {
	return []byte(fmt.Sprintf(`{
		"rest_id": "1",
		"core": {"user_results": {"result": {"core": {"screen_name": "acct", "name": "Account"}}}},
		"legacy": {"created_at": "Wed May 01 09:00:00 +0000 2024", "full_text": "hello from %s", "lang": "en"}
	}`, postURL)), nil
}

type recordingReporter struct {
	mu        sync.Mutex
	summaries []*RunSummary
}

func (r *recordingReporter) Report(ctx context.Context, s *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries)
}

func newTestWorker(t *testing.T, search *stubSearcher, maxRetries int) (*Worker, *recordingReporter, *[]time.Duration) {
	t.Helper()
	accounts := []common.Account{
		{Key: "alpha", Handle: "alpha", DisplayName: "Alpha"},
		{Key: "beta", Handle: "beta", DisplayName: "Beta"},
	}
	p := &fetcher.Pipeline{Searcher: search, Details: stubDetails{}}

	w := NewWorker(p, accounts, t.TempDir(), "https://example.org/feeds/", maxRetries, nil)
	rep := &recordingReporter{}
	w.Reporter = rep

	var delays []time.Duration
	w.Sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return w, rep, &delays
}

func TestRunSyncWritesEveryAccount(t *testing.T) {
	w, rep, delays := newTestWorker(t, &stubSearcher{}, 3)

	summary, err := w.SyncAll(context.Background(), RunOptions{Since: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if summary.Attempts != 1 || len(*delays) != 0 {
		t.Errorf("attempts=%d delays=%v, want a single attempt", summary.Attempts, *delays)
	}
	want := []string{"https://example.org/feeds/alpha.xml", "https://example.org/feeds/beta.xml"}
	if len(summary.URLs) != len(want) {
		t.Fatalf("got URLs %v, want %v", summary.URLs, want)
	}
	for i := range want {
		if summary.URLs[i] != want[i] {
			t.Errorf("URL %d = %q, want %q", i, summary.URLs[i], want[i])
		}
	}
	for _, key := range []string{"alpha", "beta"} {
		if _, err := os.Stat(filepath.Join(w.OutputDir, key+".xml")); err != nil {
			t.Errorf("feed %s not written: %v", key, err)
		}
	}
	if summary.RunID.String() == "" || len(rep.summaries) != 1 {
		t.Errorf("reporter calls = %d", len(rep.summaries))
	}
}

func TestRunSyncRetriesWholeRun(t *testing.T) {
	search := &stubSearcher{failures: map[string]int{"from:beta since:2024-05-01": 1}}
	w, _, delays := newTestWorker(t, search, 3)

	summary, err := w.SyncAll(context.Background(), RunOptions{Since: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if summary.Attempts != 2 || len(*delays) != 1 {
		t.Fatalf("attempts=%d delays=%d, want 2 and 1", summary.Attempts, len(*delays))
	}
	// alpha succeeded in the first attempt but is fetched again.
	if search.calls != 4 {
		t.Errorf("got %d searches, want 4", search.calls)
	}
	if len(summary.Feeds) != 2 {
		t.Errorf("got %d feeds, want 2", len(summary.Feeds))
	}
}

func TestRunSyncGivesUp(t *testing.T) {
	search := &stubSearcher{failures: map[string]int{"from:beta since:2024-05-01": -1}}
	w, rep, delays := newTestWorker(t, search, 2)

	summary, err := w.SyncAll(context.Background(), RunOptions{Since: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("got %v, want RunError", err)
	}
	if runErr.Attempts != 3 || len(*delays) != 2 {
		t.Errorf("attempts=%d delays=%d, want 3 and 2", runErr.Attempts, len(*delays))
	}
	var sErr *common.SearchError
	if !errors.As(err, &sErr) {
		t.Errorf("cause lost: %v", err)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Key != "beta" {
		t.Errorf("failures = %+v", summary.Failures)
	}
	if _, err := os.Stat(filepath.Join(w.OutputDir, "alpha.xml")); err != nil {
		t.Errorf("healthy account not written: %v", err)
	}
	if len(rep.summaries) != 1 || rep.summaries[0].OK() {
		t.Errorf("reporter got %d summaries", len(rep.summaries))
	}
}

func TestRunSyncStopsWhenCancelled(t *testing.T) {
	search := &stubSearcher{failures: map[string]int{"from:beta since:2024-05-01": -1}}
	w, _, _ := newTestWorker(t, search, 5)
	ctx, cancel := context.WithCancel(context.Background())
	w.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	summary, err := w.SyncAll(ctx, RunOptions{Since: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	if err == nil {
		t.Fatal("expected failure")
	}
	if summary.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", summary.Attempts)
	}
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 0; attempt < 12; attempt++ {
		d := backoffWithJitter(attempt)
		if d < 0 || d >= 15*time.Minute {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
		if limit := 10 * time.Second * (1 << attempt); attempt < 6 && d >= limit {
			t.Fatalf("attempt %d: delay %v exceeds %v", attempt, d, limit)
		}
	}
}

func TestSchedulerRunsUntilStopped(t *testing.T) {
	w, rep, _ := newTestWorker(t, &stubSearcher{}, 0)

	w.Start(context.Background(), 10*time.Millisecond)
	if !w.IsActive() {
		t.Fatal("scheduler not active after Start")
	}

	deadline := time.Now().Add(5 * time.Second)
	for rep.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rep.count() == 0 {
		t.Fatal("no scheduled run happened")
	}

	w.Stop()
	deadline = time.Now().Add(5 * time.Second)
	for w.IsActive() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.IsActive() {
		t.Fatal("scheduler still active after Stop")
	}
}

type failingSearcher struct {
	once     sync.Once
	searched chan struct{}
}

func (s *failingSearcher) Search(ctx context.Context, query string) ([]common.PostHandle, error) {
	s.once.Do(func() { close(s.searched) })
	return nil, &common.SearchError{Query: query, Err: errors.New("timeline did not load")}
}

func TestStopCancelsRunInBackoff(t *testing.T) {
	s := &failingSearcher{searched: make(chan struct{})}
	p := &fetcher.Pipeline{Searcher: s, Details: stubDetails{}}
	w := NewWorker(p, []common.Account{{Key: "alpha", Handle: "alpha"}}, t.TempDir(), "", 5, nil)
	rep := &recordingReporter{}
	w.Reporter = rep

	w.Start(context.Background(), 10*time.Millisecond)
	select {
	case <-s.searched:
	case <-time.After(5 * time.Second):
		t.Fatal("no scheduled run happened")
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop waited for the retry backoff")
	}

	if w.IsActive() || w.IsRunning() {
		t.Fatalf("got active=%v running=%v after Stop, want both false", w.IsActive(), w.IsRunning())
	}
	if rep.count() == 0 {
		t.Fatal("cancelled run was not reported")
	}
}
