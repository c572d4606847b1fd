package session

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adforge/internal/campaign"
)

func ad(id string) campaign.Ad {
	return campaign.Ad{ID: id, Headline: "h-" + id, Body: "b", CallToAction: "c"}
}

func ids(ads []campaign.Ad) []string {
	out := make([]string, 0, len(ads))
	for _, a := range ads {
		out = append(out, a.ID)
	}
	return out
}

func TestHistoryBound(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 25} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			h := NewHistory(0)
			for i := 0; i < n; i++ {
				h.Push(ad(fmt.Sprint(i)))
			}

			want := min(n, 10)
			require.Equal(t, want, h.Len())

			all := h.All()
			for i, got := range all {
				assert.Equal(t, fmt.Sprint(n-1-i), got.ID)
			}
			if n > 10 {
				_, ok := h.Find(fmt.Sprint(n - 11))
				assert.False(t, ok)
			}
		})
	}
}

func TestHistoryAllIsACopy(t *testing.T) {
	h := NewHistory(3)
	h.Push(ad("a"))
	all := h.All()
	all[0].ID = "mutated"

	got, ok := h.Find("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 3, h.Cap())
}

func TestMemoryStoreCurrentAndSelect(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore(Options{})

	_, err := s.Current(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Push(ctx, "s1", ad("a")))
	require.NoError(t, s.Push(ctx, "s1", ad("b")))
	require.NoError(t, s.Push(ctx, "s1", ad("c")))

	cur, err := s.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "c", cur.ID)

	before, err := s.History(ctx, "s1")
	require.NoError(t, err)

	sel, err := s.Select(ctx, "s1", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", sel.ID)

	cur, err = s.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", cur.ID)

	after, err := s.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"c", "b", "a"}, ids(after))

	_, err = s.Select(ctx, "s1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, "other", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Clear(ctx, "s1"))
	got, err := s.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = s.Current(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore(Options{MaxHistory: 2})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Push(ctx, "a", ad(fmt.Sprint("a", i))))
	}
	require.NoError(t, s.Push(ctx, "b", ad("b0")))

	a, _ := s.History(ctx, "a")
	b, _ := s.History(ctx, "b")
	assert.Equal(t, []string{"a4", "a3"}, ids(a))
	assert.Equal(t, []string{"b0"}, ids(b))
}

func TestMemoryStoreAcquire(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore(Options{})

	release, err := s.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = s.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := s.Acquire(ctx, "s2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := s.Acquire(ctx, "s1")
	require.NoError(t, err)
	again()
}

func TestMemoryStoreAcquireConcurrent(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore(Options{})

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Acquire(ctx, "s1"); err == nil {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
}

func TestMemoryStorePrune(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore(Options{})

	require.NoError(t, s.Push(ctx, "idle", ad("a")))
	release, err := s.Acquire(ctx, "busy")
	require.NoError(t, err)
	defer release()

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, s.Prune(time.Millisecond))

	_, err = s.Find(ctx, "idle", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := t.Context()
	rdb, err := Connect(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	s := NewRedisStore(rdb, RedisOptions{Prefix: "adforge-test-" + uuid.NewString()})
	sid := "s1"
	defer s.Clear(ctx, sid)
	defer rdb.Del(ctx, s.busyKey(sid))

	for i := 0; i < 12; i++ {
		require.NoError(t, s.Push(ctx, sid, ad(fmt.Sprint(i))))
	}

	got, err := s.History(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "10", "9", "8", "7", "6", "5", "4", "3", "2"}, ids(got))

	cur, err := s.Current(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "11", cur.ID)

	_, err = s.Select(ctx, sid, "0")
	assert.ErrorIs(t, err, ErrNotFound)
	sel, err := s.Select(ctx, sid, "5")
	require.NoError(t, err)
	assert.Equal(t, "h-5", sel.Headline)

	release, err := s.Acquire(ctx, sid)
	require.NoError(t, err)
	_, err = s.Acquire(ctx, sid)
	assert.ErrorIs(t, err, ErrBusy)
	release()
	release2, err := s.Acquire(ctx, sid)
	require.NoError(t, err)
	release2()
}
