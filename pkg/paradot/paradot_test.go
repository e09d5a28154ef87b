package paradot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnAndJoinReturnsOutput(t *testing.T) {
	s := NewScheduler()
	err := s.Spawn("dot1", func(a Args) ([]byte, error) {
		return append([]byte("echo:"), a.Data...), nil
	}, Args{Data: []byte("hello")})
	require.NoError(t, err)

	result, err := s.Join("dot1")
	require.NoError(t, err)
	require.Equal(t, "echo:hello", string(result.Output))

	_, err = s.Join("dot1")
	require.ErrorIs(t, err, ErrDotNotFound)
}

func TestSpawnDuplicateIDFails(t *testing.T) {
	s := NewScheduler()
	block := make(chan struct{})
	require.NoError(t, s.Spawn("dot1", func(Args) ([]byte, error) {
		<-block
		return nil, nil
	}, Args{}))

	err := s.Spawn("dot1", func(Args) ([]byte, error) { return nil, nil }, Args{})
	require.ErrorIs(t, err, ErrDotAlreadyExists)
	close(block)
	_, _ = s.Join("dot1")
}

func TestMessageDeliveryToMailbox(t *testing.T) {
	s := NewScheduler()
	s.Message("worker", Message{Sender: "main", Content: []byte("ping"), MessageType: "control"})

	msg := s.Receive("worker")
	require.Equal(t, "main", msg.Sender)
	require.Equal(t, []byte("ping"), msg.Content)
}

func TestMutexSyncSerializesAccess(t *testing.T) {
	s := NewScheduler()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.Sync(SyncRequest{Kind: KindMutex, ID: "m", Action: Acquire}))
			counter++
			require.NoError(t, s.Sync(SyncRequest{Kind: KindMutex, ID: "m", Action: Release}))
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	s := NewScheduler()
	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.Sync(SyncRequest{Kind: KindSemaphore, ID: "sem", Permits: 2, Action: Acquire}))
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			require.NoError(t, s.Sync(SyncRequest{Kind: KindSemaphore, ID: "sem", Action: Release}))
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, maxActive, 2)
}

func TestAtomicOperations(t *testing.T) {
	s := NewScheduler()
	v, err := s.Atomic(AtomicRequest{Kind: AtomicStore, ID: "c", Value: 42})
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	v, err = s.Atomic(AtomicRequest{Kind: AtomicFetchAdd, ID: "c", Value: 8})
	require.NoError(t, err)
	require.Equal(t, uint64(50), v)

	v, err = s.Atomic(AtomicRequest{Kind: AtomicLoad, ID: "c"})
	require.NoError(t, err)
	require.Equal(t, uint64(50), v)
}

func TestBarrierReleasesAllPartiesTogether(t *testing.T) {
	s := NewScheduler()
	const parties = 4
	var wg sync.WaitGroup
	var crossed atomic4
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Barrier("b", parties)
			crossed.inc()
		}()
	}
	wg.Wait()
	require.Equal(t, int64(parties), crossed.get())
}

type atomic4 struct {
	mu sync.Mutex
	n  int64
}

func (a *atomic4) inc() {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

func (a *atomic4) get() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
