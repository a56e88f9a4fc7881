package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

// collector gathers async wait results
type collector struct {
	mu      sync.Mutex
	results []WaitResult
	notify  chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 64)}
}

func (c *collector) callback(r WaitResult) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) snapshot() []WaitResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WaitResult(nil), c.results...)
}

// await blocks until n results were delivered
func (c *collector) await(t *testing.T, n int) []WaitResult {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for len(c.snapshot()) < n {
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("got %d results, want %d", len(c.snapshot()), n)
		}
	}
	return c.snapshot()
}

func TestAsyncWaitDeliversEachChangeOnce(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	other := secondConnection(t, conn)

	_, err := other.Create("aw")
	require.NoError(t, err)
	require.NoError(t, other.SetProperty("aw", "command", "sleep 1000"))

	c := newCollector()
	sub, err := conn.AsyncWait([]string{"aw"}, nil, c.callback, AsyncWaitOptions{Slice: 200 * time.Millisecond})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Equal(t, 1, conn.Subscriptions())

	// changes before the first wait request must not be replayed
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, other.Start("aw"))
	require.NoError(t, other.Pause("aw"))
	require.NoError(t, other.Resume("aw"))
	require.NoError(t, other.Kill("aw", 9))

	results := c.await(t, 4)
	states := make([]string, 0, len(results))
	for i, r := range results {
		assert.Equal(t, "aw", r.Name)
		states = append(states, r.State)
		if i > 0 {
			assert.Greater(t, r.When, results[i-1].When, "results out of order")
		}
	}
	assert.Equal(t, []string{"running", "paused", "running", "dead"}, states)

	// several idle slices later nothing was delivered twice
	time.Sleep(500 * time.Millisecond)
	assert.Len(t, c.snapshot(), 4)

	sub.Unsubscribe()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not exit after Unsubscribe")
	}
	assert.NoError(t, sub.Err())
	assert.Equal(t, 0, conn.Subscriptions())
}

func TestAsyncWaitTargetState(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["JSON"])
	other := secondConnection(t, conn)

	_, err := other.Create("job")
	require.NoError(t, err)
	for _, name := range []string{"job/a", "job/b"} {
		_, err := other.Create(name)
		require.NoError(t, err)
		require.NoError(t, other.SetProperty(name, "command", "sleep 1000"))
	}

	c := newCollector()
	sub, err := conn.AsyncWait([]string{"job/*"}, nil, c.callback, AsyncWaitOptions{
		TargetState: "dead",
		Slice:       200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, other.Start("job/a"))
	require.NoError(t, other.Start("job/b"))
	require.NoError(t, other.Kill("job/b", 15))
	require.NoError(t, other.Kill("job/a", 9))

	results := c.await(t, 2)
	assert.Equal(t, "job/b", results[0].Name)
	assert.Equal(t, "job/a", results[1].Name)
	for _, r := range results {
		assert.Equal(t, "dead", r.State)
	}
}

func TestAsyncWaitUnsubscribeFromCallback(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	other := secondConnection(t, conn)
	_, err := other.Create("once")
	require.NoError(t, err)

	var sub *Subscription
	ready := make(chan struct{})
	calls := 0
	sub, err = conn.AsyncWait([]string{"once"}, nil, func(WaitResult) {
		<-ready
		calls++
		sub.Unsubscribe()
	}, AsyncWaitOptions{Slice: 100 * time.Millisecond})
	require.NoError(t, err)
	close(ready)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, other.SetProperty("once", "command", "true"))
	require.NoError(t, other.Start("once"))

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("waiter did not exit")
	}
	assert.Equal(t, 1, calls)
	sub.Unsubscribe()
}

func TestAsyncWaitStopsOnError(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])

	sub, err := conn.AsyncWait([]string{"ghost"}, nil, func(WaitResult) {
		t.Error("callback must not run")
	}, AsyncWaitOptions{Slice: 100 * time.Millisecond})
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("waiter did not exit")
	}
	assert.ErrorIs(t, sub.Err(), common.ErrContainerDoesNotExist)
}

func TestAsyncWaitNeedsTargets(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	_, err := conn.AsyncWait(nil, nil, func(WaitResult) {}, AsyncWaitOptions{})
	require.ErrorIs(t, err, common.ErrInvalidValue)
}

func TestDisconnectStopsWaiters(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	_, err := conn.Create("idle")
	require.NoError(t, err)
	require.NoError(t, conn.SetProperty("idle", "command", "sleep 1000"))
	require.NoError(t, conn.Start("idle"))

	sub, err := conn.AsyncWait([]string{"idle"}, nil, func(WaitResult) {}, AsyncWaitOptions{Slice: time.Second})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, conn.Disconnect())
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still running after Disconnect")
	}
	assert.NoError(t, sub.Err(), "a stopped waiter reports no error")
}

func TestAsyncWaitSameStampTransitions(t *testing.T) {
	when := uint64(time.Now().Add(time.Hour).UnixMicro())
	script := []*common.WaitResponse{
		{Name: "a", State: "dead", When: when},
		{Name: "b", State: "dead", When: when},
		{Name: "a", State: "dead", When: when},
	}

	var (
		mu    sync.Mutex
		after []uint64
	)
	m := newMockTransport(func(req *common.Request) *common.Response {
		mu.Lock()
		defer mu.Unlock()
		after = append(after, req.Wait.ChangedAfter)
		if len(after) > len(script) {
			time.Sleep(10 * time.Millisecond)
			return &common.Response{Wait: &common.WaitResponse{}}
		}
		return &common.Response{Wait: script[len(after)-1]}
	})
	conn := newMockConnection(m)
	require.NoError(t, conn.Connect())
	t.Cleanup(func() { _ = conn.Disconnect() })

	c := newCollector()
	sub, err := conn.AsyncWait([]string{"*"}, nil, c.callback, AsyncWaitOptions{Slice: 100 * time.Millisecond})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	results := c.await(t, 2)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(after) > len(script)+1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, c.snapshot(), 2, "the repeated transition was delivered again")

	mu.Lock()
	defer mu.Unlock()
	// same stamp transitions stay visible until the daemon repeats one
	assert.Equal(t, when-1, after[1])
	assert.Equal(t, when-1, after[2])
	assert.Equal(t, when, after[3])
}
