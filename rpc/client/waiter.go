package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var waiterLogger = logger.GetLogger("waiter")

// DefaultWaitSlice bounds a single wait request of an async waiter.
// The connection lock is held for at most one slice, after which sibling
// callers get their turn.
const DefaultWaitSlice = 5 * time.Second

// WaitResult describes one container state change reported by the daemon.
// Name is empty if the wait timed out on the daemon side.
type WaitResult struct {
	Name  string
	State string
	// When is the daemon timestamp of the change in microseconds
	When  uint64
	Label string
	Value string
}

// Timeout reports whether the wait ended without a change
func (r *WaitResult) Timeout() bool {
	return r.Name == ""
}

func waitResult(resp *common.Response) *WaitResult {
	if resp.Wait == nil {
		return &WaitResult{}
	}
	return &WaitResult{
		Name:  resp.Wait.Name,
		State: resp.Wait.State,
		When:  resp.Wait.When,
		Label: resp.Wait.Label,
		Value: resp.Wait.Value,
	}
}

// --------------------------------------------------------------------------
// Synchronous Wait
// --------------------------------------------------------------------------

// Wait blocks until one of names (wildcards allowed) is dead or stopped, or one of
// labels changes. A negative timeout waits forever.
func (c *Connection) Wait(names, labels []string, timeout time.Duration) (*WaitResult, error) {
	resp, err := c.call(common.NewWaitRequest(names, labels, clampMs(timeout)), c.waitBudget(timeout))
	if err != nil {
		return nil, err
	}
	return waitResult(resp), nil
}

// --------------------------------------------------------------------------
// Asynchronous Wait
// --------------------------------------------------------------------------

// AsyncWaitOptions tunes an async waiter
type AsyncWaitOptions struct {
	// TargetState only reports changes into this state ("" for every change)
	TargetState string
	// Slice is the daemon-side timeout of one wait request (0 selects DefaultWaitSlice)
	Slice time.Duration
}

// Subscription is a running async waiter
type Subscription struct {
	id   uint64
	conn *Connection
	stop chan struct{}
	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

// AsyncWait starts a background waiter that calls callback once per state change of
// names (or change of labels), in the order the daemon reports them. Only changes
// after the subscription are reported.
func (c *Connection) AsyncWait(names, labels []string, callback func(WaitResult), opts AsyncWaitOptions) (*Subscription, error) {
	if len(names) == 0 && len(labels) == 0 {
		return nil, common.NewError(common.InvalidValue, "async wait needs at least one name or label")
	}
	if opts.Slice <= 0 {
		opts.Slice = DefaultWaitSlice
	}

	sub := &Subscription{
		id:   c.nextSubID.Add(1),
		conn: c,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.subscriptions.Store(sub.id, sub)

	// changes are stamped by the daemon clock, which is this host's clock
	watermark := uint64(time.Now().UnixMicro())
	go sub.run(names, labels, callback, opts, watermark)

	return sub, nil
}

// Subscriptions returns the number of running async waiters
func (c *Connection) Subscriptions() int {
	return c.subscriptions.Size()
}

// Unsubscribe stops the waiter. It does not wait for the waiter to exit, see Done.
// It is safe to call from the callback and more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
}

// Done is closed when the waiter has exited
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the waiter, nil if it was stopped
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// run polls the daemon one slice at a time. stamp is the newest delivered
// change time and seen holds what was delivered at stamp: other transitions
// can share it, so the next request asks for changes after stamp-1 and drops
// repeats. Once the daemon answers with a repeat the watermark moves to stamp.
func (s *Subscription) run(names, labels []string, callback func(WaitResult), opts AsyncWaitOptions, watermark uint64) {
	defer close(s.done)
	defer s.conn.subscriptions.Delete(s.id)

	stamp := watermark
	seen := make(map[WaitResult]struct{})
	inclusive := false

	for !s.stopped() {
		req := common.NewWaitRequest(names, labels, clampMs(opts.Slice))
		req.Wait.TargetState = opts.TargetState
		req.Wait.ChangedAfter = stamp
		if inclusive {
			req.Wait.ChangedAfter = stamp - 1
		}

		resp, err := s.conn.call(req, s.conn.waitBudget(opts.Slice))
		if s.stopped() {
			return
		}
		if err != nil {
			if common.IsTimeout(err) {
				waiterLogger.Debugf("Wait slice timed out locally: %v", err)
				continue
			}
			waiterLogger.Warningf("Async wait for %v stopped: %v", names, err)
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		event := waitResult(resp)
		if event.Timeout() {
			continue
		}
		switch {
		case event.When < stamp:
			continue
		case event.When == stamp:
			if _, ok := seen[*event]; ok || !inclusive {
				// already delivered
				inclusive = false
				continue
			}
		default:
			stamp = event.When
			clear(seen)
		}
		seen[*event] = struct{}{}
		inclusive = true
		callback(*event)
	}
}
