package broadcast

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultPerTargetTimeout is the default timeout for each target call.
	DefaultPerTargetTimeout = 500 * time.Millisecond
)

// SendFunc delivers one message to target.
type SendFunc func(ctx context.Context, target int32) error

// Result represents the outcome of a fan-out.
type Result struct {
	Delivered []int32
	Failed    map[int32]error
}

// OK reports whether every target was reached.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// FailedTargets returns the unreached targets in ascending order.
func (r Result) FailedTargets() []int32 {
	out := make([]int32, 0, len(r.Failed))
	for id := range r.Failed {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (r Result) String() string {
	return fmt.Sprintf("delivered=%v failed=%v", r.Delivered, r.FailedTargets())
}

// Do sends to all targets in parallel and waits for every call to finish or
// time out. timeout <= 0 uses DefaultPerTargetTimeout. Cancelling ctx cancels
// the calls still in flight.
func Do(ctx context.Context, targets []int32, timeout time.Duration, send SendFunc) Result {
	result := Result{
		Delivered: make([]int32, 0, len(targets)),
		Failed:    make(map[int32]error),
	}
	if len(targets) == 0 {
		return result
	}
	if timeout <= 0 {
		timeout = DefaultPerTargetTimeout
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, target := range targets {
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := send(callCtx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = fmt.Errorf("peer %d: %w", id, err)
				return
			}
			result.Delivered = append(result.Delivered, id)
		}(target)
	}
	wg.Wait()

	slices.Sort(result.Delivered)
	return result
}

// Except returns ids without skip, preserving order.
func Except(ids []int32, skip int32) []int32 {
	out := make([]int32, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
