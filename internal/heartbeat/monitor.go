package heartbeat

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// State represents what the monitor believes about the partner.
type State int32

const (
	Alive State = iota
	AwaitingResponse
	Failed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case Alive:
		return "ALIVE"
	case AwaitingResponse:
		return "AWAITING_RESPONSE"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ProbeFunc asks the partner to answer a heartbeat.
type ProbeFunc func(ctx context.Context) error

// Monitor watches a single partner trader.
type Monitor struct {
	selfID    int32
	partnerID int32
	interval  time.Duration
	timeout   time.Duration
	probe     ProbeFunc
	onFailure func(partner int32)

	state     atomic.Int32
	responded atomic.Bool
	failOnce  sync.Once
	startOnce sync.Once

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor of partnerID. onFailure is called once, from
// its own goroutine, when the partner is declared failed.
func NewMonitor(selfID, partnerID int32, interval, timeout time.Duration, probe ProbeFunc, onFailure func(partner int32)) *Monitor {
	if interval <= 0 {
		interval = 1 * time.Second
	}
	if timeout <= interval {
		timeout = 3 * interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		selfID:    selfID,
		partnerID: partnerID,
		interval:  interval,
		timeout:   timeout,
		probe:     probe,
		onFailure: onFailure,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the send and timeout loops. Calling it more than once has
// no effect.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		log.Printf("[peer-%d] Heartbeat started: partner=%d interval=%v timeout=%v",
			m.selfID, m.partnerID, m.interval, m.timeout)

		m.wg.Add(2)

		// Send loop
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(m.interval)
			defer ticker.Stop()

			for {
				select {
				case <-m.ctx.Done():
					return
				case <-ticker.C:
					m.send()
				}
			}
		}()

		// Timeout checker
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(m.timeout)
			defer ticker.Stop()

			for {
				select {
				case <-m.ctx.Done():
					return
				case <-ticker.C:
					m.check()
				}
			}
		}()
	})
}

// Stop cancels both loops and waits for them to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Ack records a heartbeat response. Responses from anyone but the partner
// are ignored.
func (m *Monitor) Ack(fromID int32) {
	if fromID != m.partnerID || m.State() == Failed {
		return
	}
	m.responded.Store(true)
	m.state.Store(int32(Alive))
}

// State returns the current partner state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Partner returns the id of the monitored trader.
func (m *Monitor) Partner() int32 {
	return m.partnerID
}

func (m *Monitor) send() {
	if m.State() == Failed {
		return
	}
	if m.State() == Alive {
		m.state.CompareAndSwap(int32(Alive), int32(AwaitingResponse))
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.interval)
	defer cancel()
	if err := m.probe(ctx); err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[peer-%d] Heartbeat to partner failed: partner=%d err=%v", m.selfID, m.partnerID, err)
		m.fail()
	}
}

func (m *Monitor) check() {
	if m.responded.Swap(false) {
		return
	}
	log.Printf("[peer-%d] Heartbeat timeout: partner=%d silent for %v", m.selfID, m.partnerID, m.timeout)
	m.fail()
}

func (m *Monitor) fail() {
	m.failOnce.Do(func() {
		m.state.Store(int32(Failed))
		m.cancel()
		log.Printf("[peer-%d] Partner declared failed: partner=%d", m.selfID, m.partnerID)
		if m.onFailure != nil {
			go m.onFailure(m.partnerID)
		}
	})
}
