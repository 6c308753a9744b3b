// Package progress provides console liveness feedback and per-stage latency
// accounting for the pipeline's long-running network calls. Both pieces are
// purely observational: they share nothing with the primary flow beyond a
// stop signal and have no effect on correctness.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// tickInterval is how often the indicator redraws its status line.
const tickInterval = 500 * time.Millisecond

// frames is the animation cycle appended to the message.
var frames = [...]string{"...", "..", "."}

// Indicator is a background status line that animates while a blocking call
// is in flight. Start launches one goroutine; Stop signals it and waits for
// it to exit, so no indicator ever outlives the operation that owns it.
// Stop is idempotent and safe to call from a defer on every exit path.
type Indicator struct {
	// w receives the status line (normally os.Stdout).
	w io.Writer
	// message is the static prefix of the status line.
	message string

	// stopCh signals the animation goroutine to exit.
	stopCh chan struct{}
	// doneCh is closed by the goroutine once it has exited.
	doneCh chan struct{}
	// started records whether Start launched the goroutine; Stop must not
	// wait on doneCh before then.
	started bool
	// stopOnce guards double-Stop.
	stopOnce sync.Once
}

// NewIndicator constructs an Indicator writing to w with the given message.
func NewIndicator(w io.Writer, message string) *Indicator {
	return &Indicator{
		w:       w,
		message: message,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background animation. Call Stop (typically via defer)
// before the owning operation returns.
func (i *Indicator) Start() {
	i.started = true
	go func() {
		defer close(i.doneCh)

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		n := 0
		for {
			select {
			case <-i.stopCh:
				return
			case <-ticker.C:
				fmt.Fprintf(i.w, "\r  %s%s", i.message, frames[n%len(frames)])
				n++
			}
		}
	}()
}

// Stop halts the animation and waits for the goroutine to exit, then
// terminates the status line. Safe to call more than once, and a no-op on
// an Indicator that was never started.
func (i *Indicator) Stop() {
	i.stopOnce.Do(func() {
		if !i.started {
			return
		}
		close(i.stopCh)
		<-i.doneCh
		fmt.Fprintln(i.w)
	})
}

// Timings accumulates per-stage elapsed time across one pipeline run.
// It is surfaced to the orchestration layer for the latency breakdown report.
type Timings struct {
	// Embedding is the time spent in the embedding service call.
	Embedding time.Duration
	// Search is the time spent in the store's similarity query.
	Search time.Duration
	// Generation is the time spent in the generation service call.
	Generation time.Duration
}

// Total returns the sum of all recorded stages.
func (t *Timings) Total() time.Duration {
	return t.Embedding + t.Search + t.Generation
}

// String renders the latency breakdown for the console report.
func (t *Timings) String() string {
	return fmt.Sprintf("embedding=%.3fs search=%.3fs generation=%.3fs total=%.3fs",
		t.Embedding.Seconds(), t.Search.Seconds(), t.Generation.Seconds(), t.Total().Seconds())
}
