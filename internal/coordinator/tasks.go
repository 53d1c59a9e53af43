package coordinator

import "time"

// task wraps a ticker whose channel can be selected on even when the task
// is not running. A nil task's C returns a nil channel, which blocks
// forever in a select, so the dispatch loop never needs to special-case
// stopped tickers.
type task struct {
	ticker *time.Ticker
}

func startTask(interval time.Duration) *task {
	return &task{ticker: time.NewTicker(interval)}
}

func (t *task) C() <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.ticker.C
}

func (t *task) Stop() {
	if t == nil {
		return
	}
	t.ticker.Stop()
}
