package fixed

import "sync/atomic"

// Accumulator is a concurrency-safe running total of Millis values.
// Writers only add; the total is read once the round's barrier has
// released. The zero value is ready to use and an Accumulator must not
// be copied after first use.
type Accumulator struct {
	sum int64
}

// Add folds v into the running total.
func (a *Accumulator) Add(v Millis) {
	atomic.AddInt64(&a.sum, int64(v))
}

// Sum returns a snapshot of the accumulated total.
func (a *Accumulator) Sum() Millis {
	return Millis(atomic.LoadInt64(&a.sum))
}
