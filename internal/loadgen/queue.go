package loadgen

import "sync"

// txQueue is the work queue for a batch. Instant-mode commits are pushed
// back while the batch is still draining, so emptiness alone does not mean
// done: a pop blocks until the queue is empty and nothing is in flight.
type txQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Transaction
	inFlight int
}

func newTxQueue(txs []Transaction) *txQueue {
	q := &txQueue{items: append([]Transaction(nil), txs...)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Pop takes the next transaction, blocking while the queue is empty but
// other workers might still push follow-ups. Returns false once drained.
func (q *txQueue) Pop() (Transaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && q.inFlight > 0 {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Transaction{}, false
	}

	tx := q.items[0]
	q.items = q.items[1:]
	q.inFlight++
	return tx, true
}

// Push appends a follow-up transaction.
func (q *txQueue) Push(tx Transaction) {
	q.mu.Lock()
	q.items = append(q.items, tx)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Done marks a popped transaction as fully processed.
func (q *txQueue) Done() {
	q.mu.Lock()
	q.inFlight--
	q.mu.Unlock()
	q.cond.Broadcast()
}
