package ledger

import "sync"

// orderLocks hands out one mutex per order id so that mutations of the same
// order run one at a time while different orders proceed in parallel.
// Entries are reference counted and dropped on the last unlock.
type orderLocks struct {
	mu    sync.Mutex
	locks map[int64]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[int64]*orderLock)}
}

// lock blocks until the order's mutex is held and returns its release func
func (l *orderLocks) lock(orderID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &orderLock{}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, orderID)
		}
		l.mu.Unlock()
	}
}

// held reports how many orders currently have a lock entry
func (l *orderLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
