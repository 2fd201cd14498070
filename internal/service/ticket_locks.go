package service

import "sync"

// ticketLocks serialises read-modify-write cycles on one ticket within this
// process. Entries are dropped once no caller holds or waits for them.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*ticketLock)}
}

// Lock blocks until name is free and returns the matching unlock func.
func (l *ticketLocks) Lock(name string) func() {
	l.mu.Lock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &ticketLock{}
		l.locks[name] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *ticketLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
