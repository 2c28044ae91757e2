package tasks

import "sync"

// Loop runs posted closures one at a time on a single goroutine.
//
// All mutable session state is owned by the loop: read and write it only from closures passed to Post or Do.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post schedules fn and returns immediately. It never blocks, so it is safe to call from the loop itself.
//
// Returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it. Calling Do from the loop deadlocks.
//
// Returns false if the loop closed before fn ran.
func (l *Loop) Do(fn func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return false
	}

	select {
	case <-ran:
		return true
	case <-l.stopped:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Close stops the loop after the closure currently running, dropping anything still queued.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.done)
	})
	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
			for fn := l.next(); fn != nil; fn = l.next() {
				select {
				case <-l.done:
					return
				default:
				}
				fn()
			}
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
