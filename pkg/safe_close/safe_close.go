package safe_close

import (
	"context"
	"sync"
)

// SafeClose coordinates the shutdown of a runner and the goroutines it
// owns. CloseWait returns only after all of them exited.
//
//  1. The owner waits on ReceiveCloseSignal and calls Done before it returns.
//  2. Owned goroutines are started by Attach and must watch the close signal.
//  3. Any of them may call SendCloseSignal to stop the whole runner. They
//     must not call CloseWait, it would deadlock.
//  4. Outside callers stop the runner with CloseWait.
type SafeClose struct {
	m           sync.Mutex
	wg          sync.WaitGroup
	closeSignal chan struct{}
	done        chan struct{}
	doneOnce    sync.Once
	closeErr    error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// CloseWait sends a close signal and blocks until Done was called and
// all attached goroutines returned. It can be called multiple times.
func (s *SafeClose) CloseWait() {
	s.SendCloseSignal(nil)
	s.wg.Wait()
	<-s.done
}

// SendCloseSignal sends a close signal. Only the first non-nil err is kept.
func (s *SafeClose) SendCloseSignal(err error) {
	s.m.Lock()
	defer s.m.Unlock()

	select {
	case <-s.closeSignal:
		return
	default:
		if err != nil {
			s.closeErr = err
		}
		close(s.closeSignal)
	}
}

// Err returns the error passed to the first SendCloseSignal.
func (s *SafeClose) Err() error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.closeErr
}

func (s *SafeClose) ReceiveCloseSignal() <-chan struct{} {
	return s.closeSignal
}

// Context returns a context that is canceled once the close signal is
// sent or parent is done. The returned cancel func must be called.
func (s *SafeClose) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.closeSignal:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Attach runs f in a new goroutine that CloseWait waits for.
// f must watch closeSignal and call done before it returns.
// If s is already closed, f is not run.
func (s *SafeClose) Attach(f func(done func(), closeSignal <-chan struct{})) {
	s.m.Lock()
	select {
	case <-s.closeSignal:
		s.m.Unlock()
		return
	default:
		s.wg.Add(1)
	}
	s.m.Unlock()

	go func() {
		f(s.wg.Done, s.closeSignal)
	}()
}

// Done notifies CloseWait that the owner is done.
// It can be called multiple times.
func (s *SafeClose) Done() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
