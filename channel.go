package irbridge

import "time"

// Channel is one concrete transport behind the bridge. Every method returns
// within the channel's configured timeouts.
type Channel interface {
	// Open starts the channel. A true result from the socket channel means
	// an attempt is in progress; poll IsOpen.
	Open() bool
	Close()
	// Write returns the number of bytes written, or -1 when the channel is
	// closed or the write failed.
	Write(data []byte) int
	// Read copies queued bytes into buf and never waits for new ones.
	Read(buf []byte) int
	IsOpen() bool
	IsAvailable() bool
	HasDataAvailable() bool
	// Dispose releases the channel for good
	Dispose()

	Kind() Kind
	Stats() Stats
}

// StatusObserver receives transport change notifications from the selector
type StatusObserver interface {
	OnTransportChanged(available bool, label string)
}

// StatusObserverFunc adapts a function to StatusObserver
type StatusObserverFunc func(available bool, label string)

func (f StatusObserverFunc) OnTransportChanged(available bool, label string) {
	f(available, label)
}

// joinTimeout waits for done to close, giving up after timeout. It reports
// whether the goroutine exited in time.
func joinTimeout(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
