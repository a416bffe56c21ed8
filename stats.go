package irbridge

import "go.uber.org/atomic"

// Stats is a snapshot of a channel's traffic counters
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
	BytesDropped  uint64 // received while the queue was full
	WriteErrors   uint64
	ReadErrors    uint64
	Connects      uint64
	Disconnects   uint64
}

// channelStats holds the live counters, updated from the caller and the
// reader goroutine without locking
type channelStats struct {
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	bytesDropped  atomic.Uint64
	writeErrors   atomic.Uint64
	readErrors    atomic.Uint64
	connects      atomic.Uint64
	disconnects   atomic.Uint64
}

// received accounts for n bytes read from the wire of which accepted made
// it into the queue
func (s *channelStats) received(n, accepted int) {
	s.bytesReceived.Add(uint64(accepted))
	if n > accepted {
		s.bytesDropped.Add(uint64(n - accepted))
	}
}

func (s *channelStats) snapshot() Stats {
	return Stats{
		BytesSent:     s.bytesSent.Load(),
		BytesReceived: s.bytesReceived.Load(),
		BytesDropped:  s.bytesDropped.Load(),
		WriteErrors:   s.writeErrors.Load(),
		ReadErrors:    s.readErrors.Load(),
		Connects:      s.connects.Load(),
		Disconnects:   s.disconnects.Load(),
	}
}
