package irbridge

import (
	"sync"

	"github.com/rs/zerolog"
)

// Selector owns the three channels and decides which one is current,
// following the persisted transport kind
type Selector struct {
	store    Store
	logger   zerolog.Logger
	observer StatusObserver

	null   *NullChannel
	serial *SerialChannel
	socket *SocketChannel

	// evalMu serialises Reevaluate
	evalMu sync.Mutex

	mu        sync.RWMutex
	current   Channel
	selected  Kind
	available bool
	evaluated bool
}

// NewSelector creates a selector whose current channel is the null
// channel until the first Reevaluate
func NewSelector(store Store, cfg Config) *Selector {
	null := &NullChannel{}
	return &Selector{
		store:    store,
		logger:   cfg.Logger.With().Str("component", "selector").Logger(),
		observer: cfg.Observer,
		null:     null,
		serial:   NewSerialChannel(store, cfg),
		socket:   NewSocketChannel(store, cfg),
		current:  null,
	}
}

// Current returns the channel facade calls are routed to
func (s *Selector) Current() Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Selected returns the kind read at the last evaluation, which differs
// from Current().Kind() when the selection fell back to the null channel
func (s *Selector) Selected() Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Reevaluate reads the transport kind, installs the matching channel and
// notifies the observer when the outcome changed. The replaced channel is
// closed before the new one becomes current.
func (s *Selector) Reevaluate() Channel {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.reevaluateLocked()
}

// Open re-evaluates and opens the resulting channel while still holding
// the evaluation lock, so no concurrent Reevaluate can replace the channel
// between the choice and the open
func (s *Selector) Open() bool {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.reevaluateLocked().Open()
}

func (s *Selector) reevaluateLocked() Channel {
	kind, err := ParseKind(s.store.GetString(KeyTransportKind))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Falling back to the null channel")
	}
	next, available := s.resolve(kind)

	s.mu.RLock()
	prev, prevKind, prevAvailable, evaluated := s.current, s.selected, s.available, s.evaluated
	s.mu.RUnlock()

	if next != prev {
		prev.Close()
		s.logger.Info().
			Str("from", prev.Kind().String()).
			Str("to", next.Kind().String()).
			Msg("Transport changed")
	}

	s.mu.Lock()
	s.current = next
	s.selected = kind
	s.available = available
	s.evaluated = true
	s.mu.Unlock()

	if !evaluated || next != prev || available != prevAvailable || kind != prevKind {
		s.notify(available, kind.Label())
	}
	return next
}

func (s *Selector) resolve(kind Kind) (Channel, bool) {
	switch kind {
	case KindUSBSerial:
		if s.serial.IsAvailable() {
			return s.serial, true
		}
		return s.null, false
	case KindTCP:
		return s.socket, true
	default:
		return s.null, false
	}
}

func (s *Selector) notify(available bool, label string) {
	if s.observer == nil {
		return
	}
	s.observer.OnTransportChanged(available, label)
}

// Dispose releases every channel
func (s *Selector) Dispose() {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	s.serial.Dispose()
	s.socket.Dispose()
	s.null.Dispose()

	s.mu.Lock()
	s.current = s.null
	s.mu.Unlock()
}
