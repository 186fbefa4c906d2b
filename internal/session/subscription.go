package session

const eventBufferSize = 16

// Subscription provides event channels for one subscriber. Sends are
// non-blocking; a slow subscriber drops events rather than stalling the
// controller.
type Subscription struct {
	TrackChanged    <-chan TrackChange
	StateChanged    <-chan StateChange
	ProgressChanged <-chan ProgressChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	trackCh    chan TrackChange
	stateCh    chan StateChange
	progressCh chan ProgressChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		trackCh:    make(chan TrackChange, eventBufferSize),
		stateCh:    make(chan StateChange, eventBufferSize),
		progressCh: make(chan ProgressChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.TrackChanged = s.trackCh
	s.StateChanged = s.stateCh
	s.ProgressChanged = s.progressCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals the subscriber to stop.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendProgress(e ProgressChange) {
	select {
	case s.progressCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
