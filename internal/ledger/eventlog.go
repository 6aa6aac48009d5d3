package ledger

import (
	"context"
	"sync"

	"fundledger/internal/domain"
)

const maxEventPage = 500

// EventLog is the append-only notification stream. Persisted history is read
// through the store; live subscribers receive events right after commit.
type EventLog struct {
	reader domain.EventReader

	mu      sync.Mutex
	lastSeq uint64
	subs    map[int]chan domain.Event
	nextID  int
}

func newEventLog(reader domain.EventReader, lastSeq uint64) *EventLog {
	return &EventLog{
		reader:  reader,
		lastSeq: lastSeq,
		subs:    make(map[int]chan domain.Event),
	}
}

// LastSeq returns the sequence number of the newest committed event.
func (e *EventLog) LastSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeq
}

// Since returns up to limit persisted events with Seq > afterSeq.
func (e *EventLog) Since(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > maxEventPage {
		limit = maxEventPage
	}
	return e.reader.EventsSince(ctx, afterSeq, limit)
}

// Subscribe registers a live subscriber. The channel is closed when cancel is
// called or when the subscriber falls more than buffer events behind; a closed
// subscriber resumes with Since from the last sequence it saw.
func (e *EventLog) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan domain.Event, buffer)

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// nextSeq is called under the ledger write lock, so the value cannot be taken
// twice before publish.
func (e *EventLog) nextSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeq + 1
}

func (e *EventLog) publish(event domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastSeq = event.Seq
	for id, ch := range e.subs {
		select {
		case ch <- event:
		default:
			delete(e.subs, id)
			close(ch)
		}
	}
}
