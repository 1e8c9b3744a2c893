package notify

import (
	"context"

	"github.com/google/uuid"
)

// Kind names one outbound patient notification.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindReschedule   Kind = "reschedule"
	KindReminder     Kind = "reminder"
)

// Message is one queued notification job. The payload is only a reference;
// workers reload the appointment so the text reflects the freshest state.
type Message struct {
	Kind          Kind
	ClinicID      uuid.UUID
	AppointmentID uuid.UUID
}

// Queue is an in-memory buffered channel between the booking path and the
// notification workers. Sends never block the caller.
type Queue struct {
	ch chan Message
}

// NewQueue creates a Queue with the provided buffer capacity.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 128
	}
	return &Queue{ch: make(chan Message, buffer)}
}

// Enqueue offers a message to the workers. A full buffer drops the message and
// returns false; the booking itself must never fail because notifications are
// backed up.
func (q *Queue) Enqueue(msg Message) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		return false
	}
}

// Dequeue blocks until a message is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (Message, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return Message{}, false
	case msg := <-q.ch:
		return msg, true
	}
}

// Len reports the number of buffered messages.
func (q *Queue) Len() int {
	return len(q.ch)
}
