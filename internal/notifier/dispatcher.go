package notifier

import (
	"net/http"
	"sync"

	"github.com/renzo-dev/accounts/shared/errors"
	"github.com/renzo-dev/accounts/shared/logger"
)

// Sender delivers one message. Implemented by Mailer.
type Sender interface {
	Send(to, displayName string, kind TemplateKind, activationURL, code, subject string) error
}

type message struct {
	to            string
	displayName   string
	kind          TemplateKind
	activationURL string
	code          string
	subject       string
}

// Dispatcher decouples request handling from SMTP delivery. Dispatch only
// schedules: the caller learns whether the message was queued, never whether
// it was delivered. Delivery failures are logged by the worker.
type Dispatcher struct {
	sender Sender
	queue  chan message
	done   chan struct{}

	mu      sync.RWMutex // guards stopped vs. close(queue)
	stopped bool
}

func NewDispatcher(sender Sender, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan message, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the background delivery worker.
func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		if err := d.sender.Send(msg.to, msg.displayName, msg.kind, msg.activationURL, msg.code, msg.subject); err != nil {
			logger.Log.Error("activation email delivery failed", "recipient", msg.to, "error", err)
		}
	}
}

// Stop drains the queue and waits for in-flight delivery to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Dispatch schedules one send attempt. It fails only when scheduling itself
// is impossible (dispatcher stopped or queue full); that failure propagates
// to the operation that triggered the notification.
func (d *Dispatcher) Dispatch(to, displayName string, kind TemplateKind, activationURL, code, subject string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return scheduleError()
	}
	select {
	case d.queue <- message{to, displayName, kind, activationURL, code, subject}:
		return nil
	default:
		return scheduleError()
	}
}

func scheduleError() *errors.ErrorWithStatusCode {
	return &errors.ErrorWithStatusCode{
		Message:    "Notification could not be scheduled",
		StatusCode: http.StatusInternalServerError,
		Kind:       errors.KindNotificationFailure,
	}
}
