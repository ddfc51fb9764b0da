// Package notify delivers toast notifications from workflows to the UI.
package notify

import (
	"time"

	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/pubsub"
)

// Type is the notification severity.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

// Notification is one toast.
type Notification struct {
	Type     Type
	Title    string
	Message  string
	Duration time.Duration
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(n Notification)
}

// Service publishes notifications on a broker the UI subscribes to.
type Service struct {
	broker          *pubsub.Broker[Notification]
	defaultDuration time.Duration
}

// NewService creates a Service. Notifications without a Duration use
// defaultDuration.
func NewService(defaultDuration time.Duration) *Service {
	return &Service{
		broker:          pubsub.NewBroker[Notification](),
		defaultDuration: defaultDuration,
	}
}

// Broker exposes the underlying broker for listeners.
func (s *Service) Broker() *pubsub.Broker[Notification] { return s.broker }

// Notify publishes n.
func (s *Service) Notify(n Notification) {
	if n.Duration <= 0 {
		n.Duration = s.defaultDuration
	}
	log.Debug(log.CatUI, "notification", "type", string(n.Type), "title", n.Title, "message", n.Message)
	s.broker.Publish(n)
}

// Close shuts the broker down.
func (s *Service) Close() { s.broker.Close() }

// Success notifies a success.
func Success(n Notifier, title, message string) {
	n.Notify(Notification{Type: TypeSuccess, Title: title, Message: message})
}

// Error notifies a failure.
func Error(n Notifier, title, message string) {
	n.Notify(Notification{Type: TypeError, Title: title, Message: message})
}

// Info notifies neutral information.
func Info(n Notifier, title, message string) {
	n.Notify(Notification{Type: TypeInfo, Title: title, Message: message})
}

// Recorder collects notifications in memory. Useful in tests and for
// headless commands.
type Recorder struct {
	Notifications []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.Notifications = append(r.Notifications, n)
}

// Last returns the most recent notification, or the zero value.
func (r *Recorder) Last() Notification {
	if len(r.Notifications) == 0 {
		return Notification{}
	}
	return r.Notifications[len(r.Notifications)-1]
}
