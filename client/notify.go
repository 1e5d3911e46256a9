package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification kinds.
const (
	KindSuccess = "success"
	KindDanger  = "danger"
	KindInfo    = "info"
)

// notificationTTL is how long a notification stays up before expiring on its
// own.
var notificationTTL = 5 * time.Second

type Notification struct {
	ID      string
	Message string
	Kind    string
}

// Notifier renders transient on-screen messages. Each Notify call creates an
// independent notification with its own expiry timer; concurrent
// notifications stack rather than replace each other.
type Notifier struct {
	mutex  sync.Mutex
	active map[string]Notification
}

func NewNotifier() *Notifier {
	return &Notifier{active: make(map[string]Notification)}
}

// Notify posts a message of the given kind and schedules its expiry. The
// returned ID can be used to dismiss it early.
func (n *Notifier) Notify(message, kind string) string {
	notif := Notification{
		ID:      uuid.New().String(),
		Message: message,
		Kind:    kind,
	}

	n.mutex.Lock()
	n.active[notif.ID] = notif
	n.mutex.Unlock()

	// the timer is never cancelled; expiring an already-dismissed
	// notification is a no-op
	time.AfterFunc(notificationTTL, func() { n.Dismiss(notif.ID) })
	return notif.ID
}

// Dismiss removes a notification. Dismissing one that is already gone does
// nothing.
func (n *Notifier) Dismiss(id string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	delete(n.active, id)
}

// Active returns the notifications currently shown, in no particular order.
func (n *Notifier) Active() []Notification {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	notifs := make([]Notification, 0, len(n.active))
	for _, notif := range n.active {
		notifs = append(notifs, notif)
	}
	return notifs
}
