package scheduler

//go:generate mockgen -source=notifier.go -destination=notifier_mock.go -package=scheduler

type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// Notification is one platform notification. Tag identifies the reminder it
// belongs to; it carries no ordering meaning.
type Notification struct {
	Title string
	Body  string
	Tag   string
}

// Notifier is the platform delivery capability. Deliver returns an opaque
// handle for the shown notification.
type Notifier interface {
	Permitted() bool
	RequestPermission() (Permission, error)
	Deliver(n Notification) (string, error)
}
