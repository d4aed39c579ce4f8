package notifications

import "errors"

// ErrNotificationNotFound is returned when a queue item does not exist.
var ErrNotificationNotFound = errors.New("notification not found")
