// Package delivery hands rendered vale documents to their recipients.
package delivery

import (
	"context"
	"errors"
)

// ErrDeliveryUnavailable is returned when a channel cannot take the document.
// The caller may retry delivery; the document itself is not re-rendered.
var ErrDeliveryUnavailable = errors.New("delivery unavailable")

// Deliverer accepts a rendered document plus its suggested filename and
// performs the platform share. Failure is reported synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, filename string, content []byte) error
}
