// internal/service/dispatcher.go
package service

import (
	"context"

	"github.com/campaignify/xenocrm-backend/internal/model"
)

// Dispatcher attempts delivery of one message to one customer. It returns
// the resulting message status, or an error for a failed attempt. A
// transport that hands the message to a queue returns StatusSent
// ("accepted by the transport"); a transport that confirms delivery
// in-line returns StatusDelivered. Calls may fail independently; the
// engine never aborts sibling dispatches over one failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *model.Message, customer *model.Customer) (model.MessageStatus, error)
}
