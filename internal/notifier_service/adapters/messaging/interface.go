package messaging

import "context"

// SendRequestDetails holds the data needed to submit one chat message.
type SendRequestDetails struct {
	DeliveryID string // our correlation id for this dispatch
	Recipient  string // canonical phone, digits only, country-code prefixed
	Content    string
	ServiceID  string // provider-side routing/channel identifier
}

// SendResponseDetails is the outcome of a send attempt. Delivery failures
// (network errors, non-2xx) are reported here with Success=false rather than
// as Go errors: by the time we dispatch, the inbound event has already been
// validly consumed.
type SendResponseDetails struct {
	ProviderMessageID string
	Success           bool
	StatusCode        int    // provider HTTP status, 0 for network failures
	Detail            string // provider body or error text when not successful
}

// Sender is the interface a messaging provider adapter implements.
type Sender interface {
	Send(ctx context.Context, request SendRequestDetails) (*SendResponseDetails, error)
	GetName() string
}
