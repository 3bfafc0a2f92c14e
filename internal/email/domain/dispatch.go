package domain

import (
	"fmt"
	"html"
)

// DispatchMessage is the broker payload consumed by the external sender.
type DispatchMessage struct {
	UUID        string `msgpack:"uuid" json:"uuid"`
	Email       string `msgpack:"email" json:"email"`
	Subject     string `msgpack:"subject" json:"subject"`
	Body        string `msgpack:"body" json:"body"`
	TrackingURL string `msgpack:"tracking_url" json:"tracking_url"`
}

// PixelTag returns the invisible 1x1 image tag that loads trackingURL.
func PixelTag(trackingURL string) string {
	return fmt.Sprintf(
		`<img src="%s" width="1" height="1" style="display:none;" alt="">`,
		html.EscapeString(trackingURL),
	)
}

// NewDispatchMessage builds the broker payload for a claimed request, appending
// the tracking pixel to the body when trackingURL is set.
func NewDispatchMessage(claimed *ClaimedRequest, trackingURL string) DispatchMessage {
	body := claimed.Body
	if trackingURL != "" {
		body += PixelTag(trackingURL)
	}
	return DispatchMessage{
		UUID:        claimed.ID.String(),
		Email:       claimed.RecipientEmail,
		Subject:     claimed.Subject,
		Body:        body,
		TrackingURL: trackingURL,
	}
}

// DispatchReport summarises one scheduler tick.
type DispatchReport struct {
	Claimed   int `json:"claimed"`
	Published int `json:"published"`
	// Failed counts requests marked Failed, either for an invalid recipient or
	// after publishing kept failing.
	Failed int `json:"failed"`
	// Unresolved counts requests left Processing because marking them failed did
	// not succeed. The reclaimer returns them to Pending.
	Unresolved int `json:"unresolved"`
}
