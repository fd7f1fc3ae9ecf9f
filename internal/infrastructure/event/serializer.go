package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/storefront/merchandising/internal/domain/shared"
)

// Envelope is the wire form of a domain event sent to other services
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	MerchantID    string          `json:"merchant_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode wraps event in an Envelope and marshals it to JSON
func Encode(event shared.DomainEvent, source string) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return json.Marshal(Envelope{
		ID:            event.EventID().String(),
		Type:          event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID().String(),
		MerchantID:    event.MerchantID().String(),
		OccurredAt:    event.OccurredAt().UTC(),
		Source:        source,
		Payload:       payload,
	})
}

// RoutingKey derives a dotted topic key from an event type,
// e.g. CategoryVisibilityChanged becomes category.visibility.changed.
func RoutingKey(eventType string) string {
	var b strings.Builder
	for i, r := range eventType {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('.')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
