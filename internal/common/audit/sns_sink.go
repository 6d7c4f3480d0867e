package audit

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is implemented by aws.SNSClient.
type Publisher interface {
	PublishMessage(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

// SNSSink publishes events to an SNS topic.
type SNSSink struct {
	publisher Publisher
}

func NewSNSSink(publisher Publisher) *SNSSink {
	return &SNSSink{publisher: publisher}
}

func (s *SNSSink) Record(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = s.publisher.PublishMessage(ctx, e.EventName+" "+e.ModuleName, string(body), map[string]string{
		"eventId":   e.EventID,
		"eventType": e.EventType,
	})
	if err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
