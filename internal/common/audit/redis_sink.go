package audit

import (
	"context"
	"time"
)

// StreamAppender is implemented by database.RedisClient.
type StreamAppender interface {
	AppendStream(ctx context.Context, stream string, values map[string]interface{}) (string, error)
}

// RedisStreamSink appends events to a Redis stream.
type RedisStreamSink struct {
	client StreamAppender
	stream string
}

func NewRedisStreamSink(client StreamAppender, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream}
}

func (s *RedisStreamSink) Record(ctx context.Context, e Event) error {
	_, err := s.client.AppendStream(ctx, s.stream, map[string]interface{}{
		"id":                 e.ID,
		"eventId":            e.EventID,
		"eventName":          e.EventName,
		"eventType":          e.EventType,
		"moduleId":           e.ModuleID,
		"moduleName":         e.ModuleName,
		"description":        e.Description,
		"registrationId":     e.RegistrationID,
		"workflowInstanceId": e.WorkflowInstanceID,
		"createdAt":          e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	return err
}
