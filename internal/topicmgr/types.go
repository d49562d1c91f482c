package topicmgr

import (
	"time"

	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
)

// Entry represents a topic entry in the registry with metadata
type Entry struct {
	Identity  topic.Identity   `json:"-"`
	Topic     string           `json:"topic"`
	Processor pubsub.Processor `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// RegistryStats provides statistics about the registry
type RegistryStats struct {
	TotalTopics int            `json:"total_topics"`
	BareTopics  int            `json:"bare_topics"`
	KeyedTopics int            `json:"keyed_topics"`
	Observers   int            `json:"observers"`
	ByType      map[string]int `json:"by_type"`
}

// TopicError represents structured errors in the topic registry
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// ErrorType defines the type of registry error
type ErrorType string

const (
	ErrorInvalidIdentity ErrorType = "invalid_identity"
	ErrorCreateFailed    ErrorType = "create_failed"
	ErrorCloseFailed     ErrorType = "close_failed"
)

// Error implements the error interface
func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TopicError) Unwrap() error {
	return e.Cause
}
