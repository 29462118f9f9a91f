// Package mqtt defines the outbound messaging interface used to announce
// plan changes and timeline refreshes to home-automation consumers.
package mqtt

// Publisher sends JSON payloads to a topic.
type Publisher interface {
	Publish(topic string, payload any) error
	Close()
}
