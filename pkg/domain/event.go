package domain

// EventType はホストから届くライフサイクルイベントの種類なのだ。
type EventType int

const (
	EventGenerationStarted EventType = iota + 1
	EventStreamToken
	EventGenerationEnded
	EventGenerationStopped
	EventMessageReceived
)

func (t EventType) String() string {
	switch t {
	case EventGenerationStarted:
		return "generation_started"
	case EventStreamToken:
		return "stream_token"
	case EventGenerationEnded:
		return "generation_ended"
	case EventGenerationStopped:
		return "generation_stopped"
	case EventMessageReceived:
		return "message_received"
	default:
		return "unknown"
	}
}

// Event はホストのイベント通知1件です。
type Event struct {
	Type         EventType
	MessageIndex int
}
