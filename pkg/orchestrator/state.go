package orchestrator

// State はターン単位の状態機械の状態です。
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}
