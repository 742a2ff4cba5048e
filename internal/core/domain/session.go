package domain

// SessionPhase is the state-machine phase of one terminal session.
// Transient only; never persisted.
type SessionPhase string

const (
	PhaseIdle       SessionPhase = "idle"
	PhaseWaiting    SessionPhase = "waiting"
	PhaseDetected   SessionPhase = "detected"
	PhaseProcessing SessionPhase = "processing"
	PhaseSuccess    SessionPhase = "success"
	PhaseFailed     SessionPhase = "failed"
)

// Terminal reports whether the phase concludes an attempt. Terminal phases
// auto-reset to waiting after a fixed delay.
func (p SessionPhase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailed
}
