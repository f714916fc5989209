// Package session implements the client side of a voice conversation:
// a state machine driving the recorder, the upload of each utterance,
// reply playback and the hands-free loop with silence detection.
package session

// State is the client session state.
type State int

const (
	// StateIdle means no capture or playback is in progress.
	StateIdle State = iota

	// StateRecording means the microphone stream is being captured.
	StateRecording

	// StateUploading means a recorded utterance is in flight.
	StateUploading

	// StatePlaying means the reply audio is being played.
	StatePlaying

	// StateError means the last turn failed; the session can restart.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateUploading:
		return "uploading"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
