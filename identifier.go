package reactor

import "github.com/google/uuid"

// newIdentifier mints a fresh 128-bit unique id, used both as a
// Connection's id and as a TimingWheel task id (spec.md §3's "any 128-bit
// unique identifier suffices" external collaborator).
func newIdentifier() string {
	return uuid.NewString()
}
