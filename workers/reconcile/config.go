package reconcile

import "github.com/jonboulle/clockwork"

// DefaultRootName is the mirror folder holding one subfolder per project
const DefaultRootName = "FLowTrack Projects"

// Config holds reconciliation engine configuration
type Config struct {
	RootName string          // Title of the mirror root folder
	Clock    clockwork.Clock // Defaults to the real clock
}
