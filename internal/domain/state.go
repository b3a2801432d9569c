package domain

// State is the lifecycle state shared by soft-deletable resources.
type State string

const (
	StateUnspecified State = "STATE_UNSPECIFIED"
	StateActive      State = "ACTIVE"
	StateDeleted     State = "DELETED"
)
