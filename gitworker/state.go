package gitworker

// State is a repository's position in the Git worker's data-level state
// machine: UNKNOWN -> CLONING -> REFS -> SHALLOW -> FULL, reverting to
// UNKNOWN on fatal corruption.
type State int

const (
	StateUnknown State = iota
	StateCloning
	StateRefs
	StateShallow
	StateFull
)

func (s State) String() string {
	switch s {
	case StateCloning:
		return "CLONING"
	case StateRefs:
		return "REFS"
	case StateShallow:
		return "SHALLOW"
	case StateFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}
