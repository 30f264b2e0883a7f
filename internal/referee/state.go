package referee

// State is the run lifecycle state.
type State int

const (
	StateInit State = iota
	StateSetup
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSetup:
		return "setup"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}
