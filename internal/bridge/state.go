package bridge

// State is the loop's position in the capture → publish cycle.
type State int

const (
	StateWaiting State = iota
	StateFound
	StatePredicting
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateFound:
		return "FOUND"
	case StatePredicting:
		return "PREDICTING"
	case StatePublished:
		return "PUBLISHED"
	default:
		return "UNKNOWN"
	}
}

// notice is the last console message the loop printed. Waiting and found
// notices are only printed when they differ from it.
type notice int

const (
	noticeNone notice = iota
	noticeWaiting
	noticeFound
	noticeWarning
)
