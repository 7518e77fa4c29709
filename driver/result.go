package driver

// Outcome is what happened to one question during a run.
type Outcome int

const (
	// AlreadyDone questions had a record before the run started
	AlreadyDone Outcome = iota
	// Answered questions got a new persisted record
	Answered
	// MissingAsset questions were skipped because their scene is absent
	MissingAsset
	// Failed questions hit an inference or persistence error
	Failed
	// Cancelled questions were not attempted because the run stopped
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case AlreadyDone:
		return "already_done"
	case Answered:
		return "answered"
	case MissingAsset:
		return "missing_asset"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one question.
type Result struct {
	QuestionID string
	Outcome    Outcome
	Answer     string
	Err        error
}

// Summary counts the outcomes of a run. Results are in input order.
type Summary struct {
	Total        int
	AlreadyDone  int
	Answered     int
	MissingAsset int
	Failed       int
	Cancelled    int
	Results      []Result
}

func summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		switch r.Outcome {
		case AlreadyDone:
			s.AlreadyDone++
		case Answered:
			s.Answered++
		case MissingAsset:
			s.MissingAsset++
		case Failed:
			s.Failed++
		case Cancelled:
			s.Cancelled++
		}
	}
	return s
}
