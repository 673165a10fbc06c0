package pipeline

// Stage is a step of a single optimisation run.
type Stage int

const (
	StageLoading Stage = iota
	StageResizing
	StageCompressing
	StageWriting
	StageDone
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "loading"
	case StageResizing:
		return "resizing"
	case StageCompressing:
		return "compressing"
	case StageWriting:
		return "writing"
	case StageDone:
		return "done"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to the optional progress sink. Message is set for StageError.
type Event struct {
	Stage   Stage
	Message string
}

// Result describes one processed image.
type Result struct {
	Success          bool    `json:"success"`
	OriginalSize     int64   `json:"originalSize"`
	NewSize          int64   `json:"newSize"`
	CompressionRatio float32 `json:"compressionRatio"`
	OutputPath       string  `json:"outputPath"`
	Error            string  `json:"error,omitempty"`
}

// Failed wraps err as an unsuccessful result.
func Failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// CompressionRatio is the percentage saved: positive when the output is
// smaller, negative when it grew, and 0 for an empty original.
func CompressionRatio(original, encoded int64) float32 {
	if original <= 0 {
		return 0
	}
	if encoded <= original {
		return float32(original-encoded) / float32(original) * 100
	}
	return -(float32(encoded-original) / float32(original) * 100)
}

// emit delivers ev without blocking; a full or nil sink drops it.
func emit(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
