package batch

import "pixpress/internal/pipeline"

// Summary aggregates batch results. Byte totals only count written images.
type Summary struct {
	Total         int
	Succeeded     int
	Skipped       int
	Failed        int
	OriginalBytes int64
	NewBytes      int64
}

func Summarize(results []pipeline.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case !r.Success:
			s.Failed++
		case IsSkipped(r):
			s.Skipped++
		default:
			s.Succeeded++
			s.OriginalBytes += r.OriginalSize
			s.NewBytes += r.NewSize
		}
	}
	return s
}

// Saved is the byte difference across written images; negative means growth.
func (s Summary) Saved() int64 {
	return s.OriginalBytes - s.NewBytes
}

// Ratio uses the same sign convention as a single result.
func (s Summary) Ratio() float32 {
	return pipeline.CompressionRatio(s.OriginalBytes, s.NewBytes)
}

func IsSkipped(r pipeline.Result) bool {
	return r.Success && r.OutputPath == SkippedOutputPath
}
