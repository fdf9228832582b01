package usecase

// Recorder receives loop outcomes for metrics.
type Recorder interface {
	SearchAttempt(result string)
	SyncTick(result string)
	MatchFinished(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) SearchAttempt(string) {}
func (noopRecorder) SyncTick(string)      {}
func (noopRecorder) MatchFinished(string) {}

func orNoop(recorder Recorder) Recorder {
	if recorder == nil {
		return noopRecorder{}
	}

	return recorder
}
