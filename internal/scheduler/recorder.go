package scheduler

// Recorder receives scheduler lifecycle events, typically for metrics.
type Recorder interface {
	JobArmed()
	JobRescheduled()
	JobSkipped()
	JobCancelled()
	JobFired()
	JobFailed()
	SetLiveJobs(n int)
}

type noopRecorder struct{}

func (noopRecorder) JobArmed()       {}
func (noopRecorder) JobRescheduled() {}
func (noopRecorder) JobSkipped()     {}
func (noopRecorder) JobCancelled()   {}
func (noopRecorder) JobFired()       {}
func (noopRecorder) JobFailed()      {}
func (noopRecorder) SetLiveJobs(int) {}
