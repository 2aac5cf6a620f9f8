package pipeline

import "time"

const (
	// retentionSlack is how far the stored span may exceed the window before
	// a sweep is triggered.
	retentionSlack = 1.1

	batcherFlushSize     = 500
	batcherFlushInterval = 5 * time.Second
	batcherFlushRPS      = 10

	// syncStateLastTip is the scheduler checkpoint key for the last chain tip
	// a batch was committed against.
	syncStateLastTip = "pipeline_last_tip"
)
