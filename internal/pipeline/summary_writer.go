package pipeline

import "proccount/pkg/models"

// SummaryWriter receives the end-of-stream summary.
type SummaryWriter interface {
	WriteSummary(summary models.Summary) error
}
