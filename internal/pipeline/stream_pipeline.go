package pipeline

import (
	"errors"
	"fmt"
	"io"
	"time"

	"proccount/internal/graph/process"
	"proccount/internal/logger"
	"proccount/internal/metrics"
	"proccount/internal/transform/cadets"
	"proccount/pkg/models"
)

// Options tunes a StreamPipeline.
type Options struct {
	// ProgressEvery logs a progress line every N records; 0 disables it.
	ProgressEvery int64
	Metrics       *metrics.Metrics
}

// StreamPipeline folds every record of a source into a process counter.
type StreamPipeline struct {
	source  Source
	counter *process.Counter
	writer  SummaryWriter
	opts    Options
}

// NewStreamPipeline creates a pipeline.
func NewStreamPipeline(source Source, counter *process.Counter, writer SummaryWriter, opts Options) *StreamPipeline {
	if counter == nil {
		counter = process.NewCounter()
	}
	return &StreamPipeline{
		source:  source,
		counter: counter,
		writer:  writer,
		opts:    opts,
	}
}

// Run consumes the whole source in order. The summary is written only when
// the source ends cleanly; any error aborts the run with nothing written.
func (p *StreamPipeline) Run() (models.Summary, error) {
	start := time.Now()
	logger.Infof("Stream pipeline started")

	var prev models.Summary
	for {
		raw, err := p.source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.syncBytes()
			return models.Summary{}, err
		}

		ordinal := prev.EventsProcessed + 1
		event, err := cadets.Parse(raw)
		if err != nil {
			p.syncBytes()
			return models.Summary{}, fmt.Errorf("record %d: %w", ordinal, err)
		}

		p.counter.Observe(event)
		cur := p.counter.Summary()
		if p.opts.Metrics != nil {
			p.opts.Metrics.Observe(prev, cur)
			p.syncBytes()
		}
		prev = cur

		if p.opts.ProgressEvery > 0 && cur.EventsProcessed%p.opts.ProgressEvery == 0 {
			logger.Infof("Progress: events=%d nodes=%d unique_ids=%d bytes=%d elapsed=%s",
				cur.EventsProcessed, cur.ProcessNodesObserved, cur.UniqueIDsObserved, p.source.BytesRead(), logger.Since(start))
		}
	}

	p.syncBytes()
	summary := p.counter.Summary()
	logger.Infof("Stream pipeline finished: events=%d nodes=%d unique_ids=%d elapsed=%s",
		summary.EventsProcessed, summary.ProcessNodesObserved, summary.UniqueIDsObserved, logger.Since(start))

	if p.writer != nil {
		if err := p.writer.WriteSummary(summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (p *StreamPipeline) syncBytes() {
	if p.opts.Metrics != nil {
		p.opts.Metrics.SetBytesRead(p.source.BytesRead())
	}
}
