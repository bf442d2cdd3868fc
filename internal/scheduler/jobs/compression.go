package jobs

import (
	"context"

	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// CompressionJob runs one chunk-compression cycle per tick.
type CompressionJob struct {
	manager  *partition.Manager
	schedule string
	log      *logger.Logger
}

func NewCompressionJob(manager *partition.Manager, schedule string, log *logger.Logger) *CompressionJob {
	return &CompressionJob{manager: manager, schedule: schedule, log: log}
}

func (j *CompressionJob) Name() string {
	return "chunk_compression"
}

func (j *CompressionJob) Schedule() string {
	return j.schedule
}

func (j *CompressionJob) Run(ctx context.Context) error {
	result, err := j.manager.RunCycle(ctx)
	if err != nil {
		return err
	}

	if result.ChunksCompressed > 0 {
		j.log.WithFields(map[string]interface{}{
			"chunks": result.ChunksCompressed,
			"rows":   result.RowsCompressed,
		}).Info("Compression cycle completed")
	}
	return nil
}
