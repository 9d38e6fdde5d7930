package embeddings

import (
	"time"

	"go.uber.org/zap"
)

// Metrics logs embedding request outcomes. dex has no telemetry backend to
// export histograms to, so generation stats go through the structured
// logger at debug level instead of an OTel meter.
type Metrics struct {
	logger *zap.Logger
}

// NewMetrics builds a Metrics that logs through logger.
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{logger: logger}
}

// RecordGeneration logs one embedding request: model, operation, how long
// it took, how many texts were in the batch, and whether it failed.
func (m *Metrics) RecordGeneration(model, operation string, duration time.Duration, batchSize int, err error) {
	fields := []zap.Field{
		zap.String("model", model),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Int("batch_size", batchSize),
	}
	if err != nil {
		m.logger.Warn("embedding request failed", append(fields, zap.Error(err))...)
		return
	}
	m.logger.Debug("embedding request completed", fields...)
}
