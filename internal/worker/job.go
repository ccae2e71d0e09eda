package worker

import (
	"context"

	"github.com/dandantas/disloc/internal/model"
)

// Job represents a queued disloc run
type Job struct {
	ID            string
	Request       model.Request
	CorrelationID string
	Context       context.Context
}
