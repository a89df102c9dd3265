// internal/messaging/handler.go
package messaging

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/intakefill/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FillFunc runs one autofill pass for a record and reports the outcome.
type FillFunc func(ctx context.Context, record schemas.ClientRecord) schemas.FillResult

// Handler is the inbound message boundary. Whatever arrives, the sender gets
// an AutofillResponse back: malformed payloads, unknown actions and busy
// rejections are failed results, never transport errors.
type Handler struct {
	logger *zap.Logger
	fill   FillFunc

	// inFlight admits one fill at a time. Concurrent requests are answered
	// immediately with a busy failure instead of queueing.
	inFlight *semaphore.Weighted
}

func NewHandler(fill FillFunc, logger *zap.Logger) *Handler {
	return &Handler{
		logger:   logger.Named("messaging"),
		fill:     fill,
		inFlight: semaphore.NewWeighted(1),
	}
}

// Handle decodes one raw message and dispatches it.
func (h *Handler) Handle(ctx context.Context, raw []byte) schemas.AutofillResponse {
	var req schemas.AutofillRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.Warn("Discarding malformed request.", zap.Error(err))
		return respond(schemas.Failure("malformed request payload"))
	}
	return h.HandleRequest(ctx, req)
}

// HandleRequest dispatches an already-decoded request.
func (h *Handler) HandleRequest(ctx context.Context, req schemas.AutofillRequest) schemas.AutofillResponse {
	if req.Action != schemas.ActionAutofill {
		h.logger.Warn("Discarding request with unknown action.", zap.String("action", req.Action))
		return respond(schemas.Failure(fmt.Sprintf("unknown action %q", req.Action)))
	}
	if req.Data.IsEmpty() {
		return respond(schemas.Failure("record contains no data to fill"))
	}

	if !h.inFlight.TryAcquire(1) {
		h.logger.Info("Rejecting request, a fill is already in progress.")
		return respond(schemas.Failure("autofill already in progress"))
	}
	defer h.inFlight.Release(1)

	return respond(h.fill(ctx, req.Data))
}

func respond(result schemas.FillResult) schemas.AutofillResponse {
	return schemas.AutofillResponse{FillResult: result}
}
