// internal/workers/meals/notify-meal-created/handler.go
package notifymealcreated

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mealbell/internal/common/audit"
	errs "mealbell/internal/common/errors"
	"mealbell/internal/common/feed"
	"mealbell/internal/common/logger"
	"mealbell/internal/common/metrics"
	"mealbell/internal/common/validation"
	"mealbell/internal/models"
)

const (
	TaskType = "notify-meal-created"

	// CollectionMeals is the change-feed collection this worker consumes.
	CollectionMeals = "meals"
)

// mealRecordSchema rejects records whose required fields are missing, empty,
// or not textual before they are mapped to a MealEvent.
const mealRecordSchema = `{
	"type": "object",
	"required": ["family_id", "created_by", "type", "datetime"],
	"properties": {
		"family_id": {"type": "string", "minLength": 1},
		"created_by": {"type": "string", "minLength": 1},
		"type": {"type": "string", "minLength": 1},
		"datetime": {"type": "string", "minLength": 1}
	}
}`

var mealRecordValidator = validation.MustCompile(mealRecordSchema)

// Handler runs the dispatch decision pipeline for created meal records:
// validation, recipient selection, geofence filtering, payload composition,
// and concurrent fan-out with independent per-recipient accounting.
type Handler struct {
	config  *Config
	members MembershipStore
	push    PushSender
	redis   *redis.Client // dedupe markers; optional
	audit   *audit.Sink   // optional
	logger  logger.Logger
}

func NewHandler(config *Config, members MembershipStore, push PushSender, redisClient *redis.Client, auditSink *audit.Sink, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		members: members,
		push:    push,
		redis:   redisClient,
		audit:   auditSink,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Collection() string {
	return CollectionMeals
}

// HandleRecord adapts one change-feed record into a dispatch invocation.
func (h *Handler) HandleRecord(ctx context.Context, rec *feed.Record) error {
	// The consumer already drops empty payloads; re-check so the handler is
	// safe to drive from other transports too.
	if len(rec.Data) == 0 {
		h.logger.Info("meal record is empty", map[string]interface{}{"key": rec.Key})
		return nil
	}

	if err := mealRecordValidator.Validate(rec.Data); err != nil {
		return errs.NewSchemaValidationFailedError(err.Error())
	}

	mealRec, err := models.DecodeMealRecord(rec.Data)
	if err != nil {
		return errs.NewFeedDecodeFailedError(err)
	}
	event := eventFromRecord(rec.Key, mealRec)

	if h.alreadyDispatched(ctx, event.MealID) {
		h.logger.Info("meal already dispatched, skipping redelivery", map[string]interface{}{
			"mealId": event.MealID,
		})
		return nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := h.Execute(ctx, event)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("failed").Inc()
		return err
	}

	h.recordOutcome(output, time.Since(start))
	h.logger.Info("notifications dispatched", map[string]interface{}{
		"mealId":     output.MealID,
		"dispatchId": output.DispatchID,
		"recipients": len(output.Results),
		"sent":       output.Sent,
		"failed":     output.Failed,
		"skipped":    output.Skipped,
	})

	h.audit.Record(ctx, output.DispatchID, output)
	return nil
}

// Execute runs the pipeline: Validating -> Selecting -> Filtering ->
// Sending -> Aggregated. It fails only for an invalid event or a failed
// membership lookup; individual delivery failures are recorded per
// recipient, never propagated.
func (h *Handler) Execute(ctx context.Context, event *MealEvent) (*Output, error) {
	// Validating: exactly once, before any selection or network work.
	if err := event.Validate(); err != nil {
		return nil, err
	}

	template, err := composeTemplate(event)
	if err != nil {
		return nil, err
	}

	// Selecting.
	candidates, err := selectCandidates(ctx, h.members, event.FamilyID, event.AuthorID)
	if err != nil {
		return nil, err
	}

	// Filtering: synchronous and cheap; each candidate judged independently.
	results := make([]models.DispatchResult, 0, len(candidates))
	var eligible []models.Recipient
	for _, candidate := range candidates {
		switch {
		case candidate.ID == event.AuthorID:
			// Selector already excludes the author; defensive re-check.
			results = append(results, models.DispatchResult{
				RecipientID: candidate.ID,
				Status:      models.StatusSkippedIsAuthor,
			})
		case !WithinDistance(candidate.LastLocation, h.config.ReferenceLocation, h.radiusKm()):
			// Also covers recipients with no location data.
			results = append(results, models.DispatchResult{
				RecipientID: candidate.ID,
				Status:      models.StatusSkippedOutOfRange,
			})
		case candidate.PushToken == "":
			results = append(results, models.DispatchResult{
				RecipientID: candidate.ID,
				Status:      models.StatusSkippedNoToken,
			})
		default:
			eligible = append(eligible, candidate)
		}
	}

	// Sending: all eligible sends run concurrently; each goroutine writes
	// only its own result slot, and one failure never blocks or aborts a
	// sibling. The coordinator waits once for the whole set.
	sendResults := make([]models.DispatchResult, len(eligible))
	var wg sync.WaitGroup
	for i, recipient := range eligible {
		wg.Add(1)
		go func(i int, recipient models.Recipient) {
			defer wg.Done()
			if err := h.push.Send(ctx, template.forRecipient(recipient.PushToken)); err != nil {
				sendResults[i] = models.DispatchResult{
					RecipientID: recipient.ID,
					Status:      models.StatusFailed,
					Reason:      err.Error(),
				}
				return
			}
			sendResults[i] = models.DispatchResult{
				RecipientID: recipient.ID,
				Status:      models.StatusSent,
			}
		}(i, recipient)
	}
	wg.Wait()
	results = append(results, sendResults...)

	// Aggregated: partial delivery failure is a completed invocation.
	output := &Output{
		DispatchID:  uuid.New().String(),
		MealID:      event.MealID,
		Results:     results,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusSent:
			output.Sent++
		case models.StatusFailed:
			output.Failed++
		default:
			output.Skipped++
		}
	}
	return output, nil
}

func (h *Handler) radiusKm() float64 {
	if h.config.RadiusKm > 0 {
		return h.config.RadiusKm
	}
	return DefaultRadiusKm
}

// alreadyDispatched marks the meal id in Redis and reports whether the
// marker already existed. Change feeds are at-least-once; without the marker
// a redelivered record would notify the family twice. Fails open: when the
// marker cannot be set the dispatch proceeds.
func (h *Handler) alreadyDispatched(ctx context.Context, mealID string) bool {
	if !h.config.DedupeEnabled || h.redis == nil {
		return false
	}

	set, err := h.redis.SetNX(ctx, "dispatched:meal:"+mealID, "1", h.config.DedupeTTL).Result()
	if err != nil {
		h.logger.Warn("dedupe marker unavailable", map[string]interface{}{
			"mealId": mealID,
			"error":  err.Error(),
		})
		return false
	}
	return !set
}

func (h *Handler) recordOutcome(output *Output, elapsed time.Duration) {
	outcome := "completed"
	if output.Failed > 0 {
		outcome = "completed_partial"
	}
	metrics.DispatchesTotal.WithLabelValues(outcome).Inc()
	metrics.DispatchDuration.Observe(elapsed.Seconds())

	for _, r := range output.Results {
		switch r.Status {
		case models.StatusSent:
			metrics.NotificationsSent.Inc()
		case models.StatusFailed:
			metrics.NotificationsFailed.Inc()
		default:
			metrics.RecipientsSkipped.WithLabelValues(string(r.Status)).Inc()
		}
	}
}
