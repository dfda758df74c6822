package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/internal/service/metrics"
	pkgkafka "FxCast/pkg/kafka"
	applogger "FxCast/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// PredictionArchiver consumes prediction events from Kafka and stores them.
type PredictionArchiver struct {
	topic string
	store domrepo.PredictionStore
	log   *applogger.Logger
}

var _ pkgkafka.HookedHandler = (*PredictionArchiver)(nil)

type eventKey struct{}

func NewPredictionArchiver(topic string, store domrepo.PredictionStore, l *applogger.Logger) *PredictionArchiver {
	if l == nil {
		l = applogger.Nop()
	}
	return &PredictionArchiver{topic: topic, store: store, log: l}
}

func (h *PredictionArchiver) Topic() string { return h.topic }

// Hooks decodes and validates the payload before Handle and counts the outcome
// per model afterwards. A payload that fails validation is rejected, so the
// consumer dead-letters it without retrying.
func (h *PredictionArchiver) Hooks() []pkgkafka.ConsumerHook {
	return []pkgkafka.ConsumerHook{pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message) (context.Context, error) {
			ev, err := decodeEvent(km.Value)
			if err != nil {
				return ctx, err
			}
			return context.WithValue(ctx, eventKey{}, ev), nil
		},
		After: func(ctx context.Context, _ string, _ kafka.Message, err error) {
			model := "unknown"
			if ev, ok := ctx.Value(eventKey{}).(models.PredictionEvent); ok {
				model = ev.Model
			}
			result := "ok"
			var re *pkgkafka.RejectError
			switch {
			case errors.As(err, &re):
				result = "rejected"
			case err != nil:
				result = "error"
			}
			metrics.ArchivedPredictions.WithLabelValues(model, result).Inc()
		},
	}}
}

// Handle stores one event. It uses the event decoded by the hook when present and
// decodes payload itself otherwise.
func (h *PredictionArchiver) Handle(ctx context.Context, payload []byte) error {
	ev, ok := ctx.Value(eventKey{}).(models.PredictionEvent)
	if !ok {
		var err error
		if ev, err = decodeEvent(payload); err != nil {
			return err
		}
	}
	if err := h.store.SavePredictions(ctx, []models.PredictionEvent{ev}); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	h.log.Debug("prediction archived",
		applogger.String("run_id", ev.RunID),
		applogger.String("model", ev.Model),
		applogger.String("scenario", string(ev.Scenario)))
	return nil
}

func decodeEvent(payload []byte) (models.PredictionEvent, error) {
	var ev models.PredictionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, pkgkafka.Reject("ERR_DECODE", fmt.Errorf("decode prediction event: %w", err))
	}
	if ev.RunID == "" {
		return ev, pkgkafka.Reject("ERR_INVALID_EVENT", errors.New("prediction event without run_id"))
	}
	if _, err := models.ParseScenario(string(ev.Scenario)); err != nil {
		return ev, pkgkafka.Reject("ERR_INVALID_EVENT", err)
	}
	return ev, nil
}
