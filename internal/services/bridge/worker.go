// Package bridge serves facade operations over an AMQP request/reply queue.
// One request is handled at a time; replies go to the request's ReplyTo
// queue with the request id as correlation id.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/facade"
)

// Handler runs a facade request
type Handler interface {
	Handle(ctx context.Context, req facade.Request) facade.Response
}

// Replier publishes a reply to a named queue
type Replier interface {
	Reply(ctx context.Context, replyTo, correlationID string, response interface{}) error
}

// Consumer delivers messages to a handler until ctx is done
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Worker consumes requests and publishes responses
type Worker struct {
	consumer Consumer
	handler  Handler
	replier  Replier
	logger   *logger.Logger
}

// NewWorker creates a bridge worker
func NewWorker(consumer Consumer, handler Handler, replier Replier, log *logger.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		handler:  handler,
		replier:  replier,
		logger:   log,
	}
}

// Start consumes requests until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	w.logger.Info("service_started", "Bridge worker started", requestID, map[string]interface{}{
		"queue": messaging.RequestQueue,
	})

	err := w.consumer.StartConsuming(ctx, w.HandleDelivery)

	w.logger.Info("graceful_shutdown", "Closing bridge consumer", requestID, nil)
	if closeErr := w.consumer.Close(); closeErr != nil {
		w.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	return err
}

// HandleDelivery runs one request. Malformed envelopes are answered with a
// validation failure when possible and discarded. Once the request has run
// a failed reply discards the delivery, so a redelivery never repeats a
// mutation.
func (w *Worker) HandleDelivery(ctx context.Context, d amqp091.Delivery) error {
	var req facade.Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		resp := facade.Response{
			RequestID: d.CorrelationId,
			Error:     "invalid request envelope: " + err.Error(),
			ErrorKind: models.KindValidation,
		}
		if replyErr := w.reply(ctx, d, resp); replyErr != nil {
			w.logger.Error("reply_failed", "Failed to reply to malformed request", d.CorrelationId, replyErr, nil)
		}
		return fmt.Errorf("failed to parse request: %v: %w", err, messaging.ErrDiscard)
	}
	if req.RequestID == "" {
		req.RequestID = d.CorrelationId
	}

	w.logger.Debug("request_received", "Bridge request received", req.RequestID, map[string]interface{}{
		"operation": req.Operation,
		"reply_to":  d.ReplyTo,
	})

	resp := w.handler.Handle(ctx, req)
	if err := w.reply(ctx, d, resp); err != nil {
		w.logger.Error("reply_failed", "Request handled but reply was lost", req.RequestID, err, map[string]interface{}{
			"operation": req.Operation,
			"success":   resp.Success,
		})
		return fmt.Errorf("%v: %w", err, messaging.ErrDiscard)
	}
	return nil
}

func (w *Worker) reply(ctx context.Context, d amqp091.Delivery, resp facade.Response) error {
	if d.ReplyTo == "" {
		w.logger.Debug("reply_skipped", "Request has no reply queue", resp.RequestID, map[string]interface{}{
			"operation": resp.Operation,
		})
		return nil
	}
	if err := w.replier.Reply(ctx, d.ReplyTo, resp.RequestID, resp); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
