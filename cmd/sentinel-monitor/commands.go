package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Sentinel/internal/mq"
	"github.com/shaiso/Sentinel/internal/monitor"
	"github.com/shaiso/Sentinel/internal/optimize"
)

// runRequestHandler выполняет команды run.requested из очереди commands.runs.
//
// Результат run фиксируется в истории и алертах, поэтому неудачный run
// подтверждается. В очередь возвращаются только команды, прерванные
// остановкой демона.
func runRequestHandler(checkFn, optimizeFn func(ctx context.Context) error, logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		if msg.Type != mq.MessageTypeRunRequested {
			return fmt.Errorf("%w: unexpected message type %q", mq.ErrPermanent, msg.Type)
		}

		req, err := mq.DecodePayload[mq.RunRequestedPayload](msg)
		if err != nil {
			return err
		}

		var run func(ctx context.Context) error
		switch req.Purpose {
		case monitor.Purpose:
			run = checkFn
		case optimize.Purpose:
			run = optimizeFn
		default:
			return fmt.Errorf("%w: unknown purpose %q", mq.ErrPermanent, req.Purpose)
		}

		logger.Info("run requested", "purpose", req.Purpose, "requested_by", req.RequestedBy, "message_id", msg.ID)

		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("requested run failed", "purpose", req.Purpose, "error", err)
		}
		return nil
	}
}
