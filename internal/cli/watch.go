package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/depsgraph/internal/mq"
)

// NewWatchCmd создаёт команду, печатающую события графов из RabbitMQ.
func NewWatchCmd(env *Env) *cobra.Command {
	var (
		amqpURL string
		failed  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print graph events published by depsgraphd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()
			ctx := cmd.Context()

			if amqpURL == "" {
				amqpURL = mq.URLFromEnv()
			}
			broker, err := mq.Dial(amqpURL, env.logger())
			if err != nil {
				return err
			}
			defer broker.Close()

			if err := mq.SetupTopology(ctx, broker); err != nil {
				return err
			}

			queue := mq.QueueGraphsValidated
			if failed {
				queue = mq.QueueGraphsFailed
			}

			sub := mq.NewSubscriber(broker, env.logger(), mq.SubscriberConfig{
				Queue:    queue,
				Handlers: watchHandlers(out),
			})

			out.Success(fmt.Sprintf("Watching %s, press Ctrl+C to stop", queue))
			err = sub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp", "", "RabbitMQ URL (default $RABBITMQ_URL)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Watch graph.failed events instead of graph.validated")

	return cmd
}

// watchHandlers печатает каждое событие одной строкой или JSON-объектом.
func watchHandlers(out *Output) mq.Handlers {
	emit := func(meta mq.EventMeta, payload any, line string) error {
		if out.JSONMode() {
			return out.JSON(mq.Message{ID: meta.ID, Type: meta.Type, Payload: payload, Timestamp: meta.Timestamp})
		}
		out.Lines([]string{line})
		return nil
	}

	return mq.Handlers{
		Validated: func(_ context.Context, meta mq.EventMeta, p mq.GraphValidatedPayload) error {
			return emit(meta, p, fmt.Sprintf("%s validated %s snapshot=%s fingerprint=%s operations=%d relations=%d",
				eventTime(meta), p.Scene, p.SnapshotID, shortFingerprint(p.Fingerprint), p.Operations, p.Relations))
		},
		Failed: func(_ context.Context, meta mq.EventMeta, p mq.GraphFailedPayload) error {
			scene := p.Scene
			if scene == "" {
				scene = p.Path
			}
			return emit(meta, p, fmt.Sprintf("%s failed %s: %s", eventTime(meta), scene, p.Error))
		},
	}
}

func eventTime(meta mq.EventMeta) string {
	return meta.Timestamp.Local().Format("15:04:05")
}
