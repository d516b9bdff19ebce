package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"habittracker/pkg/config"
	"habittracker/pkg/db"
	"habittracker/pkg/mq"
	"habittracker/pkg/outbox"
)

// ReplayOptions holds flags for the replay-events command.
type ReplayOptions struct {
	*RootOptions
	EventID int64
	Limit   int
}

// NewReplayCommand republishes outbox events that ran out of retries.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay-events",
		Short: "Republish failed outbox events",
		Long: `Republish outbox events the dispatcher parked as failed.

Example:
  habitd replay-events --limit 50
  habitd replay-events --id 1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Store.Driver != config.DriverPostgres || cfg.MQ.URL == "" {
				return errors.New("replay-events needs the postgres store and mq.url")
			}

			pool, err := db.NewConnection(cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			publisher, err := mq.NewPublisher(cfg.MQ.URL)
			if err != nil {
				return err
			}
			defer publisher.Close()

			replay := outbox.NewReplayService(outbox.NewRepository(pool), publisher, log)
			if opts.EventID > 0 {
				if err := replay.ReplayEvent(cmd.Context(), opts.EventID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", opts.EventID)
				return nil
			}

			n, err := replay.ReplayFailedEvents(cmd.Context(), opts.Limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.EventID, "id", 0, "replay a single event by id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of failed events to replay")
	return cmd
}
