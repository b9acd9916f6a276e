package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tarancss/adpscan/lib/msg/broker"
)

// ErrNoBroker is returned by watch when no message broker is configured.
var ErrNoBroker = errors.New("no message broker configured")

// WatchCmd consumes discovery events from the message broker and prints them.
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print discovery events published by running scanners",
		Args:  cobra.NoArgs,
		RunE:  watch,
	}

	cmd.Flags().String("queue", "scanner-watch", "durable queue bound to the discoveries exchange")

	return cmd
}

func watch(cmd *cobra.Command, _ []string) error {
	queue, _ := cmd.Flags().GetString("queue")

	conf, err := loadConfig(nil)
	if err != nil {
		return err
	}

	mb, err := broker.New(conf.MbType, conf.MbConn)
	if err != nil {
		return err
	}
	if mb == nil {
		return ErrNoBroker
	}
	defer mb.Close()

	ds, errs, err := mb.GetDiscoveries(queue)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", queue).Msg("Watching discoveries")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok {
				log.Warn().Err(err).Msg("Cannot decode discovery event")
			} else {
				errs = nil
			}
		case d, ok := <-ds:
			if !ok {
				log.Info().Msg("Broker closed the consumer")

				return nil
			}

			log.Info().Str("address", d.Address).Strs("funded", d.Funded()).Msg("Discovery")
			printDiscovery(cmd.OutOrStdout(), d)
		}
	}
}
