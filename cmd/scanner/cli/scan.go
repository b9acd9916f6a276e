package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tarancss/adpscan/lib/block"
	"github.com/tarancss/adpscan/lib/config"
	"github.com/tarancss/adpscan/lib/keygen"
	"github.com/tarancss/adpscan/lib/metrics"
	"github.com/tarancss/adpscan/lib/msg/broker"
	"github.com/tarancss/adpscan/lib/sink"
	"github.com/tarancss/adpscan/lib/store/db"
	"github.com/tarancss/adpscan/scanner"
)

// ScanFlags adds the flags of the scan to cmd.
func ScanFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "number of workers, asked on startup when not configured")
	cmd.Flags().StringP("output", "o", "", "results file, overrides the configuration")
	cmd.Flags().BoolP("metrics", "m", false, "serve Prometheus metrics at "+defaultMetricsAddr+" unless configured")
	cmd.Flags().BoolP("quiet", "q", false, "do not echo discoveries to stdout")
}

func scan(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig((*config.ScanConfig).Validate)
	if err != nil {
		return err
	}

	if err = scanOverrides(cmd, &conf); err != nil {
		return err
	}

	if conf.Workers == 0 {
		if conf.Workers, err = config.PromptWorkers(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	log.Info().Int("workers", conf.Workers).Str("output", conf.Output).Str("keygen", conf.KeyGen).
		Strs("nets", conf.NetworkNames()).Msg("Configuration")

	// capture CTRL+C or docker's SIGTERM for graceful exit
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load all blockchains
	chains, err := block.Init(ctx, conf.Networks)
	if err != nil {
		return err
	}
	defer block.End(chains)

	log.Info().Msg("Blockchain clients loaded")

	gen, err := keygen.New(conf.KeyGen, nil)
	if err != nil {
		return err
	}

	out, err := sink.Open(conf.Output)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error().Err(err).Msg("Closing results file")
		}
	}()

	opts := []scanner.Option{scanner.WithRetry(conf.SinkRetries, conf.SinkRetryDelay.Std())}
	if !conf.Quiet {
		opts = append(opts, scanner.WithEcho(cmd.OutOrStdout()))
	}

	// connect to the discovery index
	idx, err := db.New(conf.DBType, conf.DBConn)
	if err != nil {
		return err
	}
	if idx != nil {
		log.Info().Str("dbtype", conf.DBType).Msg("Connected to discovery index")
		opts = append(opts, scanner.WithIndex(idx))

		defer idx.Close()
	}

	// load message broker
	mb, err := broker.New(conf.MbType, conf.MbConn)
	if err != nil {
		return err
	}
	if mb != nil {
		opts = append(opts, scanner.WithBroker(mb))

		defer func() {
			if err := mb.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing message broker")
			}
		}()
	}

	// load Prometheus monitor
	if conf.Metrics != "" {
		defer metrics.Serve(conf.Metrics)()
	}

	p := scanner.NewPool(gen, scanner.NewScanner(chains, conf.RPCTimeout.Std()), out, opts...)

	start := time.Now()
	if err = p.Start(ctx, conf.Workers); err != nil {
		return err
	}

	err = p.Wait()
	summary(cmd, p.Stats(), time.Since(start), conf.Output)

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// scanOverrides applies the command line flags to conf.
func scanOverrides(cmd *cobra.Command, conf *config.ScanConfig) error {
	f := cmd.Flags()

	if f.Changed("workers") {
		w, _ := f.GetInt("workers")
		if w <= 0 {
			return fmt.Errorf("%w: %d", config.ErrWorkers, w)
		}
		conf.Workers = w
	}

	if f.Changed("output") {
		conf.Output, _ = f.GetString("output")
		if conf.Output == "" {
			return config.ErrMissingOutput
		}
	}

	if m, _ := f.GetBool("metrics"); m && conf.Metrics == "" {
		conf.Metrics = defaultMetricsAddr
	}

	if q, _ := f.GetBool("quiet"); q {
		conf.Quiet = true
	}

	return nil
}

func summary(cmd *cobra.Command, st scanner.Stats, elapsed time.Duration, output string) {
	log.Info().Uint64("candidates", st.Candidates).Uint64("discoveries", st.Discoveries).
		Dur("elapsed", elapsed).Msg("Scan finished")

	fmt.Fprintf(cmd.ErrOrStderr(), "Scanned %d addresses in %s, %d funded recorded to %s\n",
		st.Candidates, elapsed.Round(time.Second), st.Discoveries, output)
}
