package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarancss/adpscan/lib/sink"
	"github.com/tarancss/adpscan/lib/store"
	"github.com/tarancss/adpscan/lib/store/db"
)

// ErrNoIndex is returned by list when no discovery index is configured.
var ErrNoIndex = errors.New("no discovery index configured")

// ListCmd prints the recorded discoveries, from the discovery index or from a results file. Private keys are never
// printed.
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded discoveries without their private keys",
		Args:  cobra.NoArgs,
		RunE:  list,
	}

	cmd.Flags().String("file", "", "read the given results file instead of the discovery index")
	cmd.Flags().StringSlice("net", nil, "only discoveries funded on these networks")

	return cmd
}

func list(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	nets, _ := cmd.Flags().GetStringSlice("net")

	if file != "" {
		lines, err := sink.Lines(file)
		if err != nil {
			return err
		}

		return printLines(cmd.OutOrStdout(), lines, nets)
	}

	conf, err := loadConfig(nil)
	if err != nil {
		return err
	}

	idx, err := db.New(conf.DBType, conf.DBConn)
	if err != nil {
		return err
	}
	if idx == nil {
		return ErrNoIndex
	}
	defer idx.Close()

	ds, err := idx.GetDiscoveries(nets)
	if err != nil && !errors.Is(err, store.ErrDataNotFound) {
		return err
	}

	for _, d := range ds {
		printDiscovery(cmd.OutOrStdout(), d)
	}

	return nil
}

func printDiscovery(w io.Writer, d store.Discovery) {
	var b strings.Builder

	b.WriteString(d.Address)
	for _, bal := range d.Balances {
		fmt.Fprintf(&b, " %s=%s", bal.Net, bal.Amount)
	}

	if !d.Found.IsZero() {
		b.WriteString(" found=" + d.Found.Format("2006-01-02T15:04:05Z07:00"))
	}

	fmt.Fprintln(w, b.String())
}

// printLines prints the results file lines with their private key removed.
func printLines(w io.Writer, lines, nets []string) error {
	for _, l := range lines {
		d, err := parseLine(l)
		if err != nil {
			return err
		}

		if len(nets) > 0 && !d.FundedOn(nets) {
			continue
		}

		printDiscovery(w, d)
	}

	return nil
}

// ErrLine is returned for a results file line that cannot be read.
var ErrLine = errors.New("malformed results line")

// parseLine reads a results file line, dropping its private key.
func parseLine(l string) (store.Discovery, error) {
	fields := strings.Split(l, ", ")
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "Address: ") || !strings.HasPrefix(fields[1], "PrivateKey: ") {
		return store.Discovery{}, ErrLine
	}

	d := store.Discovery{Address: strings.TrimPrefix(fields[0], "Address: ")}

	for _, f := range fields[2:] {
		net, amount, ok := strings.Cut(f, " Balance: ")
		if !ok {
			return store.Discovery{}, fmt.Errorf("%w: %s", ErrLine, d.Address)
		}

		d.Balances = append(d.Balances, store.Balance{Net: net, Amount: amount})
	}

	return d, nil
}
