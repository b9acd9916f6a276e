// Package main: scanner service.
//
// The scanner generates fresh key pairs, queries the balance of their address on every configured network and
// appends the funded ones, private key included, to the results file. Keep the results file private.
package main

import (
	"os"

	"github.com/tarancss/adpscan/cmd/scanner/cli"
)

func main() {
	if err := cli.Setup(); err != nil {
		os.Exit(1)
	}
}
