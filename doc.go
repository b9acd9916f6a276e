// Package adpscan and its sub-packages implement a scanner of randomly generated addresses on several EVM compatible
// networks.
/*
adpscan provides a single command (cmd/scanner) running a pool of workers. Each worker, until the scanner is
stopped:

1) generates a fresh key pair (package lib/keygen) and derives its address,

2) queries the native balance of the address on every configured network concurrently (package scanner, using the
chain clients of package lib/block),

3) when any balance is positive, appends a line with the address, its private key and every balance to the results
file (package lib/sink).

Architecture

The blockchain layer (package lib/block) hides the client library used for each network behind the Chain interface.
A failed or slow network never stops a worker: its balance is reported as zero and the failure is logged and counted.

Discoveries can also be saved, without their private key, to a database (package lib/store) and published to a
message broker (package lib/msg) so that other processes can follow them (scanner watch). Both are optional and
configured via the JSON config file or OS ENV variables (package lib/config).

The results file holds private keys of funded accounts. It is created readable by its owner only and must be kept
private.
*/
package adpscan
