package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const line = "Address: 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf, " +
	"PrivateKey: 0000000000000000000000000000000000000000000000000000000000000001, " +
	"ethereum Balance: 0.0, bsc Balance: 5.0, polygon Balance: 0.0, arbitrum Balance: 0.0"

func TestDerive(t *testing.T) {
	var out bytes.Buffer

	cmd := DeriveCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"0x0000000000000000000000000000000000000000000000000000000000000001"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf\n", out.String())

	cmd.SetArgs([]string{"zz"})
	cmd.SilenceUsage, cmd.SilenceErrors = true, true
	require.Error(t, cmd.Execute())
}

func TestParseLine(t *testing.T) {
	d, err := parseLine(line)
	require.NoError(t, err)

	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", d.Address)
	assert.Len(t, d.Balances, 4)
	assert.Equal(t, []string{"bsc"}, d.Funded())

	_, err = parseLine("garbage")
	require.ErrorIs(t, err, ErrLine)

	_, err = parseLine("Address: 0x1, PrivateKey: 01, ethereum 1.0")
	require.ErrorIs(t, err, ErrLine)
}

func TestPrintLinesHidesKeys(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, printLines(&out, []string{line}, nil))
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf ethereum=0.0 bsc=5.0 polygon=0.0 arbitrum=0.0\n",
		out.String())
	assert.NotContains(t, out.String(), "0000000000000000000000000000000000000000000000000000000000000001")

	out.Reset()
	require.NoError(t, printLines(&out, []string{line}, []string{"polygon"}))
	assert.Empty(t, out.String())
}

// list and watch read the index and the broker only, a configuration without networks must reach them.
func TestIndexCommandsNeedNoNetworks(t *testing.T) {
	t.Setenv("SCAN_NETWORKS", "")
	t.Setenv("SCAN_DBCONN", "")
	t.Setenv("SCAN_MBCONN", "")

	cmd := ListCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceUsage, cmd.SilenceErrors = true, true
	require.ErrorIs(t, cmd.Execute(), ErrNoIndex)

	cmd = WatchCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceUsage, cmd.SilenceErrors = true, true
	require.ErrorIs(t, cmd.Execute(), ErrNoBroker)
}
