package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/rentledger/rentledger/jobs"
)

func newTestCLI(t *testing.T) *JobsCLI {
	t.Helper()
	mr := miniredis.RunT(t)
	cli, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli.Trigger(context.Background(), "nonexistent:job", "")
	require.Error(t, err)
}

func TestTriggerRejectsInvalidTenant(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli.Trigger(context.Background(), jobs.TaskTypeLedgerBackfill, "not-a-uuid")
	require.Error(t, err)
}
