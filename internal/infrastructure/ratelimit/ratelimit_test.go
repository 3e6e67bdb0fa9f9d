package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstRequestPassesImmediately(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), "a.example"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDistinctDomainsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), "a.example"))
	require.NoError(t, p.Wait(context.Background(), "b.example"))
	require.NoError(t, p.Wait(context.Background(), "c.example"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSecondRequestWaitsOutDelay(t *testing.T) {
	t.Parallel()

	const delay = 50 * time.Millisecond
	p := New(delay)
	require.NoError(t, p.Wait(context.Background(), "a.example"))

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), "a.example"))
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestCanceledContextAborts(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	require.NoError(t, p.Wait(context.Background(), "a.example"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx, "a.example"))
}

func TestEmptyDomainPassesThrough(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	require.NoError(t, p.Wait(context.Background(), ""))
	require.NoError(t, p.Wait(context.Background(), ""))
}
