package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardAcquireRelease(t *testing.T) {
	g := NewGuard()

	require.True(t, g.Acquire(context.Background(), 10*time.Millisecond))
	g.Release()
	require.True(t, g.Acquire(context.Background(), 10*time.Millisecond))
	g.Release()
}

func TestGuardAcquireTimesOutWhenHeld(t *testing.T) {
	g := NewGuard()
	require.True(t, g.Acquire(context.Background(), 10*time.Millisecond))
	defer g.Release()

	start := time.Now()
	acquired := g.Acquire(context.Background(), 50*time.Millisecond)
	assert.False(t, acquired)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestGuardAcquireHonorsContextCancellation(t *testing.T) {
	g := NewGuard()
	require.True(t, g.Acquire(context.Background(), 10*time.Millisecond))
	defer g.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, g.Acquire(ctx, time.Minute))
}

func TestGuardReleaseOfUnheldGuardPanics(t *testing.T) {
	g := NewGuard()
	assert.Panics(t, func() { g.Release() })
}

func TestGuardTableReturnsSameGuardPerID(t *testing.T) {
	table := newGuardTable()

	a := table.guardFor("acc-1")
	b := table.guardFor("acc-2")
	assert.NotSame(t, a, b)
	assert.Same(t, a, table.guardFor("acc-1"))
}
