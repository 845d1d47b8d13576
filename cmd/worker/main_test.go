package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingReconciler) Reconcile(ctx context.Context) ([]domain.Inconsistency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []domain.Inconsistency{{Kind: domain.InconsistencyBusyWithoutBooking, PartnerID: "p1"}}, nil
}

func (r *countingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRunReconciler_ScansOnStart(t *testing.T) {
	r := &countingReconciler{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runReconciler(ctx, r, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
	assert.Equal(t, 1, r.count())
}

func TestRunReconciler_KeepsRunningAfterErrors(t *testing.T) {
	r := &countingReconciler{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runReconciler(ctx, r, 10*time.Millisecond)

	require.Eventually(t, func() bool { return r.count() >= 3 }, time.Second, 5*time.Millisecond)
}
