package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, kind domain.ActionKind, body domain.InteractionRequest, bearerToken string) (int, error) {
	args := m.Called(ctx, kind, body, bearerToken)
	return args.Int(0), args.Error(1)
}

// gatedRecorder blocks each call until its own release channel is closed.
type gatedRecorder struct {
	mu      sync.Mutex
	calls   []chan error
	started chan struct{}
}

func newGatedRecorder() *gatedRecorder {
	return &gatedRecorder{started: make(chan struct{}, 16)}
}

func (g *gatedRecorder) Record(ctx context.Context, kind domain.ActionKind, body domain.InteractionRequest, bearerToken string) (int, error) {
	ch := make(chan error, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.mu.Unlock()
	g.started <- struct{}{}
	if err := <-ch; err != nil {
		return 0, err
	}
	return 200, nil
}

func (g *gatedRecorder) release(i int, err error) {
	g.mu.Lock()
	ch := g.calls[i]
	g.mu.Unlock()
	ch <- err
}

const testDwell = 60 * time.Millisecond

func TestRecord_LoginRequired(t *testing.T) {
	rec := new(mockRecorder)
	tr := New(rec, testDwell)
	defer tr.Close()

	for _, kind := range domain.ActionKinds {
		st, err := tr.Record(context.Background(), domain.Anonymous, "", 42, kind)
		assert.ErrorIs(t, err, domain.ErrLoginRequired)
		assert.Equal(t, domain.StatusIdle, st.Status)
		assert.Equal(t, domain.StatusIdle, tr.StateOf(42, kind).Status)
	}

	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecord_InvalidKind(t *testing.T) {
	rec := new(mockRecorder)
	tr := New(rec, testDwell)
	defer tr.Close()

	_, err := tr.Record(context.Background(), "3", "tok", 1, domain.ActionKind("share"))
	assert.ErrorIs(t, err, domain.ErrInvalidActionKind)
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecord_SucceededThenIdle(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, domain.ActionLike, domain.InteractionRequest{UserID: "3", ProductID: 42}, "tok").
		Return(500, nil).Once()

	tr := New(rec, testDwell)
	defer tr.Close()

	st, err := tr.Record(context.Background(), "3", "tok", 42, domain.ActionLike)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, st.Status, "HTTP status is not inspected")
	assert.Equal(t, "Liked!", st.Label)
	assert.Equal(t, domain.StatusSucceeded, tr.StateOf(42, domain.ActionLike).Status)

	assert.Eventually(t, func() bool {
		return tr.StateOf(42, domain.ActionLike).Status == domain.StatusIdle
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Like", tr.StateOf(42, domain.ActionLike).Label)

	rec.AssertExpectations(t)
}

func TestRecord_TransportFailureIsFailedThenIdle(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, domain.ActionPurchase, mock.Anything, "tok").Return(0, domain.ErrUnavailable)

	tr := New(rec, testDwell)
	defer tr.Close()

	st, err := tr.Record(context.Background(), "3", "tok", 9, domain.ActionPurchase)
	require.NoError(t, err, "transport failures are not surfaced as errors")
	assert.Equal(t, domain.StatusFailed, st.Status)

	assert.Eventually(t, func() bool {
		return tr.StateOf(9, domain.ActionPurchase).Status == domain.StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestRecord_KeysAreIndependent(t *testing.T) {
	g := newGatedRecorder()
	tr := New(g, testDwell)
	defer tr.Close()

	_, err := tr.RecordAsync(context.Background(), "3", "tok", 1, domain.ActionView)
	require.NoError(t, err)
	<-g.started
	_, err = tr.RecordAsync(context.Background(), "3", "tok", 1, domain.ActionLike)
	require.NoError(t, err)
	<-g.started

	g.release(0, nil)
	assert.Eventually(t, func() bool {
		return tr.StateOf(1, domain.ActionView).Status == domain.StatusSucceeded
	}, time.Second, time.Millisecond)
	assert.Equal(t, domain.StatusPending, tr.StateOf(1, domain.ActionLike).Status)
	assert.Equal(t, domain.StatusIdle, tr.StateOf(2, domain.ActionView).Status)

	assert.Eventually(t, func() bool {
		return tr.StateOf(1, domain.ActionView).Status == domain.StatusIdle
	}, time.Second, time.Millisecond)
	assert.Equal(t, domain.StatusPending, tr.StateOf(1, domain.ActionLike).Status, "dwell of another key does not touch this one")

	g.release(1, nil)
	assert.Eventually(t, func() bool {
		return tr.StateOf(1, domain.ActionLike).Status == domain.StatusSucceeded
	}, time.Second, time.Millisecond)
}

func TestRecord_LaterCallSupersedes(t *testing.T) {
	g := newGatedRecorder()
	tr := New(g, testDwell)
	defer tr.Close()

	first, err := tr.RecordAsync(context.Background(), "3", "tok", 5, domain.ActionView)
	require.NoError(t, err)
	<-g.started
	second, err := tr.RecordAsync(context.Background(), "3", "tok", 5, domain.ActionView)
	require.NoError(t, err)
	<-g.started
	assert.Greater(t, second.Generation, first.Generation)
	assert.True(t, second.Disabled)
	assert.Equal(t, "...", second.Label)

	// the later call settles first; the earlier one resolves afterwards
	g.release(1, nil)
	assert.Eventually(t, func() bool {
		return tr.StateOf(5, domain.ActionView).Status == domain.StatusSucceeded
	}, time.Second, time.Millisecond)

	g.release(0, domain.ErrUnavailable)
	time.Sleep(10 * time.Millisecond)
	st := tr.StateOf(5, domain.ActionView)
	assert.Equal(t, domain.StatusSucceeded, st.Status, "stale completion must not regress the state")
	assert.Equal(t, second.Generation, st.Generation)

	assert.Eventually(t, func() bool {
		return tr.StateOf(5, domain.ActionView).Status == domain.StatusIdle
	}, time.Second, time.Millisecond)
}

func TestRecord_NewPendingCancelsDwell(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, domain.ActionLike, mock.Anything, mock.Anything).Return(200, nil).Once()

	g := newGatedRecorder()
	tr := New(rec, 40*time.Millisecond)
	defer tr.Close()

	_, err := tr.Record(context.Background(), "3", "tok", 8, domain.ActionLike)
	require.NoError(t, err)

	// second call hangs: the first call's dwell timer must not flip it to idle
	tr.recorder = g
	_, err = tr.RecordAsync(context.Background(), "3", "tok", 8, domain.ActionLike)
	require.NoError(t, err)
	<-g.started

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, domain.StatusPending, tr.StateOf(8, domain.ActionLike).Status)

	g.release(0, nil)
	assert.Eventually(t, func() bool {
		return tr.StateOf(8, domain.ActionLike).Status == domain.StatusSucceeded
	}, time.Second, time.Millisecond)
}

func TestStates_AllKindsInOrder(t *testing.T) {
	tr := New(new(mockRecorder), 0)
	defer tr.Close()

	states := tr.States(11)
	require.Len(t, states, 3)
	for i, kind := range domain.ActionKinds {
		assert.Equal(t, kind, states[i].Kind)
		assert.Equal(t, 11, states[i].ProductID)
		assert.Equal(t, domain.StatusIdle, states[i].Status)
		assert.False(t, states[i].Disabled)
	}
	assert.Equal(t, DefaultDwell, tr.dwell)
}
