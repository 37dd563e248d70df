// Package tracker records product interactions and keeps the transient feedback state
// of every (product, action kind) pair.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultDwell = 1200 * time.Millisecond

var interactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "interactions_total",
		Help:      "Interaction recordings by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

// Recorder posts one interaction to the backend. Only transport failures are errors.
type Recorder interface {
	Record(ctx context.Context, kind domain.ActionKind, body domain.InteractionRequest, bearerToken string) (int, error)
}

type key struct {
	productID int
	kind      domain.ActionKind
}

type entry struct {
	status     domain.ActionStatus
	generation uint64
	timer      *time.Timer
}

// Tracker holds one entry per key. Every new recording bumps the key's generation;
// completions and dwell timers carrying an older generation are ignored.
type Tracker struct {
	recorder Recorder
	dwell    time.Duration

	mu      sync.Mutex
	entries map[key]*entry
}

func New(recorder Recorder, dwell time.Duration) *Tracker {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Tracker{
		recorder: recorder,
		dwell:    dwell,
		entries:  make(map[key]*entry),
	}
}

// Record moves the key to pending, posts the interaction and waits for it to settle.
// A missing identity is rejected with domain.ErrLoginRequired before any network call.
// Transport failures are not returned: they leave the key in the failed state.
func (t *Tracker) Record(ctx context.Context, id domain.Identity, bearerToken string, productID int, kind domain.ActionKind) (domain.ActionState, error) {
	k, gen, err := t.begin(id, productID, kind)
	if err != nil {
		return t.StateOf(productID, kind), err
	}
	return t.send(ctx, id, bearerToken, k, gen), nil
}

// RecordAsync is Record without waiting: it returns the pending state and finishes the
// request in the background, detached from ctx cancellation.
func (t *Tracker) RecordAsync(ctx context.Context, id domain.Identity, bearerToken string, productID int, kind domain.ActionKind) (domain.ActionState, error) {
	k, gen, err := t.begin(id, productID, kind)
	if err != nil {
		return t.StateOf(productID, kind), err
	}
	pending := domain.NewActionState(productID, kind, domain.StatusPending, gen)

	bg := context.WithoutCancel(ctx)
	go t.send(bg, id, bearerToken, k, gen)

	return pending, nil
}

func (t *Tracker) begin(id domain.Identity, productID int, kind domain.ActionKind) (key, uint64, error) {
	if err := domain.CheckActionGate(id); err != nil {
		interactionsTotal.WithLabelValues(string(kind), "login_required").Inc()
		return key{}, 0, err
	}
	if parsed, err := domain.ParseActionKind(string(kind)); err != nil || parsed != kind {
		return key{}, 0, domain.ErrInvalidActionKind
	}

	k := key{productID: productID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if !ok {
		e = &entry{}
		t.entries[k] = e
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.generation++
	e.status = domain.StatusPending
	return k, e.generation, nil
}

func (t *Tracker) send(ctx context.Context, id domain.Identity, bearerToken string, k key, gen uint64) domain.ActionState {
	status, err := t.recorder.Record(ctx, k.kind, domain.InteractionRequest{
		UserID:    id.String(),
		ProductID: k.productID,
	}, bearerToken)

	outcome := domain.StatusSucceeded
	log := logger.Ctx(ctx).With().
		Int("product_id", k.productID).
		Str("kind", string(k.kind)).
		Uint64("generation", gen).
		Logger()
	if err != nil {
		outcome = domain.StatusFailed
		log.Warn().Err(err).Msg("interaction_record_failed")
	} else {
		log.Debug().Int("status", status).Msg("interaction_recorded")
	}
	interactionsTotal.WithLabelValues(string(k.kind), string(outcome)).Inc()

	return t.complete(k, gen, outcome)
}

// complete applies a settled request if it is still the latest for its key and arms the
// dwell timer back to idle.
func (t *Tracker) complete(k key, gen uint64, outcome domain.ActionStatus) domain.ActionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[k]
	if e.generation != gen {
		return t.stateLocked(k)
	}
	e.status = outcome
	e.timer = time.AfterFunc(t.dwell, func() { t.decay(k, gen) })
	return t.stateLocked(k)
}

func (t *Tracker) decay(k key, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[k]
	if e.generation != gen {
		return
	}
	e.status = domain.StatusIdle
	e.timer = nil
}

// StateOf returns the current state of one key; keys never recorded are idle.
func (t *Tracker) StateOf(productID int, kind domain.ActionKind) domain.ActionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked(key{productID: productID, kind: kind})
}

// States returns the state of every action kind for a product, in display order.
func (t *Tracker) States(productID int) []domain.ActionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.ActionState, 0, len(domain.ActionKinds))
	for _, kind := range domain.ActionKinds {
		out = append(out, t.stateLocked(key{productID: productID, kind: kind}))
	}
	return out
}

func (t *Tracker) stateLocked(k key) domain.ActionState {
	e, ok := t.entries[k]
	if !ok {
		return domain.NewActionState(k.productID, k.kind, domain.StatusIdle, 0)
	}
	return domain.NewActionState(k.productID, k.kind, e.status, e.generation)
}

// Close stops every pending dwell timer.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}
