package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
)

var (
	// ErrClosed is returned by Submit once Shutdown has been called.
	ErrClosed = errors.New("dispatch: engine closed")
	// ErrInvalidRequest is returned for requests that can never be served.
	ErrInvalidRequest = errors.New("dispatch: invalid request")
	// ErrShutdownTimeout reports that in-flight deliveries had to be interrupted.
	ErrShutdownTimeout = errors.New("dispatch: shutdown grace period exceeded")
)

const idlePollInterval = 10 * time.Millisecond

// Options groups the optional collaborators of an Engine.
type Options struct {
	Config Config
	// Depot is where new requests wait. Defaults to "Warehouse".
	Depot    model.Location
	Selector CarrierSelector
	Observer Observer
	Sink     metrics.MetricsSink
	Logger   logger.Logger
}

// State is a consistent view of every request and carrier.
type State struct {
	Carriers  []model.CarrierSnapshot
	Pending   []model.RequestSnapshot
	Assigned  []model.RequestSnapshot
	Delivered []model.RequestSnapshot
}

type delivery struct {
	id         string
	request    *model.Request
	carrier    *model.Carrier
	origin     model.Location
	assignedAt time.Time
}

// Engine pairs queued delivery requests with the nearest eligible carrier and
// simulates each delivery. The pending queue, the carrier roster and every
// request are guarded by a single mutex; sleeping never happens under it.
type Engine struct {
	router   routing.Router
	carriers []*model.Carrier
	depot    model.Location
	cfg      Config
	selector CarrierSelector
	observer Observer
	sink     metrics.MetricsSink
	log      logger.Logger

	pool   errgroup.Group
	tasks  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	queue     []*model.Request
	delivered []*model.Request
	inflight  int
	running   bool
	closed    bool
	seq       uint64
	nextID    int
	// submitted indexes every accepted request by ID.
	submitted map[string]*model.Request

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewEngine creates an engine serving the given roster over router.
func NewEngine(router routing.Router, carriers []*model.Carrier, opts Options) (*Engine, error) {
	if router == nil {
		return nil, fmt.Errorf("dispatch: nil router")
	}
	if len(carriers) == 0 {
		return nil, fmt.Errorf("dispatch: no carriers")
	}
	seen := make(map[string]bool, len(carriers))
	for _, c := range carriers {
		if c == nil {
			return nil, fmt.Errorf("dispatch: nil carrier")
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		if seen[c.ID()] {
			return nil, fmt.Errorf("dispatch: duplicate carrier %s", c.ID())
		}
		seen[c.ID()] = true
	}
	cfg := opts.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	e := &Engine{
		router:    router,
		carriers:  append([]*model.Carrier(nil), carriers...),
		depot:     opts.Depot,
		cfg:       cfg,
		selector:  opts.Selector,
		observer:  opts.Observer,
		sink:      opts.Sink,
		log:       opts.Logger,
		submitted: make(map[string]*model.Request),
	}
	if e.depot == "" {
		e.depot = "Warehouse"
	}
	if e.selector == nil {
		e.selector = NearestSelector{}
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	if e.sink == nil {
		e.sink = metrics.NopSink{}
	}
	if e.log == nil {
		e.log = nopLogger{}
	}
	e.pool.SetLimit(cfg.Workers)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

// Depot returns the location new requests start from.
func (e *Engine) Depot() model.Location { return e.depot }

// Submit creates a request for weight kilograms to dest and queues it.
func (e *Engine) Submit(weight float64, dest model.Location) (*model.Request, error) {
	r := model.NewRequest("", weight, dest, e.depot)
	if err := e.SubmitRequest(r); err != nil {
		return nil, err
	}
	return r, nil
}

// SubmitRequest queues r and starts the assignment loop if it is idle. An
// empty ID is replaced by the next PKG-<n> identifier. Destinations missing
// from the network are accepted; such requests are never assigned.
func (e *Engine) SubmitRequest(r *model.Request) error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if r.Status() != model.StatusQueued {
		e.mu.Unlock()
		return fmt.Errorf("%w: request %s is %s", ErrInvalidRequest, r.ID, r.Status())
	}
	if r.ID == "" {
		r.ID = e.nextIDLocked()
	} else if _, dup := e.submitted[r.ID]; dup {
		e.mu.Unlock()
		return fmt.Errorf("%w: request %s already submitted", ErrInvalidRequest, r.ID)
	}
	e.submitted[r.ID] = r
	e.queue = append(e.queue, r)
	start := !e.running
	if start {
		e.running = true
		e.tasks.Add(1)
	}
	e.updateGaugesLocked()
	n := e.notifyLocked(KindSubmitted, r.ID, "", fmt.Sprintf("Package %s added to queue", r.ID))
	e.mu.Unlock()

	requestsSubmitted.Inc()
	e.log.Infof("package %s (%.1fkg) to %s queued", r.ID, r.Weight, r.Destination)
	e.observer.Notify(n)
	if start {
		e.spawn(e.assignLoop)
	}
	return nil
}

// nextIDLocked returns the first PKG-<n> identifier not taken yet.
func (e *Engine) nextIDLocked() string {
	for {
		e.nextID++
		id := fmt.Sprintf("PKG-%d", e.nextID)
		if _, taken := e.submitted[id]; !taken {
			return id
		}
	}
}

// spawn runs fn on the worker pool. The caller must have registered the task
// with e.tasks while holding the lock. It blocks while the pool is saturated.
func (e *Engine) spawn(fn func()) {
	e.pool.Go(func() error {
		defer e.tasks.Done()
		fn()
		return nil
	})
}

// assignLoop serves the queue head by head until it is empty or the engine
// shuts down.
func (e *Engine) assignLoop() {
	for {
		job, n, ok := e.assignNext()
		if !ok {
			return
		}
		if n.Seq != 0 {
			e.observer.Notify(n)
		}
		if job != nil {
			e.recordAssignment(job)
			e.spawn(func() { e.deliver(job) })
		}
		if !e.sleep(e.cfg.Backoff()) {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			return
		}
	}
}

// assignNext pops the queue head and either assigns it or requeues it at the
// tail. ok is false when the loop should stop.
func (e *Engine) assignNext() (job *delivery, n Notification, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || len(e.queue) == 0 {
		e.running = false
		return nil, Notification{}, false
	}
	r := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	r.RecordAttempt()

	c, _ := e.selector.Select(e.carriers, r, e.router)
	switch {
	case c == nil:
		requeuesTotal.WithLabelValues(requeueNoCarrier).Inc()
	case !c.TryAssign(r):
		requeuesTotal.WithLabelValues(requeueRace).Inc()
		e.log.Debugf("drone %s taken before package %s could be assigned", c.ID(), r.ID)
	case !r.AssignTo(c.ID()):
		// r already left the queued state elsewhere; hand the carrier back
		// and forget the stale queue entry.
		c.Release(r)
		e.log.Errorf("package %s is %s, dropping stale queue entry", r.ID, r.Status())
		e.updateGaugesLocked()
		return nil, Notification{}, true
	default:
		e.inflight++
		e.tasks.Add(1)
		job = &delivery{
			id:         uuid.NewString(),
			request:    r,
			carrier:    c,
			origin:     c.Location(),
			assignedAt: time.Now(),
		}
		assignmentsTotal.Inc()
		e.updateGaugesLocked()
		e.log.Infof("assigning package %s to drone %s", r.ID, c.ID())
		return job, e.notifyLocked(KindAssigned, r.ID, c.ID(), fmt.Sprintf("Assigning package %s to drone %s", r.ID, c.ID())), true
	}
	e.queue = append(e.queue, r)
	e.updateGaugesLocked()
	return nil, e.notifyLocked(KindRequeued, r.ID, "", fmt.Sprintf("No available drones for package %s. Requeuing.", r.ID)), true
}

// deliver simulates the transit of one assignment. Transit takes one unit
// delay per unit of route distance.
func (e *Engine) deliver(job *delivery) {
	r, c := job.request, job.carrier
	dist := e.router.ShortestDistance(job.origin, r.Destination)
	if !routing.IsReachable(dist) {
		e.log.Errorf("package %s: no route from %s to %s, completing in place", r.ID, job.origin, r.Destination)
		dist = 0
	}
	eta := time.Duration(dist) * e.cfg.UnitDelay()

	e.mu.Lock()
	r.Advance(model.StatusInTransit)
	n := e.notifyLocked(KindDeparted, r.ID, c.ID(),
		fmt.Sprintf("Drone %s delivering package %s to %s. ETA: %s", c.ID(), r.ID, r.Destination, eta))
	e.mu.Unlock()
	e.observer.Notify(n)

	for i := 1; i <= dist; i++ {
		if !e.sleep(e.cfg.UnitDelay()) {
			e.interrupted(job, i-1, dist)
			return
		}
		e.mu.Lock()
		n := e.notifyLocked(KindProgress, r.ID, c.ID(), fmt.Sprintf("Drone %s in transit (%d/%d)", c.ID(), i, dist))
		e.mu.Unlock()
		e.observer.Notify(n)
	}

	now := time.Now()
	e.mu.Lock()
	r.MarkDelivered(c.ID(), now)
	c.CompleteDelivery()
	e.delivered = append(e.delivered, r)
	e.inflight--
	e.updateGaugesLocked()
	n = e.notifyLocked(KindDelivered, r.ID, c.ID(), fmt.Sprintf("Package %s delivered by drone %s", r.ID, c.ID()))
	rec := metrics.DeliveryRecord{
		DeliveryID:  job.id,
		RequestID:   r.ID,
		CarrierID:   c.ID(),
		Origin:      job.origin,
		Destination: r.Destination,
		Distance:    dist,
		Weight:      r.Weight,
		Attempts:    r.Attempts(),
		SubmittedAt: r.SubmittedAt(),
		AssignedAt:  job.assignedAt,
		DeliveredAt: now,
	}
	e.mu.Unlock()
	e.observer.Notify(n)

	deliveriesCompleted.Inc()
	deliveryDistance.Observe(float64(dist))
	e.log.Infof("package %s delivered by drone %s at %s", r.ID, c.ID(), r.Destination)
	if err := e.sink.RecordDelivery(rec); err != nil {
		e.log.Errorf("metrics error: %v", err)
	}
}

// interrupted leaves the request in transit and the carrier busy: the
// shutdown cut the simulation between two state changes.
func (e *Engine) interrupted(job *delivery, done, total int) {
	r, c := job.request, job.carrier
	e.log.Warnf("delivery of package %s by drone %s interrupted at %d/%d", r.ID, c.ID(), done, total)
	deliveriesAborted.Inc()
	e.mu.Lock()
	e.inflight--
	n := e.notifyLocked(KindInterrupted, r.ID, c.ID(), fmt.Sprintf("Delivery of package %s by drone %s interrupted", r.ID, c.ID()))
	e.mu.Unlock()
	e.observer.Notify(n)
}

func (e *Engine) recordAssignment(job *delivery) {
	ar, ok := e.sink.(metrics.AssignmentRecorder)
	if !ok {
		return
	}
	r := job.request
	e.mu.Lock()
	rec := metrics.AssignmentRecord{
		DeliveryID:  job.id,
		RequestID:   r.ID,
		CarrierID:   job.carrier.ID(),
		Destination: r.Destination,
		Distance:    e.router.ShortestDistance(job.origin, r.Destination),
		Attempts:    r.Attempts(),
		QueueWait:   job.assignedAt.Sub(r.SubmittedAt()),
		Time:        job.assignedAt,
	}
	e.mu.Unlock()
	if err := ar.RecordAssignment(rec); err != nil {
		e.log.Errorf("metrics error: %v", err)
	}
}

// sleep waits for d and reports false if the engine was stopped meanwhile.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (e *Engine) notifyLocked(kind Kind, requestID, carrierID, msg string) Notification {
	e.seq++
	return Notification{
		Seq:       e.seq,
		Time:      time.Now(),
		Kind:      kind,
		Message:   msg,
		RequestID: requestID,
		CarrierID: carrierID,
		Carriers:  e.carrierSnapshotsLocked(),
		Requests:  append(e.assignedLocked(), e.pendingLocked()...),
	}
}

func (e *Engine) updateGaugesLocked() {
	queueDepth.Set(float64(len(e.queue)))
	busy := 0
	for _, c := range e.carriers {
		if !c.Available() {
			busy++
		}
	}
	carriersBusy.Set(float64(busy))
}

func (e *Engine) carrierSnapshotsLocked() []model.CarrierSnapshot {
	out := make([]model.CarrierSnapshot, len(e.carriers))
	for i, c := range e.carriers {
		out[i] = c.Snapshot()
	}
	return out
}

func (e *Engine) assignedLocked() []model.RequestSnapshot {
	var out []model.RequestSnapshot
	for _, c := range e.carriers {
		if r := c.Current(); r != nil {
			out = append(out, r.Snapshot())
		}
	}
	return out
}

func (e *Engine) pendingLocked() []model.RequestSnapshot {
	out := make([]model.RequestSnapshot, len(e.queue))
	for i, r := range e.queue {
		out[i] = r.Snapshot()
	}
	return out
}

// Snapshot returns the current state of every carrier and request.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Carriers: e.carrierSnapshotsLocked(),
		Pending:  e.pendingLocked(),
		Assigned: e.assignedLocked(),
	}
	st.Delivered = make([]model.RequestSnapshot, len(e.delivered))
	for i, r := range e.delivered {
		st.Delivered[i] = r.Snapshot()
	}
	return st
}

// WaitIdle blocks until no request is queued and no delivery is running, or
// until ctx is done.
func (e *Engine) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		e.mu.Lock()
		idle := len(e.queue) == 0 && e.inflight == 0
		e.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops accepting requests and lets the assignment loop exit. It
// then waits for running deliveries for the configured grace period, or
// until ctx is done, before interrupting them. Interrupted deliveries keep
// their request in transit and their carrier busy. ErrShutdownTimeout is
// returned when deliveries had to be interrupted. Later calls return the
// result of the first one.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() { e.shutdownErr = e.shutdown(ctx) })
	return e.shutdownErr
}

func (e *Engine) shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	queued, inflight := len(e.queue), e.inflight
	e.mu.Unlock()
	e.log.Infof("shutting down: %d queued, %d in flight", queued, inflight)

	done := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(done)
	}()
	grace := time.NewTimer(e.cfg.ShutdownGrace())
	defer grace.Stop()
	select {
	case <-done:
		e.cancel()
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}
	e.log.Errorf("shutdown grace period exceeded, interrupting in-flight deliveries")
	e.cancel()
	<-done
	return ErrShutdownTimeout
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
