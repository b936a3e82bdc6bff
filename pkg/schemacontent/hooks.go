package schemacontent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names dispatched by the content service. External
// collaborators (webhook delivery, audit logging, search indexing) observe
// these through the hook bus.
const (
	EventContentBeforeCreate  = "content:beforeCreate"
	EventContentAfterCreate   = "content:afterCreate"
	EventContentBeforeUpdate  = "content:beforeUpdate"
	EventContentAfterUpdate   = "content:afterUpdate"
	EventContentBeforeDelete  = "content:beforeDelete"
	EventContentAfterRollback = "content:afterRollback"

	EventBlueprintAfterCreate = "blueprint:afterCreate"
	EventBlueprintAfterUpdate = "blueprint:afterUpdate"
	EventBlueprintAfterDelete = "blueprint:afterDelete"
)

// EventPayload carries lifecycle event data to hook handlers. Create and
// update events populate Content and Blueprint; delete events carry only
// ContentID. Actor is always set.
type EventPayload struct {
	Content   *Content
	Blueprint *Blueprint
	ContentID uuid.UUID
	Actor     Actor
}

// HookFunc is a fire-and-forget lifecycle handler. Errors are isolated
// per handler and collected into the dispatch result; they never abort
// the host operation or subsequent handlers.
type HookFunc func(ctx context.Context, payload *EventPayload) error

// FilterFunc is a value-transforming handler. Each handler receives the
// output of the previous one and returns a possibly-transformed value.
type FilterFunc func(ctx context.Context, value interface{}) (interface{}, error)

// DispatchResult aggregates the outcome of one Dispatch call.
type DispatchResult struct {
	Succeeded bool
	Executed  int
	Errors    []*HookExecutionError
}

// FilterResult aggregates the outcome of one ApplyFilters call. Value
// holds the final carried-forward value.
type FilterResult struct {
	Succeeded bool
	Value     interface{}
	Executed  int
	Errors    []*HookExecutionError
}

type hookRegistration struct {
	handlerID string
	fn        HookFunc
}

type filterRegistration struct {
	handlerID string
	fn        FilterFunc
}

// HookBus is a registry of named lifecycle events with two handler kinds
// behind one dispatch surface: fire-and-forget hooks and value-transforming
// filters. Registration order is dispatch order. The bus is safe for
// concurrent use; a dispatch in progress works on the handler snapshot
// taken at dispatch start, so concurrent registration never affects it.
//
// Each HookBus is an independent instance; construct one per runtime
// rather than sharing process-wide state.
type HookBus struct {
	mu      sync.RWMutex
	hooks   map[string][]hookRegistration
	filters map[string][]filterRegistration

	// stop-on-first-error policy for ApplyFilters; default is best-effort
	// carry-forward of the last good value.
	shortCircuit bool

	aggregator *ErrorAggregator
}

// BusOption configures a HookBus.
type BusOption func(*HookBus)

// WithFilterShortCircuit makes ApplyFilters stop at the first handler
// failure instead of carrying the last good value through the remaining
// handlers.
func WithFilterShortCircuit() BusOption {
	return func(b *HookBus) {
		b.shortCircuit = true
	}
}

// WithErrorAggregator attaches an error sink that accumulates handler
// failures across all dispatches on this bus.
func WithErrorAggregator(agg *ErrorAggregator) BusOption {
	return func(b *HookBus) {
		b.aggregator = agg
	}
}

// NewHookBus creates an empty hook bus.
func NewHookBus(opts ...BusOption) *HookBus {
	b := &HookBus{
		hooks:   make(map[string][]hookRegistration),
		filters: make(map[string][]filterRegistration),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func validateRegistration(event, handlerID string, fnNil bool) error {
	if event == "" {
		return &HandlerValidationError{Event: event, HandlerID: handlerID, Reason: "event name is empty"}
	}
	if handlerID == "" {
		return &HandlerValidationError{Event: event, HandlerID: handlerID, Reason: "handler id is empty"}
	}
	if fnNil {
		return &HandlerValidationError{Event: event, HandlerID: handlerID, Reason: "callback is nil"}
	}
	return nil
}

// RegisterHook attaches a fire-and-forget handler to an event. A malformed
// registration (empty event, empty handler id, nil callback, or a handler
// id already registered for the event) is rejected with a
// HandlerValidationError and never enters the dispatch path.
func (b *HookBus) RegisterHook(event, handlerID string, fn HookFunc) error {
	if err := validateRegistration(event, handlerID, fn == nil); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, reg := range b.hooks[event] {
		if reg.handlerID == handlerID {
			return &HandlerValidationError{Event: event, HandlerID: handlerID, Reason: "handler id already registered"}
		}
	}
	b.hooks[event] = append(b.hooks[event], hookRegistration{handlerID: handlerID, fn: fn})
	return nil
}

// RegisterFilter attaches a value-transforming handler to an event, with
// the same validation rules as RegisterHook.
func (b *HookBus) RegisterFilter(event, handlerID string, fn FilterFunc) error {
	if err := validateRegistration(event, handlerID, fn == nil); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, reg := range b.filters[event] {
		if reg.handlerID == handlerID {
			return &HandlerValidationError{Event: event, HandlerID: handlerID, Reason: "handler id already registered"}
		}
	}
	b.filters[event] = append(b.filters[event], filterRegistration{handlerID: handlerID, fn: fn})
	return nil
}

// HookCount returns the number of hook handlers registered for an event.
func (b *HookBus) HookCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hooks[event])
}

// Dispatch invokes every hook handler registered for the event, in
// registration order, sequentially within this call. A handler failure
// (returned error or panic) is wrapped into a HookExecutionError and
// recorded; subsequent handlers still run. Dispatch itself never returns
// an error: failures only appear in the result.
//
// The context is checked between handlers so a caller deadline abandons
// the remaining chain; abandoned handlers are not counted as executed.
func (b *HookBus) Dispatch(ctx context.Context, event string, payload *EventPayload) DispatchResult {
	b.mu.RLock()
	snapshot := make([]hookRegistration, len(b.hooks[event]))
	copy(snapshot, b.hooks[event])
	b.mu.RUnlock()

	result := DispatchResult{Succeeded: true}
	for _, reg := range snapshot {
		if ctx.Err() != nil {
			b.record(&result, &HookExecutionError{Event: event, HandlerID: reg.handlerID, Err: ctx.Err()})
			break
		}
		result.Executed++
		if err := b.invokeHook(ctx, reg, payload); err != nil {
			b.record(&result, &HookExecutionError{Event: event, HandlerID: reg.handlerID, Err: err})
		}
	}
	return result
}

func (b *HookBus) invokeHook(ctx context.Context, reg hookRegistration, payload *EventPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return reg.fn(ctx, payload)
}

// ApplyFilters threads a value through every filter handler registered
// for the event. Each handler receives the output of the previous one.
// By default a handler failure is recorded and the chain continues with
// the last successful value; WithFilterShortCircuit stops at the first
// failure instead. The final value is always the last good one.
func (b *HookBus) ApplyFilters(ctx context.Context, event string, value interface{}) FilterResult {
	b.mu.RLock()
	snapshot := make([]filterRegistration, len(b.filters[event]))
	copy(snapshot, b.filters[event])
	b.mu.RUnlock()

	result := FilterResult{Succeeded: true, Value: value}
	for _, reg := range snapshot {
		if ctx.Err() != nil {
			b.recordFilter(&result, &HookExecutionError{Event: event, HandlerID: reg.handlerID, Err: ctx.Err()})
			break
		}
		result.Executed++
		next, err := b.invokeFilter(ctx, reg, result.Value)
		if err != nil {
			b.recordFilter(&result, &HookExecutionError{Event: event, HandlerID: reg.handlerID, Err: err})
			if b.shortCircuit {
				break
			}
			continue
		}
		result.Value = next
	}
	return result
}

func (b *HookBus) invokeFilter(ctx context.Context, reg filterRegistration, value interface{}) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return reg.fn(ctx, value)
}

func (b *HookBus) record(result *DispatchResult, err *HookExecutionError) {
	result.Succeeded = false
	result.Errors = append(result.Errors, err)
	if b.aggregator != nil {
		b.aggregator.Record(err)
	}
}

func (b *HookBus) recordFilter(result *FilterResult, err *HookExecutionError) {
	result.Succeeded = false
	result.Errors = append(result.Errors, err)
	if b.aggregator != nil {
		b.aggregator.Record(err)
	}
}

// ErrorAggregator accumulates handler failures across many dispatches,
// independent of any single Dispatch or ApplyFilters call.
type ErrorAggregator struct {
	mu     sync.Mutex
	errors []*HookExecutionError
}

// NewErrorAggregator creates an empty aggregator.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{}
}

// Record appends a handler failure.
func (a *ErrorAggregator) Record(err *HookExecutionError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, err)
}

// Count returns the number of accumulated failures.
func (a *ErrorAggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

// Errors returns a copy of the accumulated failures.
func (a *ErrorAggregator) Errors() []*HookExecutionError {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*HookExecutionError, len(a.errors))
	copy(out, a.errors)
	return out
}

// Reset discards all accumulated failures.
func (a *ErrorAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = nil
}

// Common hook implementations

// RegisterLoggingHooks attaches handlers that log every content lifecycle
// event through the given logger.
func RegisterLoggingHooks(bus *HookBus, logger *slog.Logger) error {
	events := []string{
		EventContentAfterCreate,
		EventContentAfterUpdate,
		EventContentBeforeDelete,
		EventContentAfterRollback,
	}
	for _, event := range events {
		event := event
		err := bus.RegisterHook(event, "core:logging:"+event, func(ctx context.Context, payload *EventPayload) error {
			contentID := payload.ContentID
			if payload.Content != nil {
				contentID = payload.Content.ID
			}
			logger.Info("content lifecycle event",
				"event", event,
				"content_id", contentID,
				"actor", payload.Actor.UserID)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AuditEntry is one recorded lifecycle event.
type AuditEntry struct {
	Event     string
	ContentID uuid.UUID
	Actor     string
	At        time.Time
}

// AuditTrail records lifecycle events in memory. Useful for tests and as
// a template for real audit sinks.
type AuditTrail struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditTrail creates an empty audit trail.
func NewAuditTrail() *AuditTrail {
	return &AuditTrail{}
}

// Attach registers the trail for the given events.
func (t *AuditTrail) Attach(bus *HookBus, events ...string) error {
	for _, event := range events {
		event := event
		err := bus.RegisterHook(event, "core:audit:"+event, func(ctx context.Context, payload *EventPayload) error {
			entry := AuditEntry{
				Event:     event,
				ContentID: payload.ContentID,
				Actor:     payload.Actor.UserID,
				At:        time.Now().UTC(),
			}
			if payload.Content != nil {
				entry.ContentID = payload.Content.ID
			}
			t.mu.Lock()
			t.entries = append(t.entries, entry)
			t.mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Entries returns a copy of the recorded events.
func (t *AuditTrail) Entries() []AuditEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
