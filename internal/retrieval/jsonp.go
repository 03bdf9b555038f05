package retrieval

// jsonp.go implements the script channel: the same tabular-JSON endpoint is
// asked to wrap its answer in a call to a named callback, the script is
// loaded, and the callback's argument is handed to whoever registered that
// name. The script text is only pattern-matched, never evaluated.

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/logging"
)

// LabelGVizScript identifies the script-channel strategy.
const LabelGVizScript = "GViz JSONP"

// DefaultScriptTimeout bounds one script-channel attempt.
const DefaultScriptTimeout = 10 * time.Second

var (
	errScriptLoad       = errors.New("JSONP script failed to load")
	errScriptDisabled   = errors.New("disabled")
	errCallbackUnknown  = errors.New("script invoked an unregistered callback")
	errCallbackMissing  = errors.New("script did not invoke a callback")
	errCallbackConflict = errors.New("callback already registered")
)

// invocation matches a single top-level call such as
//
//	/*O_o*/
//	projStatJsonp_1700000000000_1a2b3c4d({...});
var invocation = regexp.MustCompile(`(?s)^\s*(?:/\*.*?\*/\s*)*([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\((.*)\)\s*;?\s*$`)

// ----------------------------------------------------------------------------
// CallbackRegistry
// ----------------------------------------------------------------------------

// CallbackRegistry maps callback names to pending one-shot deliveries.
type CallbackRegistry struct {
	mu      sync.Mutex
	pending map[string]chan string
}

// NewCallbackRegistry creates an empty registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{pending: make(map[string]chan string)}
}

// Register reserves name and returns the channel its payload will arrive on.
func (r *CallbackRegistry) Register(name string) (<-chan string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[name]; exists {
		return nil, fmt.Errorf("%w: %s", errCallbackConflict, name)
	}
	ch := make(chan string, 1)
	r.pending[name] = ch
	return ch, nil
}

// Remove deletes name. Removing an unknown name is a no-op.
func (r *CallbackRegistry) Remove(name string) {
	r.mu.Lock()
	delete(r.pending, name)
	r.mu.Unlock()
}

// Deliver hands payload to the handle registered under name. It reports false
// when name is not pending or has already received a payload.
func (r *CallbackRegistry) Deliver(name, payload string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.pending[name]
	if !ok {
		return false
	}
	select {
	case ch <- payload:
		return true
	default:
		return false
	}
}

// Dispatch reads a loaded script, finds the callback it invokes and delivers
// the call's argument text.
func (r *CallbackRegistry) Dispatch(script string) error {
	m := invocation.FindStringSubmatch(script)
	if m == nil {
		return errCallbackMissing
	}
	if !r.Deliver(m[1], m[2]) {
		return fmt.Errorf("%w: %s", errCallbackUnknown, m[1])
	}
	return nil
}

// Len returns the number of pending callbacks.
func (r *CallbackRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// ----------------------------------------------------------------------------
// Provider
// ----------------------------------------------------------------------------

// ScriptLoader retrieves the text of a remote script.
type ScriptLoader interface {
	LoadScript(ctx context.Context, url string) (string, error)
}

// LoadScript implements ScriptLoader.
func (f *Fetcher) LoadScript(ctx context.Context, url string) (string, error) {
	return f.GetText(ctx, url)
}

// GVizScriptProvider requests the tabular-JSON representation through the
// script channel.
type GVizScriptProvider struct {
	Endpoints Endpoints
	Loader    ScriptLoader
	Registry  *CallbackRegistry
	Timeout   time.Duration
	Disabled  bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewGVizScriptProvider creates a provider with its own callback registry.
func NewGVizScriptProvider(endpoints Endpoints, loader ScriptLoader, timeout time.Duration) *GVizScriptProvider {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	return &GVizScriptProvider{
		Endpoints: endpoints,
		Loader:    loader,
		Registry:  NewCallbackRegistry(),
		Timeout:   timeout,
		now:       time.Now,
	}
}

func (p *GVizScriptProvider) Label() string { return LabelGVizScript }

// Fetch runs one attempt. Delivery, script failure, timeout and ctx
// cancellation race; the first one to resolve ends the attempt, and the
// registry entry, timer and script fetch are released exactly once.
func (p *GVizScriptProvider) Fetch(ctx context.Context, ref core.SheetReference) (core.Dataset, error) {
	if p.Disabled {
		return core.Dataset{}, errScriptDisabled
	}

	id := p.callbackID()
	delivered, err := p.Registry.Register(id)
	if err != nil {
		return core.Dataset{}, err
	}

	scriptCtx, cancelScript := context.WithCancel(ctx)
	timer := time.NewTimer(p.Timeout)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			timer.Stop()
			cancelScript()
			p.Registry.Remove(id)
		})
	}
	defer cleanup()

	loadErr := make(chan error, 1)
	go func() {
		script, err := p.Loader.LoadScript(scriptCtx, p.Endpoints.GVizURL(ref, id))
		if err == nil {
			err = p.Registry.Dispatch(script)
		}
		if err != nil {
			loadErr <- err
		}
	}()

	select {
	case payload := <-delivered:
		cleanup()
		return core.DecodeTabularPayload(payload)

	case err := <-loadErr:
		logging.FromContext(ctx).Debug("script channel load failed", "callback", id, "error", err)
		return core.Dataset{}, errScriptLoad

	case <-timer.C:
		return core.Dataset{}, fmt.Errorf("JSONP timeout after %s", p.Timeout)

	case <-ctx.Done():
		return core.Dataset{}, ctx.Err()
	}
}

func (p *GVizScriptProvider) callbackID() string {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	return fmt.Sprintf("projStatJsonp_%d_%s", now().UnixMilli(), uuid.NewString()[:8])
}
