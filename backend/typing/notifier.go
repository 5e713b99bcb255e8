package typing

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultWindow = 3 * time.Second

// Notifier tracks who is typing. Every identity has its own deadline which is
// reset by each Mark and removed on expiry or Clear.
type Notifier struct {
	logger   zerolog.Logger
	mx       *sync.Mutex
	window   time.Duration
	timers   map[string]*entry
	onChange func(active int)
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

type Config struct {
	Logger *zerolog.Logger
	Window time.Duration
	// OnChange is called with the number of typing identities after it changes.
	OnChange func(active int)
}

func NewNotifier(cfg Config) *Notifier {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func(int) {}
	}
	return &Notifier{
		logger:   cfg.Logger.With().Str("component", "typing").Logger(),
		mx:       &sync.Mutex{},
		window:   window,
		timers:   make(map[string]*entry),
		onChange: onChange,
	}
}

// Mark records a typing event for identity and (re)arms its expiry.
func (n *Notifier) Mark(identity string) {
	n.mx.Lock()
	defer n.mx.Unlock()

	e, ok := n.timers[identity]
	if ok {
		e.timer.Stop()
		e.gen++
	} else {
		e = &entry{}
		n.timers[identity] = e
	}
	gen := e.gen
	e.timer = time.AfterFunc(n.window, func() {
		n.expire(identity, gen)
	})
	if !ok {
		n.onChange(len(n.timers))
	}
}

func (n *Notifier) expire(identity string, gen uint64) {
	n.mx.Lock()
	defer n.mx.Unlock()

	e, ok := n.timers[identity]
	if !ok || e.gen != gen {
		// refreshed or cleared meanwhile
		return
	}
	delete(n.timers, identity)
	n.onChange(len(n.timers))
	n.logger.Trace().Str("identity", identity).Msg("typing expired")
}

func (n *Notifier) Clear(identity string) {
	n.mx.Lock()
	defer n.mx.Unlock()

	e, ok := n.timers[identity]
	if !ok {
		return
	}
	e.timer.Stop()
	delete(n.timers, identity)
	n.onChange(len(n.timers))
}

// Active returns identities currently typing, sorted.
func (n *Notifier) Active() []string {
	n.mx.Lock()
	defer n.mx.Unlock()

	active := make([]string, 0, len(n.timers))
	for identity := range n.timers {
		active = append(active, identity)
	}
	slices.Sort(active)
	return active
}

// Stop cancels all pending expiries.
func (n *Notifier) Stop() {
	n.mx.Lock()
	defer n.mx.Unlock()

	for identity, e := range n.timers {
		e.timer.Stop()
		delete(n.timers, identity)
	}
	n.onChange(0)
}
