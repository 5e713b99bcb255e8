package _switch

import (
	"sync"

	"github.com/adwski/groupchat/backend/model"
	"github.com/rs/zerolog"
)

// DropCounter counts announcements that were not delivered to a dead endpoint.
type DropCounter interface {
	IncDropped()
}

type Switch struct {
	logger  zerolog.Logger
	mx      *sync.RWMutex
	fwd     map[string]model.Wire
	dropped DropCounter
}

type Config struct {
	Logger  *zerolog.Logger
	Dropped DropCounter
}

func NewSwitch(cfg Config) *Switch {
	return &Switch{
		logger:  cfg.Logger.With().Str("component", "switch").Logger(),
		mx:      &sync.RWMutex{},
		fwd:     make(map[string]model.Wire),
		dropped: cfg.Dropped,
	}
}

func (sw *Switch) Connect(endpoint string, wire model.Wire) {
	sw.mx.Lock()
	sw.fwd[endpoint] = wire
	sw.mx.Unlock()

	sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint connected")
}

func (sw *Switch) Disconnect(endpoint string) {
	sw.mx.Lock()
	_, ok := sw.fwd[endpoint]
	delete(sw.fwd, endpoint)
	sw.mx.Unlock()

	if ok {
		sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint disconnected")
	}
}

// Send delivers ann to a single endpoint.
func (sw *Switch) Send(endpoint string, ann model.Announcement) bool {
	sw.mx.RLock()
	wire, ok := sw.fwd[endpoint]
	sw.mx.RUnlock()

	if !ok {
		sw.logger.Debug().
			Str("dst", endpoint).
			Str("type", ann.Type).
			Msg("cannot forward, dst not found")
		return false
	}
	return sw.send(endpoint, wire, ann)
}

// Broadcast delivers ann to every endpoint except the one named by except
// (empty except means everyone). It returns the number of endpoints reached.
func (sw *Switch) Broadcast(ann model.Announcement, except string) int {
	sw.mx.RLock()
	defer sw.mx.RUnlock()

	var sent int
	for dst, wire := range sw.fwd {
		if dst == except {
			continue
		}
		if sw.send(dst, wire, ann) {
			sent++
		}
	}
	if sent == 0 {
		sw.logger.Trace().
			Str("type", ann.Type).
			Msg("broadcast did not reach anyone")
	}
	return sent
}

// send never blocks. An endpoint whose queue is full is considered dead:
// the announcement is dropped and the endpoint is killed so that its
// transport tears the connection down.
func (sw *Switch) send(dst string, wire model.Wire, ann model.Announcement) bool {
	select {
	case wire.TX <- ann:
		sw.logger.Trace().Str("dst", dst).Str("type", ann.Type).Msg("announce is forwarded")
		return true
	default:
	}

	sw.logger.Error().Str("dst", dst).Str("type", ann.Type).Msg("dead endpoint")
	if sw.dropped != nil {
		sw.dropped.IncDropped()
	}
	if wire.Kill != nil {
		wire.Kill()
	}
	return false
}
