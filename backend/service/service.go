package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/adwski/groupchat/backend/model"
	"github.com/adwski/groupchat/backend/storage/memory"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrDecode       = errors.New("unable to decode event payload")
	ErrConnect      = errors.New("unable to connect")
)

type (
	Switch interface {
		Connect(endpoint string, wire model.Wire)
		Disconnect(endpoint string)
		Send(endpoint string, ann model.Announcement) bool
		Broadcast(ann model.Announcement, except string) int
	}

	Typing interface {
		Mark(identity string)
		Clear(identity string)
	}

	Metrics interface {
		SetConnections(n int)
		SetIdentities(n int)
		IncMessages(kind string)
		IncDeleted()
		IncReads()
	}

	// Service is the session hub. A single mutex serializes every mutation of the
	// registry, the message store and the receipt tracker together with the
	// enqueueing of the announcements it produces, so each connection observes
	// state changes atomically and in the order they were applied.
	Service struct {
		mx       *sync.Mutex
		conns    map[string]struct{}
		registry *memory.Registry
		store    *memory.MessageStore
		receipts *memory.ReceiptTracker

		typing  Typing
		sw      Switch
		metrics Metrics
		logger  zerolog.Logger
	}

	Config struct {
		Switch  Switch
		Typing  Typing
		Metrics Metrics
		Clock   func() time.Time
		Logger  *zerolog.Logger
	}
)

func NewService(cfg Config) *Service {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	typing := cfg.Typing
	if typing == nil {
		typing = nopTyping{}
	}
	return &Service{
		mx:       &sync.Mutex{},
		conns:    make(map[string]struct{}),
		registry: memory.NewRegistry(),
		store:    memory.NewMessageStore(cfg.Clock),
		receipts: memory.NewReceiptTracker(),
		typing:   typing,
		sw:       cfg.Switch,
		metrics:  metrics,
		logger:   cfg.Logger.With().Str("component", "hub").Logger(),
	}
}

// Connect attaches a transport endpoint and replays the full history to it alone.
func (svc *Service) Connect(connID string, wire model.Wire) error {
	if connID == "" {
		return ErrConnect
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	if _, ok := svc.conns[connID]; ok {
		return errors.Join(ErrConnect, errors.New("connection already attached"))
	}
	svc.conns[connID] = struct{}{}
	svc.sw.Connect(connID, wire)
	svc.metrics.SetConnections(len(svc.conns))

	svc.sw.Send(connID, model.Announcement{
		Type:    model.AnnouncementTypeHistory,
		Payload: svc.store.All(),
	})
	svc.logger.Debug().Str("conn", connID).Msg("connection attached")
	return nil
}

// Disconnect runs identity cleanup for the connection and detaches it.
// It is safe to call more than once and after Logout.
func (svc *Service) Disconnect(connID string) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	svc.leave(connID)
	if _, ok := svc.conns[connID]; !ok {
		return
	}
	delete(svc.conns, connID)
	svc.sw.Disconnect(connID)
	svc.metrics.SetConnections(len(svc.conns))
	svc.logger.Debug().Str("conn", connID).Msg("connection detached")
}

// Dispatch decodes an inbound event and applies it. Rejected events (validation,
// authorization, duplicates) are not errors; only malformed input is reported.
func (svc *Service) Dispatch(ctx context.Context, sess model.Session, in model.Inbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	svc.logger.Trace().
		Str("conn", sess.ConnID).
		Str("type", in.Type).
		RawJSON("payload", rawOrNull(in.Payload)).
		Msg("inbound event")

	switch in.Type {
	case model.EventRegister:
		var identity string
		if err := json.Unmarshal(in.Payload, &identity); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.Register(sess, identity)
	case model.EventMessage:
		var req model.MessageRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.PostMessage(sess.ConnID, req)
	case model.EventTyping:
		var identity string
		if err := json.Unmarshal(in.Payload, &identity); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.Typing(sess.ConnID, identity)
	case model.EventRead:
		var ref model.MessageRef
		if err := json.Unmarshal(in.Payload, &ref); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.MarkRead(sess.ConnID, ref)
	case model.EventDelete:
		var ref model.MessageRef
		if err := json.Unmarshal(in.Payload, &ref); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.DeleteMessage(sess.ConnID, ref)
	case model.EventLogout:
		var identity string
		if err := json.Unmarshal(in.Payload, &identity); err != nil {
			return errors.Join(ErrDecode, err)
		}
		svc.Logout(sess.ConnID, identity)
	default:
		return ErrUnknownEvent
	}
	return nil
}

// Register binds the connection to identity and announces the new user list.
func (svc *Service) Register(sess model.Session, identity string) bool {
	logger := svc.logger.With().Str("conn", sess.ConnID).Logger()

	identity, err := model.NormalizeIdentity(identity)
	if err != nil {
		logger.Debug().Err(err).Msg("registration dropped")
		return false
	}
	if sess.Identity != "" && sess.Identity != identity {
		logger.Debug().
			Str("identity", identity).
			Str("session", sess.Identity).
			Msg("registration dropped, identity does not match session")
		return false
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	if !svc.registry.Register(sess.ConnID, identity) {
		logger.Debug().Str("identity", identity).Msg("duplicate registration ignored")
		return false
	}
	svc.metrics.SetIdentities(len(svc.registry.Snapshot()))
	svc.broadcastUsers()
	logger.Debug().Str("identity", identity).Msg("identity registered")
	return true
}

// PostMessage appends a message authored by the identity registered on connID.
// The author field supplied by the client is not trusted.
func (svc *Service) PostMessage(connID string, req model.MessageRequest) (model.Message, bool) {
	logger := svc.logger.With().Str("conn", connID).Logger()

	if err := model.Validate(req); err != nil {
		logger.Debug().Err(err).Msg("message dropped")
		return model.Message{}, false
	}
	kind := req.Type
	if kind == "" {
		kind = model.KindText
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	author, ok := svc.registry.IdentityOf(connID)
	if !ok {
		logger.Debug().Msg("message from unregistered connection dropped")
		return model.Message{}, false
	}
	if req.User != "" && req.User != author {
		logger.Debug().
			Str("claimed", req.User).
			Str("identity", author).
			Msg("client supplied author ignored")
	}

	msg := svc.store.Append(author, req.Content, kind, req.Filename)
	svc.metrics.IncMessages(string(kind))
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeMessage,
		Payload: msg,
	}, "")
	return msg, true
}

// Typing relays the typing signal to everyone but the sender.
func (svc *Service) Typing(connID, identity string) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	bound, ok := svc.boundAs(connID, identity)
	if !ok {
		return
	}
	svc.typing.Mark(bound)
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeTyping,
		Payload: bound,
	}, connID)
}

// MarkRead acknowledges a message on behalf of the identity registered on connID.
func (svc *Service) MarkRead(connID string, ref model.MessageRef) bool {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	reader, ok := svc.boundAs(connID, ref.Username)
	if !ok {
		return false
	}
	if _, ok = svc.store.Get(ref.MessageID); !ok {
		svc.logger.Debug().
			Str("conn", connID).
			Int64("msgId", ref.MessageID).
			Msg("read of unknown message dropped")
		return false
	}

	rc := svc.receipts.MarkRead(ref.MessageID, reader)
	svc.metrics.IncReads()
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeReceipt,
		Payload: rc,
	}, "")
	return true
}

// DeleteMessage removes a message if the identity registered on connID authored it.
func (svc *Service) DeleteMessage(connID string, ref model.MessageRef) bool {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	identity, ok := svc.boundAs(connID, ref.Username)
	if !ok {
		return false
	}
	if !svc.store.Delete(ref.MessageID, identity) {
		svc.logger.Debug().
			Str("conn", connID).
			Str("identity", identity).
			Int64("msgId", ref.MessageID).
			Msg("delete dropped, no such message by this author")
		return false
	}
	svc.receipts.Forget(ref.MessageID)
	svc.metrics.IncDeleted()
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeDeleted,
		Payload: ref.MessageID,
	}, "")
	return true
}

// Logout releases the identity registered on connID. The connection itself
// stays attached and keeps receiving broadcasts.
func (svc *Service) Logout(connID, identity string) bool {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	if _, ok := svc.boundAs(connID, identity); !ok {
		return false
	}
	return svc.leave(connID)
}

// LogoutIdentity releases identity from whichever connection holds it.
func (svc *Service) LogoutIdentity(identity string) bool {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	connID, ok := svc.registry.ConnectionOf(identity)
	if !ok {
		return false
	}
	return svc.leave(connID)
}

// Users returns registered identities in registration order.
func (svc *Service) Users() []string {
	svc.mx.Lock()
	defer svc.mx.Unlock()
	return svc.registry.Snapshot()
}

// Messages returns the full history, oldest first.
func (svc *Service) Messages() []model.Message {
	svc.mx.Lock()
	defer svc.mx.Unlock()
	return svc.store.All()
}

// Readers returns identities that acknowledged message id.
func (svc *Service) Readers(id int64) []string {
	svc.mx.Lock()
	defer svc.mx.Unlock()
	return svc.receipts.Readers(id)
}

// leave must be called with mx held. Registry, receipts and typing state are
// cleaned in one critical section so no reader sees a partial state.
func (svc *Service) leave(connID string) bool {
	identity, ok := svc.registry.Unregister(connID)
	if !ok {
		return false
	}
	updates := svc.receipts.RemoveIdentity(identity)
	svc.typing.Clear(identity)
	svc.metrics.SetIdentities(len(svc.registry.Snapshot()))

	svc.broadcastUsers()
	for _, rc := range updates {
		svc.sw.Broadcast(model.Announcement{
			Type:    model.AnnouncementTypeReceipt,
			Payload: rc,
		}, "")
	}
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeLogout,
		Payload: identity,
	}, "")

	svc.logger.Debug().
		Str("conn", connID).
		Str("identity", identity).
		Int("receipts", len(updates)).
		Msg("identity left")
	return true
}

// boundAs returns the identity registered on connID if it equals claimed.
func (svc *Service) boundAs(connID, claimed string) (string, bool) {
	bound, ok := svc.registry.IdentityOf(connID)
	if !ok || bound != claimed {
		svc.logger.Debug().
			Str("conn", connID).
			Str("claimed", claimed).
			Str("identity", bound).
			Msg("event dropped, identity mismatch")
		return "", false
	}
	return bound, true
}

func (svc *Service) broadcastUsers() {
	svc.sw.Broadcast(model.Announcement{
		Type:    model.AnnouncementTypeUsers,
		Payload: svc.registry.Snapshot(),
	}, "")
}

func rawOrNull(b json.RawMessage) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

type nopMetrics struct{}

func (nopMetrics) SetConnections(int) {}
func (nopMetrics) SetIdentities(int)  {}
func (nopMetrics) IncMessages(string) {}
func (nopMetrics) IncDeleted()        {}
func (nopMetrics) IncReads()          {}

type nopTyping struct{}

func (nopTyping) Mark(string)  {}
func (nopTyping) Clear(string) {}
