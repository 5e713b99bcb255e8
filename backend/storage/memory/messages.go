package memory

import (
	"time"

	"github.com/adwski/groupchat/backend/model"
	"github.com/samber/lo"
)

// MessageStore is an append-only log with author-checked deletion.
// It is not safe for concurrent use, callers serialize access.
type MessageStore struct {
	ids      *IDGenerator
	now      func() time.Time
	messages []model.Message
}

func NewMessageStore(now func() time.Time) *MessageStore {
	if now == nil {
		now = time.Now
	}
	return &MessageStore{
		ids: NewIDGenerator(now),
		now: now,
	}
}

func (ms *MessageStore) Append(author, content string, kind model.Kind, filename string) model.Message {
	msg := model.Message{
		ID:        ms.ids.Next(),
		User:      author,
		Content:   content,
		Type:      kind,
		Timestamp: ms.now().UTC(),
	}
	if filename != "" {
		msg.Filename = &filename
	}
	ms.messages = append(ms.messages, msg)
	return msg
}

// Delete removes the message only if it exists and was authored by identity.
func (ms *MessageStore) Delete(id int64, identity string) bool {
	_, idx, ok := lo.FindIndexOf(ms.messages, func(m model.Message) bool {
		return m.ID == id && m.User == identity
	})
	if !ok {
		return false
	}
	ms.messages = append(ms.messages[:idx], ms.messages[idx+1:]...)
	return true
}

func (ms *MessageStore) Get(id int64) (model.Message, bool) {
	return lo.Find(ms.messages, func(m model.Message) bool {
		return m.ID == id
	})
}

// All returns a copy of the log, oldest first.
func (ms *MessageStore) All() []model.Message {
	return append(make([]model.Message, 0, len(ms.messages)), ms.messages...)
}
