package memory

import (
	"slices"

	"github.com/adwski/groupchat/backend/model"
	"github.com/samber/lo"
)

// ReceiptTracker keeps per-message sets of readers.
// It is not safe for concurrent use, callers serialize access.
type ReceiptTracker struct {
	sets map[int64]map[string]struct{}
}

func NewReceiptTracker() *ReceiptTracker {
	return &ReceiptTracker{
		sets: make(map[int64]map[string]struct{}),
	}
}

// MarkRead adds reader to the set of id and returns the resulting set.
func (rt *ReceiptTracker) MarkRead(id int64, reader string) model.Receipt {
	set, ok := rt.sets[id]
	if !ok {
		set = make(map[string]struct{})
		rt.sets[id] = set
	}
	set[reader] = struct{}{}
	return receipt(id, set)
}

// RemoveIdentity drops identity from every set it is in. One receipt is
// returned per mutated set, ordered by message id.
func (rt *ReceiptTracker) RemoveIdentity(identity string) []model.Receipt {
	var updated []model.Receipt
	for id, set := range rt.sets {
		if _, ok := set[identity]; !ok {
			continue
		}
		delete(set, identity)
		updated = append(updated, receipt(id, set))
	}
	slices.SortFunc(updated, func(a, b model.Receipt) int {
		switch {
		case a.MessageID < b.MessageID:
			return -1
		case a.MessageID > b.MessageID:
			return 1
		}
		return 0
	})
	return updated
}

func (rt *ReceiptTracker) Readers(id int64) []string {
	return receipt(id, rt.sets[id]).ReadBy
}

func (rt *ReceiptTracker) Forget(id int64) {
	delete(rt.sets, id)
}

func receipt(id int64, set map[string]struct{}) model.Receipt {
	readers := lo.Keys(set)
	slices.Sort(readers)
	return model.Receipt{MessageID: id, ReadBy: readers}
}
