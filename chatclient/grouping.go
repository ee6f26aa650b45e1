package chatclient

import (
	"time"

	"github.com/Felag1n/AudioBridge/internal/model"
)

// DefaultGroupGap is the silence after which a new visual group starts even
// when the sender has not changed.
const DefaultGroupGap = 5 * time.Minute

// GroupedMessage is a message annotated with its position inside a visual
// block of consecutive messages from one sender.
type GroupedMessage struct {
	model.Message
	IsFirstInGroup bool
	IsLastInGroup  bool
}

// GroupMessages derives the presentation grouping: consecutive messages
// from the same sender form one block, broken when the sender changes or
// the gap since the previous message exceeds gap. Pure function of its
// inputs; recompute it whenever the underlying list changes.
func GroupMessages(msgs []model.Message, gap time.Duration) []GroupedMessage {
	out := make([]GroupedMessage, 0, len(msgs))

	for i, m := range msgs {
		first := i == 0 ||
			msgs[i-1].SenderID != m.SenderID ||
			m.CreatedAt.Sub(msgs[i-1].CreatedAt) > gap
		last := i == len(msgs)-1 ||
			msgs[i+1].SenderID != m.SenderID ||
			msgs[i+1].CreatedAt.Sub(m.CreatedAt) > gap

		out = append(out, GroupedMessage{
			Message:        m,
			IsFirstInGroup: first,
			IsLastInGroup:  last,
		})
	}
	return out
}
