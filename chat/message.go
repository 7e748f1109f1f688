package chat

import (
	"sort"
	"time"

	"datachat/backend"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one conversation turn as held in memory and rendered by the
// front end. IDs are local and opaque; ordering is insertion order only.
type Message struct {
	ID        string           `json:"id"`
	Sender    string           `json:"sender"`
	Timestamp string           `json:"timestamp,omitempty"`
	Content   string           `json:"content"`
	Query     string           `json:"query,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	ChartSpec map[string]any   `json:"chart_spec,omitempty"`
	Collapsed bool             `json:"collapsed"`
}

// RenderColumns returns the column order to render the table with. A message
// with rows but no explicit columns falls back to the keys of its first row,
// so it is never unrenderable.
func (m *Message) RenderColumns() []string {
	if len(m.Columns) > 0 {
		return m.Columns
	}
	if len(m.Rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(m.Rows[0]))
	for k := range m.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// MessageList is the append-only conversation model. It is not safe for
// concurrent use; the controller serializes access.
type MessageList struct {
	msgs []Message
}

func NewMessageList() *MessageList {
	return &MessageList{}
}

// AppendUser appends a user turn. Collapse is meaningless for user turns, so
// they are always expanded.
func (l *MessageList) AppendUser(text string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Sender:    SenderUser,
		Timestamp: displayTime(time.Now()),
		Content:   text,
	}
	l.msgs = append(l.msgs, msg)
	return msg
}

// AppendBot collapses every existing bot turn, then appends the new answer
// expanded. At most one bot message is expanded right after an answer, which
// bounds how many tables and charts render at once.
func (l *MessageList) AppendBot(p Payload) Message {
	for i := range l.msgs {
		if l.msgs[i].Sender == SenderBot {
			l.msgs[i].Collapsed = true
		}
	}
	msg := Message{
		ID:        uuid.NewString(),
		Sender:    SenderBot,
		Timestamp: displayTime(time.Now()),
		Content:   p.Content,
		Query:     p.Query,
		Rows:      p.Rows,
		Columns:   p.Columns,
		ChartSpec: p.ChartSpec,
	}
	l.msgs = append(l.msgs, msg)
	return msg
}

// Toggle flips the collapse state of exactly the message with the given id.
// Returns false if no such message exists.
func (l *MessageList) Toggle(id string) bool {
	for i := range l.msgs {
		if l.msgs[i].ID == id {
			l.msgs[i].Collapsed = !l.msgs[i].Collapsed
			return true
		}
	}
	return false
}

// Replace swaps the whole list, used when a hydration cycle completes.
func (l *MessageList) Replace(msgs []Message) {
	l.msgs = msgs
}

// Messages returns a copy of the list in insertion order.
func (l *MessageList) Messages() []Message {
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func (l *MessageList) Len() int {
	return len(l.msgs)
}

// History returns the last n turns in the role/content shape the backend
// expects as conversation context.
func (l *MessageList) History(n int) []backend.Turn {
	start := 0
	if len(l.msgs) > n {
		start = len(l.msgs) - n
	}
	turns := make([]backend.Turn, 0, len(l.msgs)-start)
	for _, m := range l.msgs[start:] {
		role := "user"
		if m.Sender == SenderBot {
			role = "assistant"
		}
		turns = append(turns, backend.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// displayTime formats a timestamp for rendering only; ordering never uses it.
func displayTime(t time.Time) string {
	return t.Format("Jan 2 15:04")
}

// displayTimestamp formats a transcript timestamp for rendering, passing it
// through verbatim when it is not RFC3339.
func displayTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return displayTime(t)
}
