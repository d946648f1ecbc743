package agent

import (
	"fmt"
	"sync"
)

// MessageStore is the single source of truth for one run's transcript.
// Append enforces the three invariants the rest of the runtime leans
// on without re-checking: role alternation, that every ToolUse in an
// assistant message is answered by exactly one same-id ToolResult in the
// very next user message, and that the answering message carries only
// ToolResult blocks in the ToolUse blocks' order.
type MessageStore struct {
	mu       sync.Mutex
	messages []Message
}

// NewMessageStore returns an empty store, optionally seeded with a prior
// transcript (e.g. restored from a SessionSnapshot).
func NewMessageStore(seed []Message) *MessageStore {
	return &MessageStore{messages: CloneMessages(seed)}
}

// View returns a defensive deep copy of the transcript so far.
func (s *MessageStore) View() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneMessages(s.messages)
}

// Len reports the number of messages appended so far.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// AppendUser appends a user message.
func (s *MessageStore) AppendUser(msg Message) error {
	return s.append(RoleUser, msg)
}

// AppendAssistant appends an assistant message.
func (s *MessageStore) AppendAssistant(msg Message) error {
	return s.append(RoleAssistant, msg)
}

func (s *MessageStore) append(expectRole Role, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Role != expectRole {
		return fmt.Errorf("%w: append role=%s expected=%s", ErrInvariantViolation, msg.Role, expectRole)
	}
	if len(s.messages) > 0 {
		last := s.messages[len(s.messages)-1]
		if last.Role == msg.Role {
			return fmt.Errorf("%w: two consecutive %s messages", ErrInvariantViolation, msg.Role)
		}
	}

	if msg.Role == RoleUser {
		if err := validateToolResultAnswer(s.messages, msg); err != nil {
			return err
		}
	}

	s.messages = append(s.messages, CloneMessage(msg))
	return nil
}

// validateToolResultAnswer enforces the per-batch answer contract: if the
// prior assistant message carried ToolUse blocks, this user message
// must carry exactly those ids, as ToolResult blocks, in the same order, and
// nothing else. A plain user turn (no pending tool uses) may carry any
// content, including a fresh Text prompt.
func validateToolResultAnswer(prior []Message, next Message) error {
	if len(prior) == 0 {
		return nil
	}
	last := prior[len(prior)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	pendingIDs := ToolUseIDsOf(last)
	if len(pendingIDs) == 0 {
		return nil
	}

	if len(next.Content) != len(pendingIDs) {
		return fmt.Errorf(
			"%w: expected %d tool_result blocks, got %d",
			ErrInvariantViolation, len(pendingIDs), len(next.Content),
		)
	}
	for i, block := range next.Content {
		if block.Kind != BlockKindToolResult {
			return fmt.Errorf("%w: expected tool_result block at position %d, got %s", ErrInvariantViolation, i, block.Kind)
		}
		if block.ID != pendingIDs[i] {
			return fmt.Errorf("%w: tool_result id %q at position %d does not match pending tool_use id %q", ErrInvariantViolation, block.ID, i, pendingIDs[i])
		}
	}
	return nil
}

// LastAssistantToolUses returns the ToolUse blocks of the most recent
// message if it is an assistant message, or nil otherwise. The driver calls
// this to decide whether to dispatch tool calls or stop.
func (s *MessageStore) LastAssistantToolUses() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	last := s.messages[len(s.messages)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	return ToolUseBlocksOf(last)
}
