package inmem_test

import (
	"context"
	"testing"

	"deepagent/agent"
	eventinginmem "deepagent/eventing/inmem"
)

func TestSink_EventsReturnsDeepClonedSnapshot(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	message := agent.NewAssistantText("hello")
	toolResult := agent.OKToolResultBlock("call-1", "result")

	input := agent.Event{
		RunID:      "run-1",
		Step:       1,
		Type:       agent.EventTypeAssistantMessage,
		Message:    &message,
		ToolResult: &toolResult,
	}
	if err := sink.Publish(context.Background(), input); err != nil {
		t.Fatalf("publish event: %v", err)
	}

	input.Message.Content[0].Text = "mutated"
	input.ToolResult.Payload = "mutated"

	snapshot := sink.Events()
	if len(snapshot) != 1 {
		t.Fatalf("unexpected snapshot length: %d", len(snapshot))
	}
	if snapshot[0].Message == nil || agent.FinalText(*snapshot[0].Message) != "hello" {
		t.Fatalf("unexpected message snapshot: %+v", snapshot[0].Message)
	}
	if snapshot[0].ToolResult == nil || snapshot[0].ToolResult.Payload != "result" {
		t.Fatalf("unexpected tool result snapshot: %+v", snapshot[0].ToolResult)
	}

	snapshot[0].Message.Content[0].Text = "changed"
	snapshot[0].ToolResult.Payload = "changed"

	next := sink.Events()
	if next[0].Message == nil || agent.FinalText(*next[0].Message) != "hello" {
		t.Fatalf("snapshot mutation leaked into sink message: %+v", next[0].Message)
	}
	if next[0].ToolResult == nil || next[0].ToolResult.Payload != "result" {
		t.Fatalf("snapshot mutation leaked into sink tool result: %+v", next[0].ToolResult)
	}
}
