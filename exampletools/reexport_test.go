package exampletools_test

import (
	"testing"

	"deepagent/exampletools"
)

func TestPlanningTools_ReturnsDescriptors(t *testing.T) {
	t.Parallel()

	tools := exampletools.PlanningTools()
	if len(tools) == 0 {
		t.Fatalf("expected at least one planning tool")
	}
}

func TestFilesystemTools_ReturnsDescriptors(t *testing.T) {
	t.Parallel()

	turn := 0
	tools := exampletools.FilesystemTools(func() int { return turn })
	if len(tools) == 0 {
		t.Fatalf("expected at least one filesystem tool")
	}
}
