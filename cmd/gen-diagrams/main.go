// gen-diagrams generates sample layout outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/traceviz/internal/diagram"
	"github.com/rendis/traceviz/pkg/schema"
)

func main() {
	// Research session: user asks → agent calls the model, runs a web
	// search, delegates to a writer sub-agent, then answers.
	steps := []schema.VisualizerStep{
		{ID: "s1", Type: schema.StepUserRequest, OwningTaskID: "t1",
			Data: schema.StepData{AgentName: "researcher", Text: "Summarize recent fusion milestones"}},
		{ID: "s2", Type: schema.StepLLMCall, OwningTaskID: "t1",
			Data: schema.StepData{Model: "gpt-4o"}},
		{ID: "s3", Type: schema.StepToolInvocationStart, OwningTaskID: "t1",
			FunctionCallID: "fc1",
			Data:           schema.StepData{ToolName: "web_search", FunctionCallID: "fc1"}},
		{ID: "s4", Type: schema.StepToolExecutionResult, OwningTaskID: "t1",
			FunctionCallID: "fc1",
			Data:           schema.StepData{ToolName: "web_search", FunctionCallID: "fc1"}},
		{ID: "s5", Type: schema.StepToolInvocationStart, OwningTaskID: "t1",
			FunctionCallID: "fc2",
			Delegation:     &schema.DelegationInfo{ParentTaskID: "t1", SubTaskID: "t2", TargetAgent: "writer"},
			Data:           schema.StepData{ToolName: "peer_writer", FunctionCallID: "fc2"}},
		{ID: "s6", Type: schema.StepUserRequest, OwningTaskID: "t2", ParentTaskID: "t1",
			NestingLevel: 1,
			Data:         schema.StepData{AgentName: "writer", Text: "Draft the summary"}},
		{ID: "s7", Type: schema.StepLLMCall, OwningTaskID: "t2", ParentTaskID: "t1",
			NestingLevel: 1,
			Data:         schema.StepData{Model: "gpt-4o-mini"}},
		{ID: "s8", Type: schema.StepResponseText, OwningTaskID: "t2", ParentTaskID: "t1",
			NestingLevel: 1,
			Data:         schema.StepData{Text: "Draft ready"}},
		{ID: "s9", Type: schema.StepToolExecutionResult, OwningTaskID: "t1",
			FunctionCallID: "fc2",
			Data:           schema.StepData{ToolName: "peer_writer", FunctionCallID: "fc2"}},
		{ID: "s10", Type: schema.StepLLMResponse, OwningTaskID: "t1",
			Data: schema.StepData{}},
		{ID: "s11", Type: schema.StepResponseText, OwningTaskID: "t1",
			Data: schema.StepData{Text: "Here is the summary of recent fusion milestones."}},
	}
	names := schema.AgentNameMap{"researcher": "Researcher", "writer": "Writer"}

	layout := diagram.Compile(steps, names)

	outDir := filepath.Join("docs", "assets")
	os.MkdirAll(outDir, 0o755)

	ascii := diagram.RenderASCII(layout)
	os.WriteFile(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii), 0o644)
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	mermaid := diagram.RenderMermaid(layout)
	os.WriteFile(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"), 0o644)
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	png, imgErr := diagram.RenderImage(layout)
	if imgErr != nil {
		fmt.Fprintf(os.Stderr, "image render skipped: %v\n", imgErr)
		return
	}
	os.WriteFile(filepath.Join(outDir, "diagram.png"), png, 0o644)
	fmt.Println("wrote docs/assets/diagram.png")
}
