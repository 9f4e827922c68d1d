package mcptools

// --- MCP tool types ---
// Plan inputs are behavior-tree XML documents; logic inputs are a #define
// macro block followed by one LTL formula.

// CompilePlanInput is the input for the compile_plan MCP tool.
type CompilePlanInput struct {
	PlanXML  string `json:"planXml" jsonschema:"behavior tree XML of the mission plan"`
	Template string `json:"template,omitempty" jsonschema:"Promela prefix to compile against (default: the configured template)"`
}

// CompilePlanOutput is the result of the compile_plan MCP tool.
type CompilePlanOutput struct {
	Model   string   `json:"model"`
	Tasks   []string `json:"tasks"`
	Globals []string `json:"globals"`
}

// CountPlanTasksInput is the input for the count_plan_tasks MCP tool.
type CountPlanTasksInput struct {
	PlanXML string `json:"planXml" jsonschema:"behavior tree XML of the mission plan"`
}

// CountPlanTasksOutput is the result of the count_plan_tasks MCP tool.
type CountPlanTasksOutput struct {
	Count   int      `json:"count"`
	Actions []string `json:"actions"`
}

// AlignMacrosInput is the input for the align_macros MCP tool.
type AlignMacrosInput struct {
	PlanXML string `json:"planXml" jsonschema:"behavior tree XML of the mission plan"`
	Logic   string `json:"logic" jsonschema:"#define macro block followed by an LTL formula"`
}

// AlignMacrosOutput is the result of the align_macros MCP tool.
type AlignMacrosOutput struct {
	Macros  []string `json:"macros"`
	Formula string   `json:"formula"`
	Renamed int      `json:"renamed"`
}

// CheckConsistencyInput is the input for the check_consistency MCP tool.
type CheckConsistencyInput struct {
	PlanXML string `json:"planXml" jsonschema:"behavior tree XML of the mission plan"`
	Logic   string `json:"logic" jsonschema:"#define macro block followed by an LTL formula"`
}

// CheckConsistencyOutput is the result of the check_consistency MCP tool.
type CheckConsistencyOutput struct {
	PlanTasks        int    `json:"planTasks"`
	LogicTransitions int    `json:"logicTransitions"`
	Consistent       bool   `json:"consistent"`
	Feedback         string `json:"feedback,omitempty"`
}

// VerifyMissionInput is the input for the verify_mission MCP tool.
type VerifyMissionInput struct {
	PlanXML string `json:"planXml" jsonschema:"behavior tree XML of the mission plan"`
	Logic   string `json:"logic" jsonschema:"#define macro block followed by an LTL formula"`
}

// VerifyMissionOutput is the result of the verify_mission MCP tool.
type VerifyMissionOutput struct {
	Outcome        string `json:"outcome"` // "passed", "violated" or "setup-failed"
	Counterexample string `json:"counterexample,omitempty"`
	ModelPath      string `json:"modelPath,omitempty"`
	TrailPath      string `json:"trailPath,omitempty"`
}

// RunMissionInput is the input for the run_mission MCP tool.
type RunMissionInput struct {
	Request string `json:"request" jsonschema:"natural-language mission request"`
}

// RunMissionOutput is the result of the run_mission MCP tool.
type RunMissionOutput struct {
	RunID        string `json:"runId"`
	Outcome      string `json:"outcome"` // "succeeded" or "failed"
	Category     string `json:"category,omitempty"`
	Message      string `json:"message,omitempty"`
	Retries      int    `json:"retries"`
	ArtifactPath string `json:"artifactPath,omitempty"`
	PlanXML      string `json:"planXml,omitempty"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default: 20)"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary is a brief overview of one recorded run.
type RunSummary struct {
	RunID     string `json:"runId"`
	Request   string `json:"request"`
	Outcome   string `json:"outcome"`
	Category  string `json:"category,omitempty"`
	Retries   int    `json:"retries"`
	StartedAt string `json:"startedAt"`
}
