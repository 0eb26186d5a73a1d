package consts

const (
	State_Idle      = "idle"
	State_Pending   = "pending"
	State_Succeeded = "succeeded"
	State_Failed    = "failed"
)

// Event topics published through the bridge.
const (
	Topic_ToolStatePrefix = "tool."
	Topic_ToolStateSuffix = ".state"
	Topic_ROIUpdated      = "roi.updated"
	Topic_EngineReloaded  = "engine.reloaded"
	Topic_EngineFailed    = "engine.reload_failed"
)

// ToolStateTopic returns the topic a slot publishes its transitions on.
func ToolStateTopic(tool string) string {
	return Topic_ToolStatePrefix + tool + Topic_ToolStateSuffix
}
