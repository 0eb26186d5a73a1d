package cli

// Action is one entry of the interactive menu
type Action string

const (
	ActionAsk       Action = "ask"
	ActionSentiment Action = "sentiment"
	ActionStock     Action = "stock"
	ActionCompare   Action = "compare"
	ActionROI       Action = "roi"
	ActionStatus    Action = "status"
	ActionHistory   Action = "history"
	ActionExit      Action = "exit"
)

// actions is the menu in display order.
var actions = []Action{
	ActionAsk,
	ActionSentiment,
	ActionStock,
	ActionCompare,
	ActionROI,
	ActionStatus,
	ActionHistory,
	ActionExit,
}

// DisplayName returns the menu label of the action
func (a Action) DisplayName() string {
	switch a {
	case ActionAsk:
		return "💬 Ask the financial documents"
	case ActionSentiment:
		return "📰 Analyze text sentiment"
	case ActionStock:
		return "📈 Analyze a stock"
	case ActionCompare:
		return "⚖️  Compare two stocks"
	case ActionROI:
		return "💰 ROI calculator"
	case ActionStatus:
		return "🩺 Service status"
	case ActionHistory:
		return "🕘 Recent history"
	default:
		return "🚪 Exit"
	}
}

func actionFromDisplayName(name string) Action {
	for _, a := range actions {
		if a.DisplayName() == name {
			return a
		}
	}
	return ActionExit
}

// outputFormat is the encoding of `config show`.
type outputFormat string

const (
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)
