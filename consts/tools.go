package consts

// Tool slots. Each name is also the slot's event topic segment.
const (
	ToolAsk          = "ask"
	ToolSentiment    = "sentiment"
	ToolStockAnalyze = "stock_analyze"
	ToolStockCompare = "stock_compare"
)

// Tools lists every slot in display order.
var Tools = []string{ToolAsk, ToolSentiment, ToolStockAnalyze, ToolStockCompare}

// Service endpoints, relative to the configured base URL.
const (
	PathAsk          = "/ask"
	PathSentiment    = "/sentiment"
	PathStockAnalyze = "/stock/analyze"
	PathStockCompare = "/stock/compare"
	PathHealth       = "/health"
	PathMetrics      = "/metrics"
)
