package agent

// Profile is the fixed configuration of an agent.
type Profile struct {
	Name          string
	Description   string
	SystemPrompt  string
	Tools         []string // tool names; empty = all tools
	MaxIterations int
}

const (
	defaultSystemPrompt = "You are a calculator assistant. Use the calculator tool for every arithmetic " +
		"operation and answer with the number it returns. Never compute results yourself."
	defaultMaxIterations = 10
)
