package outline

// Export internal functions and options for testing
var (
	// StripCodeFence is exported for testing fence removal
	StripCodeFence = stripCodeFence

	// BuildUserPrompt is exported for testing prompt construction
	BuildUserPrompt = buildUserPrompt

	// WithSleepFunc is exported so tests can observe backoff delays
	// without waiting for them
	WithSleepFunc = withSleepFunc
)
