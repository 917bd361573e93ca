package viewer

// Config holds configuration for the viewer.
type Config struct {
	// Exchange is the initial exchange text.
	Exchange string
	// Symbol is the initial symbol text.
	Symbol string
	// DiscardStale drops responses that arrive after a newer one was applied.
	DiscardStale bool
	// EventBuffer is the size of the state events channel.
	EventBuffer int
	// DropEvents determines whether the events channel drops on overflow.
	DropEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Exchange:    "binance",
		Symbol:      "BTC/USDT",
		EventBuffer: 64,
		DropEvents:  true,
	}
}
