package config

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Turso         TursoConfig
	Solana        SolanaConfig
	Twilio        TwilioConfig
	Slack         SlackConfig
	ProjectID     string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type SolanaConfig struct {
	RPCURL           string
	EscrowWallet     string
	EscrowPrivateKey string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}
