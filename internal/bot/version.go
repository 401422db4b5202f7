package bot

// Set at build time with -ldflags "-X github.com/raine/telegram-carbon-bot/internal/bot.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)
