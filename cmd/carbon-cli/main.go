package main

import (
	"os"

	"github.com/raine/telegram-carbon-bot/internal/bot"
	"github.com/raine/telegram-carbon-bot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(bot.Version).Execute(); err != nil {
		os.Exit(1)
	}
}
