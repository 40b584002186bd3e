package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/demianzx/gamefeed/cmd/cli/internal/commands"
	"github.com/demianzx/gamefeed/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Sign in to gamefeed"`
		Register commands.RegisterCmd `cmd:"" help:"Create a gamefeed account"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Sign out and clear the stored session"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the signed-in user"`
		Refresh  commands.RefreshCmd  `cmd:"" help:"Renew the stored session"`
		Articles commands.ArticlesCmd `cmd:"" help:"Browse published articles"`
		Admin    commands.AdminCmd    `cmd:"" help:"Admin back-office commands"`

		APIURL   string `help:"Base URL of the gamefeed API." env:"GAMEFEED_API_URL" default:"https://api.gamefeed.gg"`
		StateDir string `help:"Directory holding local session state." env:"GAMEFEED_STATE_DIR"`
		Debug    bool   `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		APIURL:   cli.APIURL,
		StateDir: cli.StateDir,
		Debug:    cli.Debug,
		Version:  version,
	})
	cmd.FatalIfErrorf(err)
}
