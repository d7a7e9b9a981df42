package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/daylog/internal/api"
	"github.com/julianstephens/daylog/internal/cli"
)

type ServeCmd struct {
	Listen string `help:"Address to listen on (default from DAYLOG_LISTEN)." short:"a"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	addr := c.Listen
	if addr == "" {
		addr = ctx.Config.Listen
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Printf("Serving the daylog API on http://%s\n", addr)
	return api.NewServer(eng).Run(sigCtx, addr)
}
