package system

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	p := tea.NewProgram(tui.NewModel(eng), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
