package imports

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/importer"
)

type report struct {
	Rows     []importer.Row `json:"rows" yaml:"rows"`
	Valid    int            `json:"valid" yaml:"valid"`
	Invalid  int            `json:"invalid" yaml:"invalid"`
	Warnings int            `json:"warnings" yaml:"warnings"`
	Created  int            `json:"created" yaml:"created"`
	Failed   []string       `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// ImportCmd validates a spreadsheet export and stores its valid rows
type ImportCmd struct {
	File   string `arg:"" help:"CSV file to import (use - for stdin)."`
	DryRun bool   `help:"Only validate, store nothing." name:"dry-run"`
	Yes    bool   `help:"Do not ask before skipping invalid rows." short:"y"`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		in = f
	}
	raws, err := importer.ReadCSV(in)
	if err != nil {
		return err
	}

	rows := eng.ValidateImport(raws)
	rep := report{Rows: rows}
	rep.Valid, rep.Invalid, rep.Warnings = importer.Counts(rows)

	if !c.DryRun && rep.Valid > 0 {
		proceed := c.Yes || rep.Invalid == 0
		if !proceed {
			printRows(ctx.Writer(), rows)
			if proceed, err = confirm(rep.Valid, rep.Invalid); err != nil {
				return err
			}
		}
		if proceed {
			res, err := eng.CommitImport(rows)
			rep.Created = len(res.Created)
			for _, f := range res.Failed {
				rep.Failed = append(rep.Failed, fmt.Sprintf("row %d: %v", f.Row, f.Err))
			}
			if err != nil {
				return fmt.Errorf("import stopped after %d entries: %w", rep.Created, err)
			}
		}
	}

	return ctx.Render(rep, func(w io.Writer) error {
		printRows(w, rows)
		fmt.Fprintf(w, "\n%d valid, %d invalid, %d warnings\n", rep.Valid, rep.Invalid, rep.Warnings)
		if c.DryRun {
			fmt.Fprintln(w, "Dry run, nothing stored.")
			return nil
		}
		fmt.Fprintf(w, "✓ Created %d entries\n", rep.Created)
		for _, f := range rep.Failed {
			fmt.Fprintf(w, "  ❌ %s\n", f)
		}
		return nil
	})
}

func confirm(valid, invalid int) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Import %d valid rows and skip %d invalid ones?", valid, invalid)).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive form error: %w", err)
	}
	return ok, nil
}

func printRows(w io.Writer, rows []importer.Row) {
	for _, r := range rows {
		if r.Valid && len(r.Issues) == 0 {
			continue
		}
		mark := "⚠"
		if !r.Valid {
			mark = "❌"
		}
		date := r.Raw.Date
		if r.Valid {
			date = r.Date.Format(constants.DateFormat)
		}
		msgs := make([]string, 0, len(r.Issues))
		for _, is := range r.Issues {
			msgs = append(msgs, is.Message)
		}
		fmt.Fprintf(w, "  %s row %d (%s): %s\n", mark, r.RowNumber, date, strings.Join(msgs, "; "))
	}
}
