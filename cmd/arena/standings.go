package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/park285/cheese-arena/internal/ledger"
)

func standingsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	rows, err := queryStandings(ctx, lg, cmd.Args().Slice())
	if err != nil {
		return err
	}
	return printStandings(os.Stdout, rows, cmd.String("format"))
}

// queryStandings interprets "", "top N" or "player NAME".
func queryStandings(ctx context.Context, lg *ledger.Ledger, args []string) ([]ledger.Standing, error) {
	if len(args) == 0 {
		return lg.Query(ctx)
	}
	switch strings.ToLower(args[0]) {
	case "top":
		n := 10
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("top: %q is not a number", args[1])
			}
			n = v
		}
		return lg.QueryTop(ctx, n)
	case "player":
		if len(args) < 2 {
			return nil, fmt.Errorf("player: name required")
		}
		st, err := lg.QueryPlayer(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return nil, err
		}
		return []ledger.Standing{*st}, nil
	default:
		return nil, fmt.Errorf("unknown standings query %q", args[0])
	}
}

func printStandings(w io.Writer, rows []ledger.Standing, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tW\tL\tD\tGAMES")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n", i+1, r.Name, r.Wins, r.Losses, r.Draws, r.TotalGames)
	}
	return tw.Flush()
}
