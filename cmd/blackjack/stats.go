package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/blackjack/internal/ledger"
)

// StatsCmd prints the cumulative ledger and the most recent rounds
type StatsCmd struct {
	Recent int `short:"n" default:"10" help:"Number of recent rounds to list"`
}

func (c *StatsCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	totals, err := store.Totals(ctx)
	if err != nil {
		return fmt.Errorf("failed to read totals: %w", err)
	}
	if totals.Rounds == 0 {
		fmt.Println("No rounds recorded yet")
		return nil
	}

	header := lipgloss.NewStyle().Bold(true)
	fmt.Println(header.Render("Ledger totals"))
	fmt.Printf("Rounds %d, hands %d\n", totals.Rounds, totals.Hands)
	fmt.Printf("Wins %d (blackjacks %d), pushes %d, losses %d\n",
		totals.Wins, totals.Blackjacks, totals.Pushes, totals.Losses)
	fmt.Printf("Staked $%d, paid $%d, net %+d\n", totals.Staked, totals.Paid, totals.Net())
	fmt.Printf("Balance $%d (updated %s)\n", totals.Balance, totals.UpdatedAt.Local().Format(time.DateTime))

	if c.Recent <= 0 {
		return nil
	}
	entries, err := store.Recent(ctx, c.Recent)
	if err != nil {
		return fmt.Errorf("failed to read recent rounds: %w", err)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Settled", "Round", "Dealer", "Hands", "Net", "Balance").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, e := range entries {
		results := make([]string, len(e.Outcomes))
		for i, o := range e.Outcomes {
			results[i] = o.Result.String()
		}
		t.Row(
			e.SettledAt.Local().Format(time.DateTime),
			shortID(e.RoundID),
			strconv.Itoa(e.DealerValue),
			strings.Join(results, " "),
			fmt.Sprintf("%+d", e.Net()),
			balanceCell(e),
		)
	}
	_, err = fmt.Fprintln(os.Stdout, t.Render())
	return err
}

// balanceCell is blank for rounds from anonymous server sessions
func balanceCell(e ledger.Entry) string {
	if e.Anonymous {
		return "-"
	}
	return "$" + strconv.Itoa(e.Balance)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
