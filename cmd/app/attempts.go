// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/database"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/models"
	"codeberg.org/oliverandrich/portfolio/internal/repository"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

func attemptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "attempts",
		Usage: "List recent contact attempts",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Number of attempts to show",
			},
			&cli.StringFlag{
				Name:  "lang",
				Value: "en",
				Usage: "Language of the summary line",
			},
		}, config.CommonFlags()...),
		Action: listAttempts,
	}
}

func listAttempts(ctx context.Context, cmd *cli.Command) error {
	db, err := database.Open(cmd.String("database-dsn"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}
	ctx = i18n.WithLocale(ctx, i18n.MatchLanguage(cmd.String("lang")))

	repo := repository.New(db)
	attempts, err := repo.ListContactAttempts(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	counts, err := repo.CountContactAttemptsByState(ctx)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}

	return writeAttempts(ctx, cmd.Root().Writer, attempts, counts)
}

// writeAttempts prints one row per attempt and a per-state summary.
func writeAttempts(ctx context.Context, out io.Writer, attempts []models.ContactAttempt, counts map[string]int64) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATE\tSTATUS\tEMAIL\tSUBJECT")
	for _, a := range attempts {
		status := "-"
		if a.StatusCode != 0 {
			status = fmt.Sprint(a.StatusCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.State, status, a.Email, a.Subject)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	total := lo.Sum(lo.Values(counts))
	summary := i18n.TPlural(ctx, "attempts_count", int(total))
	if total > 0 {
		summary += fmt.Sprintf(" (%s)", stateSummary(counts))
	}
	_, err := fmt.Fprintln(out, summary)
	return err
}

func stateSummary(counts map[string]int64) string {
	states := slices.Sorted(maps.Keys(counts))
	return strings.Join(lo.Map(states, func(state string, _ int) string {
		return fmt.Sprintf("%s: %d", state, counts[state])
	}), ", ")
}
