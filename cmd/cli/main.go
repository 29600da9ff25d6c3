package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/app"
	"github.com/wadjakorntonsri/linkstats/pkg/config"
	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/logging"
)

const usage = "expected 'export', 'import' or 'stats' subcommands"

func main() {
	cfg := config.Load()
	log := logging.New(cfg.AppEnv, cfg.LogLevel)
	log.SetOutput(os.Stderr)

	if err := run(context.Background(), cfg, log, os.Args[1:], os.Stdout); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New(usage)
	}

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	statsCmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	statsID := statsCmd.String("id", "", "link id")
	statsFrom := statsCmd.String("from", "", "range start (ISO-8601)")
	statsTo := statsCmd.String("to", "", "range end (ISO-8601)")

	var cmd func(*app.App) error
	switch args[0] {
	case "export":
		if err := exportCmd.Parse(args[1:]); err != nil {
			return err
		}
		cmd = func(a *app.App) error { return doExport(ctx, a, out) }
	case "import":
		if err := importCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.PrintDefaults()
			return errors.New("import: -file is required")
		}
		cmd = func(a *app.App) error { return doImport(ctx, a, log, *importFile) }
	case "stats":
		if err := statsCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *statsID == "" {
			statsCmd.PrintDefaults()
			return errors.New("stats: -id is required")
		}
		cmd = func(a *app.App) error { return doStats(ctx, a, *statsID, *statsFrom, *statsTo, out) }
	default:
		return errors.New(usage)
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmd(a)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func doExport(ctx context.Context, a *app.App, out io.Writer) error {
	links, err := a.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return writeJSON(out, links)
}

// doImport restores links with their original id, slug and creation time.
// Links whose slug is already present are skipped.
func doImport(ctx context.Context, a *app.App, log logrus.FieldLogger, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		return fmt.Errorf("import: decode %s: %w", filename, err)
	}

	count := 0
	for i := range links {
		l := links[i]
		entry := log.WithFields(logrus.Fields{"id": l.ID, "slug": l.Slug})
		if err := validateImported(&l); err != nil {
			entry.WithError(err).Warn("Skipping invalid link")
			continue
		}
		if err := a.Repo.Create(ctx, &l); err != nil {
			switch {
			case errors.Is(err, domain.ErrSlugTaken):
				entry.Info("Skipping existing slug")
			case errors.Is(err, domain.ErrLinkExists):
				entry.Info("Skipping existing link id")
			default:
				entry.WithError(err).Warn("Failed to import link")
			}
			continue
		}
		count++
	}
	log.WithField("count", count).Info("Imported links")
	return nil
}

// validateImported applies the same rules as link creation and normalizes
// the target URL and timestamp.
func validateImported(l *domain.Link) error {
	if l.ID == "" {
		return domain.NewValidationError("id", "is required")
	}
	if err := domain.ValidateSlug(l.Slug); err != nil {
		return err
	}
	target, err := domain.ValidateTargetURL(l.TargetURL)
	if err != nil {
		return err
	}
	l.TargetURL = target
	l.CreatedAt = l.CreatedAt.UTC()
	return nil
}

func doStats(ctx context.Context, a *app.App, id, from, to string, out io.Writer) error {
	summary, err := a.Analytics.Summary(ctx, id, from, to)
	if err != nil {
		return err
	}
	daily, err := a.Analytics.Daily(ctx, id, from, to)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]any{
		"link_id": id,
		"total":   summary.Total,
		"daily":   daily,
	})
}
