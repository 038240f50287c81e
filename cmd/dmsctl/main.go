// Command dmsctl enqueues maintenance jobs and inspects the job queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-dms/cmd/dmsctl/cli"
	"github.com/odyssey-erp/odyssey-dms/internal/app"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: dmsctl <command> [args]

commands:
  queue                              show default queue counters
  scheduled [-n size]                list scheduled tasks
  trigger idempotency:cleanup        purge old approval request keys now
  trigger receipt:generate <wf> <key>  regenerate a loading group receipt
`)
}

func main() {
	if app.InTestMode() {
		return
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetention)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("close jobs cli", slog.Any("error", err))
		}
	}()

	if err := run(ctx, jobsCLI, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("dmsctl", slog.String("command", os.Args[1]), slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.JobsCLI, command string, args []string) error {
	switch command {
	case "queue":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		fs := flag.NewFlagSet("scheduled", flag.ContinueOnError)
		size := fs.Int("n", 10, "page size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		tasks, err := c.ListScheduled(ctx, *size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
		}
	case "trigger":
		if len(args) == 0 {
			usage()
			return fmt.Errorf("trigger needs a job name")
		}
		info, err := c.Trigger(ctx, args[0], args[1:]...)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
