package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"dayhelper/internal/config"
	"dayhelper/internal/ics"
	"dayhelper/internal/logging"
	"dayhelper/internal/notify"
	"dayhelper/internal/planner"
	"dayhelper/internal/poller"
	"dayhelper/internal/storage"
	"dayhelper/internal/ui"
)

func main() {
	fs := flag.NewFlagSet("dayhelper", flag.ExitOnError)
	fs.Usage = func() { printUsage(fs, os.Stderr) }
	configPath := fs.String("config", config.ResolveConfigPath(), "path to config file")
	fs.Parse(os.Args[1:])

	command := "run"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	if command == "help" {
		printUsage(fs, os.Stdout)
		return
	}

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Printf("failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	store, err := storage.Open(cfg.Backend, cfg.DataPath, cfg.DBPath)
	if err != nil {
		fmt.Printf("failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch command {
	case "run":
		err = runUI(cfg, store, logger)
	case "export-ics":
		err = exportICS(store, logger, fs.Args()[1:], os.Stdout)
	default:
		printUsage(fs, os.Stderr)
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		logger.Error("exiting with error", "command", command, "err", err)
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func runUI(cfg config.Config, store storage.Backend, logger *log.Logger) error {
	queue := notify.NewQueue()
	p := planner.New(store, logger.WithPrefix("planner"))
	if err := p.Load(); err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			return fmt.Errorf("load data: %w", err)
		}
		queue.Push(notify.Warning("Stored data unreadable", corruptNotice(err)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := poller.NewScheduler(cfg.PollSchedule, logger.WithPrefix("poller"),
		poller.NewDueTasks(p, queue, logger.WithPrefix("due-tasks")),
		poller.NewReminders(p, queue, logger.WithPrefix("reminders")),
	)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	logger.Info("dayhelper started", "backend", cfg.Backend, "schedule", cfg.PollSchedule)
	uiErr := ui.Run(ctx, p, queue, cfg)

	stop()
	<-sched.Done()
	if err := p.Close(); err != nil && uiErr == nil {
		uiErr = err
	}
	logger.Info("dayhelper exiting")
	return uiErr
}

func corruptNotice(err error) string {
	msg := err.Error() + "\nStarting with an empty planner."
	var cerr *storage.CorruptError
	if errors.As(err, &cerr) && cerr.BackupErr != nil {
		msg += "\nThe file could not be backed up, so changes will not be saved until it is moved or repaired."
	}
	return msg
}

// exportICS never modifies the data file, even when it is corrupt.
func exportICS(store storage.Backend, logger *log.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export-ics", flag.ContinueOnError)
	out := fs.String("o", "dayhelper.ics", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := planner.New(storage.ReadOnly(store), logger.WithPrefix("planner"))
	if err := p.Load(); err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()

	skipped, err := ics.Export(f, p.Snapshot(), time.Now())
	if err != nil {
		return err
	}
	for _, date := range skipped {
		fmt.Fprintf(stdout, "skipped entries under %q: not a YYYY-MM-DD date\n", date)
	}
	fmt.Fprintf(stdout, "wrote %s\n", *out)
	return f.Close()
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: dayhelper [-config path] [command]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run                  open the planner (default)\n")
	fmt.Fprintf(w, "  export-ics [-o file] write tasks and notes as an iCalendar file\n")
	fmt.Fprintf(w, "  help                 show this help\n\n")
	fmt.Fprintf(w, "Flags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
