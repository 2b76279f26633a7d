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
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/thirdjal/A10-cli-deploy/internal/axapi"
	"github.com/thirdjal/A10-cli-deploy/internal/logx"
	"github.com/thirdjal/A10-cli-deploy/internal/metrics"
	"github.com/thirdjal/A10-cli-deploy/internal/output"
	"github.com/thirdjal/A10-cli-deploy/internal/repository"
	"github.com/thirdjal/A10-cli-deploy/internal/service"
	"github.com/thirdjal/A10-cli-deploy/pkg/config"
	"github.com/thirdjal/A10-cli-deploy/pkg/importexport"
	"github.com/thirdjal/A10-cli-deploy/pkg/secret"
)

func main() { os.Exit(run(os.Args[1:])) }

func run(args []string) int {
	fs := flag.NewFlagSet("a10-cli-deploy", flag.ContinueOnError)
	cfgPath := fs.String("c", "", "config file (TOML)")
	debug := fs.Bool("debug", false, "debug logging")
	workers := fs.Int("workers", 0, "number of concurrent device sessions")
	insecure := fs.Bool("insecure", true, "skip device TLS certificate verification")
	hosts := fs.String("hosts", "", "host list file")
	commands := fs.String("commands", "", "command list file")
	outDir := fs.String("output", "", "result directory")
	showRuns := fs.Int("history", 0, "print the last N runs from the history store and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	// 只覆盖命令行显式给出的参数
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "insecure":
			cfg.InsecureSkipVerify = *insecure
		case "hosts":
			cfg.HostsFile = *hosts
		case "commands":
			cfg.CommandsFile = *commands
		case "output":
			cfg.OutputDir = *outDir
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}
	log := logx.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}

	if *showRuns > 0 {
		if err := showHistory(os.Stdout, cfg, *showRuns); err != nil {
			log.WithError(err).Error("history")
			return 1
		}
		return 0
	}

	targets, err := importexport.LoadTargets(cfg.Resolve(cfg.HostsFile))
	if err != nil {
		log.WithError(err).Error("load hosts")
		return 1
	}
	batch, err := importexport.LoadBatch(cfg.Resolve(cfg.CommandsFile))
	if err != nil {
		log.WithError(err).Error("load commands")
		return 1
	}
	sink, err := output.NewSink(cfg.WorkDir, cfg.OutputDir, log)
	if err != nil {
		log.WithError(err).Error("output")
		return 1
	}
	cred, err := (&secret.Prompter{}).Credential(cfg.Username, cfg.Domain)
	if err != nil {
		log.WithError(err).Error("credentials")
		return 1
	}

	client := axapi.NewClient(axapi.Options{Timeout: cfg.Timeout.Duration, InsecureSkipVerify: cfg.InsecureSkipVerify, Log: log})
	defer client.Close()
	if client.InsecureSkipVerify() {
		log.Warn("TLS certificate verification is disabled")
	}

	m := metrics.New()
	disp := service.NewDispatcher(client, sink, cfg.Workers, log)
	disp.SetMetrics(m)
	coord := service.NewCoordinator(disp, log)
	coord.SetMetrics(m)

	if cfg.History {
		hRepo, hw, closeDB, err := openHistory(cfg, log)
		if err != nil {
			log.WithError(err).Error("history store")
			return 1
		}
		defer closeDB()
		defer hw.Close()
		disp.SetHistoryWriter(hw)
		coord.SetRunRecorder(hRepo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.WithFields(logrus.Fields{"devices": len(targets), "workers": disp.Workers(), "user": cred.Username}).Debug("starting run")
	_, err = coord.Execute(ctx, targets, batch, cred)

	if cfg.MetricsFile != "" {
		if werr := m.WriteTextfile(cfg.Resolve(cfg.MetricsFile)); werr != nil {
			log.WithError(werr).Warn("write metrics textfile")
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Error("interrupted")
		} else {
			log.WithError(err).Error("run aborted")
		}
		return 1
	}
	return 0
}

// openHistory 打开历史库、建表并按保留策略清理一次
func openHistory(cfg *config.Config, log logrus.FieldLogger) (*repository.HistoryRepo, *service.HistoryWriter, func(), error) {
	db, err := repository.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, nil, err
	}
	hRepo := repository.NewHistoryRepo(db)
	if err := hRepo.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if cfg.HistoryRetentionDays > 0 || cfg.HistoryMaxRows > 0 {
		start := time.Now()
		if err := hRepo.Cleanup(cfg.HistoryRetentionDays, cfg.HistoryMaxRows); err != nil {
			log.WithError(err).Warn("history cleanup")
		} else {
			log.Debugf("history cleanup took %s", time.Since(start))
		}
	}
	hw := service.NewHistoryWriter(hRepo, cfg.HistoryFlushInterval.Duration, cfg.HistoryBatchSize, log)
	return hRepo, hw, func() { _ = db.Close() }, nil
}

// showHistory 打印最近 n 次运行及其设备结果
func showHistory(w io.Writer, cfg *config.Config, n int) error {
	db, err := repository.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	hRepo := repository.NewHistoryRepo(db)
	if err := hRepo.EnsureSchema(); err != nil {
		return err
	}
	return printHistory(w, hRepo, n)
}

func printHistory(w io.Writer, hRepo repository.HistoryRepoIface, n int) error {
	runs, err := hRepo.ListRuns(n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range runs {
		fmt.Fprintf(tw, "run %s\t%s\ttargets=%d\tfailed=%d\tcommands=%d\ttook=%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Targets, r.Failed, r.Commands, time.Duration(r.DurationMs)*time.Millisecond)
		rows, err := hRepo.ListFiltered(r.Targets+1, r.ID, "")
		if err != nil {
			return err
		}
		for _, d := range rows {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%s\n", d.Host, d.Stage, d.StatusCode, humanize.Bytes(uint64(d.Bytes)), d.ErrorText)
		}
	}
	return tw.Flush()
}
