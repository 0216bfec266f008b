package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Write a digest on a cron schedule",
		Long: "Runs the digest command on a five-field cron expression until interrupted.\n" +
			"Runs never overlap; a run still in progress delays the next one.",
		Run: runSchedule,
	}

	cmd.Flags().String("cron", "", "Cron expression (default: schedule from config, \"0 8 * * 1\")")
	cmd.Flags().StringP("out", "o", "", "Output directory (default: $OUTPUT_DIR or ./newsletters)")
	cmd.Flags().Bool("now", false, "Also run once immediately")

	RootCmd.AddCommand(cmd)
}

func runSchedule(cmd *cobra.Command, args []string) {
	expr, _ := cmd.Flags().GetString("cron")
	out, _ := cmd.Flags().GetString("out")
	runNow, _ := cmd.Flags().GetBool("now")

	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("load config", err)
	}
	if expr == "" {
		expr = cfg.Schedule
	}
	if out != "" {
		cfg.OutputDir = out
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		exitErr("create scheduler", err)
	}

	task := func() {
		if _, err := makeDigest(ctx, cfg, logger, nil); err != nil {
			logger.WithError(err).Error("scheduled digest failed")
		}
	}
	job, err := s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName("digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		exitErr("schedule digest", err)
	}

	s.Start()
	next, _ := job.NextRun()
	logger.WithFields(logrus.Fields{"cron": expr, "next_run": next}).Info("scheduler started")

	if runNow {
		if err := job.RunNow(); err != nil {
			logger.WithError(err).Error("immediate run failed")
		}
	}

	<-ctx.Done()
	logger.Info("shutting down scheduler")
	if err := s.Shutdown(); err != nil {
		exitErr("shutdown scheduler", err)
	}
}
