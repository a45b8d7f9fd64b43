package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/services/api"
	logsvc "github.com/NVK2907/sms-app-sub000/services/logger"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
)

func main() {
	conf := core.Conf

	console := logsvc.NewConsoleLogger(os.Stderr, conf.Debug)
	if os.Getenv("SMSCTL_VERBOSE") == "" {
		console.Logrus().SetLevel(logrus.WarnLevel)
	}
	logger := logsvc.New(console, conf)

	client, err := api.NewClient(api.Options{Logger: logger})
	errAndDie(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := newCommandLine(sessionstore.NewFileStore(conf.SessionFile), client, logger, os.Stdout)
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) && !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
