package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoportal "github.com/NVK2907/sms-app-sub000/apps/portal/echo"
	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/services/api"
	logsvc "github.com/NVK2907/sms-app-sub000/services/logger"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf
	logger := logsvc.New(logsvc.NewConsoleLogger(os.Stdout, conf.Debug), conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := sessionstore.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening session backend: %v", err), err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Error("closing session backend", err)
		}
	}()

	client, err := api.NewClient(api.Options{Logger: logger})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up API client: %v", err), err)
	}

	// =========================================================================
	// Start Portal

	logger.Info(fmt.Sprintf("Portal initializing : version %q", conf.Build), map[string]interface{}{
		"env":      conf.Env,
		"api":      conf.API.BaseURL,
		"sessions": conf.Portal.SessionBackend,
	})
	defer logger.Info("Portal stopped")

	server, err := echoportal.NewServer(&echoportal.Options{
		Address:     conf.Portal.Address,
		Logger:      logger,
		Sessions:    sessions,
		API:         client,
		CookieName:  conf.Portal.CookieName,
		LoginRate:   conf.Portal.LoginRate,
		MetricsPath: conf.Portal.MetricsPath,
		NotifyTTL:   conf.NotifyTimeout,
		PageSize:    conf.List.PageSize,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up portal: %v", err), err)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-errs:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}
	case <-ctx.Done():
		logger.Info("Start shutdown...")

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = server.Stop(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
