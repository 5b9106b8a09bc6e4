package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/THE-STEAMERS/SmartChainERP/internal/auth"
	"github.com/THE-STEAMERS/SmartChainERP/internal/backend"
	"github.com/THE-STEAMERS/SmartChainERP/internal/config"
	"github.com/THE-STEAMERS/SmartChainERP/internal/dashboard"
	"github.com/THE-STEAMERS/SmartChainERP/internal/feed"
	"github.com/THE-STEAMERS/SmartChainERP/internal/logging"
	"github.com/THE-STEAMERS/SmartChainERP/internal/notify"
)

// main wires the dashboard daemon: the authenticated backend client, the
// two dashboard view states, the notification center and the MQTT anomaly
// feed. It runs until SIGINT or SIGTERM.
func main() {
	cfg := config.Load()
	log := logging.New("dashboardd")

	store := auth.NewFileStore(cfg.TokenFile)
	authed := auth.NewClient(cfg.APIBaseURL, store, log)
	api := backend.NewClient(authed)

	center := notify.NewCenter(cfg.ToastTTL)
	defer center.Close()

	manufacturer := dashboard.NewManufacturer(api, center, cfg.CountsInterval, cfg.ShipmentsInterval, log)
	employee := dashboard.NewEmployee(api, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := feed.Options{
		AnomalyTopic:     cfg.AnomalyTopic,
		ReconnectDelay:   cfg.ReconnectDelay,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
	}
	if cfg.PresenceDeviceID != "" {
		opts.PresenceTopic = "device/raspberry-pi/presence/" + cfg.PresenceDeviceID
	}
	listener := feed.NewListener(opts, feed.NewPahoDialer(feed.PahoConfig{
		BrokerURL:      cfg.BrokerURL,
		KeepAlive:      cfg.KeepAlive,
		ConnectTimeout: cfg.ConnectTimeout,
	}), feed.Events{
		OnAnomaly: manufacturer.OnAnomaly,
		OnState: func(s feed.State) {
			log.Info("broker state changed", "state", s.String())
			manufacturer.SetConnected(s == feed.StateConnected)
		},
		OnDeviceOnline: func(online bool) {
			log.Info("device presence changed", "online", online)
		},
	}, log)

	manufacturer.Start(ctx)
	listener.Start(ctx)

	if err := employee.Load(ctx); err != nil {
		log.Warn("employee view load failed", "error", err)
	} else {
		delivered, pending, cancelled := employee.StatusBreakdown()
		log.Info("employee view loaded",
			"employee_id", employee.EmployeeID(),
			"delivered", delivered, "pending", pending, "cancelled", cancelled)
	}

	log.Info("dashboard daemon running",
		"api", cfg.APIBaseURL, "broker", cfg.BrokerURL)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("shutting down")
	cancel()
	listener.Close()
	manufacturer.Stop()
}
