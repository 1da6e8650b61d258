package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	"github.com/open-teleop/legged-teleop/pkg/api"
	"github.com/open-teleop/legged-teleop/pkg/config"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/open-teleop/legged-teleop/pkg/posture"
	"github.com/open-teleop/legged-teleop/pkg/processing"
	"github.com/open-teleop/legged-teleop/pkg/zeromq"
	"github.com/open-teleop/legged-teleop/services"
)

const (
	shutdownTimeout = 5 * time.Second
	wsInputBuffer   = 4
)

func main() {
	configDir := flag.String("config-dir", "./config", "directory containing controller_config.yaml")
	flag.Parse()

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "controller: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	bootstrap, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		return fmt.Errorf("loading bootstrap config: %w", err)
	}

	logger, logCloser, err := customlog.NewFromConfig(bootstrap.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close()

	logger.Infof("Starting legged teleop controller (config dir %s)", configDir)

	cfgService, err := services.NewTeleopConfigService(bootstrap.TeleopConfigPath(), logger.WithField("component", "config"))
	if err != nil {
		return err
	}

	settings := teleop.DefaultSettings()
	if cfg := cfgService.GetCurrentConfig(); cfg != nil {
		settings = cfg.Settings()
	} else {
		logger.Warnf("No operational config loaded, running with default limits and channel table")
	}
	for channel, roles := range settings.Channels.SharedChannels() {
		logger.Warnf("Channel %s drives more than one axis: %v", channel, roles)
	}

	synth, err := teleop.NewSynthesizer(settings)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}

	zmqService, err := zeromq.NewZeroMQService(bootstrap.ZeroMQ, logger.WithField("component", "zeromq"))
	if err != nil {
		return fmt.Errorf("starting ZeroMQ: %w", err)
	}
	statusPublisher := zeromq.RegisterConfigHandlers(zmqService, cfgService, logger.WithField("component", "zeromq"))
	cfgService.SetPublisher(statusPublisher)
	if err := zmqService.Start(); err != nil {
		zmqService.Stop()
		return err
	}
	// Cleared when the loop goroutine may still own the input socket.
	stopTransport := true
	defer func() {
		if stopTransport {
			zmqService.Stop()
		}
	}()

	var (
		input   processing.InputSource
		wsInput *processing.ChannelSource
	)
	switch bootstrap.Input.Source {
	case config.InputSourceWebSocket:
		wsInput = processing.NewChannelSource(wsInputBuffer, bootstrap.InputTimeout())
		input = wsInput
	default:
		sub, err := zmqService.NewInputSubscriber(bootstrap.ZeroMQ.InputConnectAddress, bootstrap.ZeroMQ.InputTopic, bootstrap.InputTimeout())
		if err != nil {
			return fmt.Errorf("creating input subscriber: %w", err)
		}
		input = sub
	}

	store := posture.NewStore(teleop.RobotPosture{})
	var postureSub *posture.MQTTSubscriber
	if bootstrap.MQTT.Broker != "" {
		postureSub = posture.NewMQTTSubscriber(bootstrap.MQTT, store, logger.WithField("component", "posture"))
		if err := postureSub.Start(); err != nil {
			return err
		}
		defer postureSub.Stop()
	}

	sink := processing.NewPublishingCommandSink(logger.WithField("component", "sink"), zmqService)
	loop := processing.NewCommandLoop(synth, input, store, sink, logger.WithField("component", "loop"))
	if postureSub == nil {
		logger.Infof("No MQTT broker configured, echoing commanded posture")
		loop.SetPostureEcho(store)
	}
	cfgService.SetApplier(loop)

	opts := api.Options{
		Status:        loop,
		Indicator:     statusPublisher,
		ConfigService: cfgService,
		Logger:        logger.WithField("component", "api"),
		AccessLog:     bootstrap.Logging.Level == "debug",
	}
	if wsInput != nil {
		opts.Input = wsInput
	}
	app := api.NewApp(opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(loopCtx); err != nil {
			logger.Errorf("Command loop exited: %v", err)
			stop()
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		addr := ":" + strconv.Itoa(bootstrap.Server.HTTPPort)
		logger.Infof("HTTP server listening on %s", addr)
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutting down controller...")
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	cancelLoop()
	if !waitForLoop(shutdownCtx, &wg) {
		logger.Warnf("Command loop did not stop within %v, leaving ZeroMQ sockets open", shutdownTimeout)
		stopTransport = false
	}

	logger.Infof("Controller exited properly")
	return nil
}

// waitForLoop reports whether wg finished before ctx ended.
func waitForLoop(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
