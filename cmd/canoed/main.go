// Package main: canoed service.
//
// The service must be the target of the node HTTP callback and of the Canoe wallets RPC calls. Wallet credentials
// are written to the VerneMQ auth table in postgres, so the broker must run the vmq_diversity postgres plugin
// against the same database.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tarancss/canoed/account"
	"github.com/tarancss/canoed/bridge"
	"github.com/tarancss/canoed/lib/block"
	"github.com/tarancss/canoed/lib/config"
	"github.com/tarancss/canoed/lib/logging"
	"github.com/tarancss/canoed/lib/msg"
	"github.com/tarancss/canoed/lib/msg/amqp"
	"github.com/tarancss/canoed/lib/msg/mqtt"
	"github.com/tarancss/canoed/lib/store/db"
	"github.com/tarancss/canoed/lib/store/postgres"
	"github.com/tarancss/canoed/router"
)

// pingTimeout bounds the check of the credential database at start.
const pingTimeout = 10 * time.Second

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file, "+config.DefaultFile+" by default")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100")
	initDB := flag.Bool("init", false, "create the credentials table and exit")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	if conf.Debug {
		conf.Logging.Level = "debug"
	}

	logger, err := logging.New(conf.Logging)
	if err != nil {
		panic(err)
	}

	if err = run(conf, *monitor, *initDB, logger); err != nil {
		logger.Error("canoed failed", zap.Error(err))
		_ = logger.Sync()

		os.Exit(1)
	}

	_ = logger.Sync()
}

func run(conf config.ServiceConfig, monitor, initDB bool, logger *zap.Logger) error {
	ctx := context.Background()

	// connect to the credentials database
	creds, err := openCredentials(ctx, conf.Postgres)
	if err != nil {
		return err
	}

	defer func() { _ = creds.Close() }()

	logger.Info("Connected to postgres", zap.String("host", conf.Postgres.Host), zap.String("database",
		conf.Postgres.Database))

	if initDB {
		if err = creds.InitSchema(ctx); err != nil {
			return err
		}

		logger.Info("Credentials table created")

		return nil
	}

	// connect to the account directory
	dir, err := db.New(ctx, conf)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close(dir) }()

	logger.Info("Connected to account directory", zap.String("type", conf.Directory.Type))

	// load Prometheus monitor
	if monitor {
		go func() {
			logger.Info("Serving metrics API")

			h := http.NewServeMux()
			h.Handle("/metrics", promhttp.Handler())

			if err := http.ListenAndServe(":9100", h); err != nil { //nolint:gosec // metrics only
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// load message broker
	mb, err := connect(conf, logger)
	if err != nil {
		// wait 10s for the broker to be ready and try to reconnect
		logger.Warn("Cannot connect to message broker, retrying", zap.Error(err))
		time.Sleep(10 * time.Second)

		if mb, err = connect(conf, logger); err != nil {
			return err
		}
	}

	defer func() {
		errClose := mb.Close()
		logger.Info("Closing message broker", zap.Error(errClose))
	}()

	if err = mb.Setup(); err != nil {
		return err
	}

	accounts, err := account.New(creds, conf.Postgres.PubACL, conf.Postgres.SubACL, logger)
	if err != nil {
		return err
	}

	opts := msg.Opts{QoS: conf.MQTT.Block.Opts.QoS, Retain: conf.MQTT.Block.Opts.Retain}
	rt := router.New(dir, router.NewPublisher(mb, opts, logger), logger)

	// create bridge service
	b := bridge.New(bridge.Services{
		Accounts:  accounts,
		Router:    rt,
		Node:      block.Init(conf.Rainode),
		Directory: dir,
		Broker:    mb,
	}, conf.Server.Workers, conf.Server.StatusFile, logger)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		logger.Info("Program killed !")
		b.Stop()
	}()

	// manage control messages
	if err = b.ManageControl(); err != nil {
		logger.Error("Error subscribing to control topic", zap.Error(err))
	}

	// init http server, wait for its return and log response
	logger.Info("Bridge finished", zap.String("result", b.Init(conf.Server.Endpoint, conf.Server.Port)))
	b.Stop()

	return nil
}

// openCredentials opens the credential database and checks it is reachable.
func openCredentials(ctx context.Context, conf config.PostgresConfig) (*postgres.Postgres, error) {
	creds, err := postgres.New(conf.DSN(), conf.MaxConns)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err = creds.Ping(ctx); err != nil {
		_ = creds.Close()

		return nil, fmt.Errorf("cannot reach postgres at %s: %w", conf.Host, err)
	}

	return creds, nil
}

// connect returns the message broker selected in conf.
func connect(conf config.ServiceConfig, logger *zap.Logger) (msg.Broker, error) {
	if conf.MbType == config.MbAMQP {
		mb, err := amqp.New(conf.AMQP, logger)
		if err != nil {
			return nil, err
		}

		return mb, nil
	}

	mb, err := mqtt.New(conf.MQTT, logger)
	if err != nil {
		return nil, err
	}

	return mb, nil
}
