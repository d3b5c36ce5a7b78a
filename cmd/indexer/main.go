// Command indexer runs the Chainweb event indexer: it reads a YAML
// config file, connects to the node and the store, and runs until
// terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/kadena-io/chainweb-indexer/chainweb"
	"github.com/kadena-io/chainweb-indexer/config"
	"github.com/kadena-io/chainweb-indexer/indexer"
	"github.com/kadena-io/chainweb-indexer/log"
	"github.com/kadena-io/chainweb-indexer/publish"
	"github.com/kadena-io/chainweb-indexer/store"
)

var logger = log.NewModuleLogger(log.Indexer)

var debugFlag = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug-level logging",
}

func main() {
	app := cli.NewApp()
	app.Name = "indexer"
	app.Usage = "index Chainweb contract events into a document store"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{debugFlag}
	app.ArgsUsage = "<config_file>"
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log.SetDebug(c.Bool("debug"))

	if c.NArg() != 1 {
		return cli.NewExitError("exactly one argument is required: <config_file>", 1)
	}
	cfg, err := config.Load(c.Args().Get(0))
	if err != nil {
		logger.Crit("failed to load config", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	client := chainweb.NewClient(cfg.NodeURL)
	st := store.NewMongoStore(cfg.StoreURI, cfg.DB)

	ix := indexer.New(cfg, client, st)

	if cfg.Publish != nil {
		pub, err := publish.NewPublisher(publish.Config{
			Brokers:    cfg.Publish.Brokers,
			Topic:      cfg.Publish.Topic,
			Partitions: publish.DefaultPartitions,
			Replicas:   publish.DefaultReplicas,
		})
		if err != nil {
			logger.Crit("failed to connect kafka publisher", "err", err)
		}
		defer pub.Close()
		ix.WithPublisher(pub)
	}

	if err := ix.Run(ctx); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	logger.Info("shutdown complete")
	return nil
}
