package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"

	"github.com/connctd/showandtell/v2"
	"github.com/connctd/showandtell/v2/config"
)

var (
	slideFolder string
	configFile  string
	logLevel    string

	v   = viper.New()
	cfg config.Config
)

func main() {
	app := cli.NewApp()
	app.Name = "sat"
	app.Usage = "Show and tell: markdown slides with highlighted code and rendered diagrams"
	app.Version = showandtell.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "slides",
			Usage:       "Folder holding the slides (default from slides_dir)",
			Destination: &slideFolder,
		},
		cli.StringFlag{
			Name:        "config",
			Usage:       "Config file (default ./" + config.FileName + ")",
			Destination: &configFile,
		},
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error",
			Destination: &logLevel,
		},
	}
	app.Before = loadConfig
	app.Commands = []cli.Command{
		renderCommand,
		serveCommand,
		initCommand,
		printCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig(ctx *cli.Context) error {
	if err := config.Load(v, configFile); err != nil {
		return err
	}
	if slideFolder != "" {
		v.Set("slides_dir", slideFolder)
	}
	if logLevel != "" {
		v.Set("log.level", logLevel)
	}
	if err := config.Merge(v, v.GetString("slides_dir")); err != nil {
		return err
	}
	cfg = config.FromViper(v)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

func newDeck(opts ...showandtell.DeckOption) (*showandtell.Deck, error) {
	return showandtell.NewDeck(cfg, logrus.StandardLogger(), opts...)
}
