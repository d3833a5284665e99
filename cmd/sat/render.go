package main

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/connctd/showandtell/v2"
)

var defaultDistDir = "./dist"

var renderTimeout time.Duration

var renderCommand = cli.Command{
	Name:    "render",
	Aliases: []string{"build", "r", "b"},
	Usage:   "Render the presentation into the dist dir",
	Flags: []cli.Flag{
		cli.DurationFlag{
			Name:        "timeout",
			Usage:       "How long to wait for diagrams",
			Value:       5 * time.Minute,
			Destination: &renderTimeout,
		},
	},
	Action: func(ctx *cli.Context) error {
		distDir := ctx.Args().First()
		if distDir == "" {
			distDir = defaultDistDir
		}
		if err := showandtell.EmitAssets(distDir); err != nil {
			return err
		}

		deck, err := newDeck()
		if err != nil {
			return err
		}
		defer deck.Close()
		if err := deck.Load(); err != nil {
			return err
		}

		wctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
		defer cancel()
		if err := deck.Wait(wctx); err != nil {
			logrus.WithError(err).Warn("not all diagrams finished, writing what is there")
		}

		indexBytes, err := deck.RenderIndex()
		if err != nil {
			return err
		}
		indexPath := filepath.Join(distDir, "index.html")
		if err := ioutil.WriteFile(indexPath, indexBytes, 0644); err != nil {
			return err
		}
		logrus.WithField("file", indexPath).Info("presentation rendered")
		return nil
	},
}
