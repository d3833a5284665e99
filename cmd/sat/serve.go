package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/connctd/showandtell/v2"
)

var httpAddr string

var serveCommand = cli.Command{
	Name:        "serve",
	Aliases:     []string{"s"},
	Description: "Serve the presentation on a webserver",
	Usage:       "serve [--addr :8080]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "Specify the address to listen on (default from http_addr)",
			Destination: &httpAddr,
		},
	},
	Action: func(ctx *cli.Context) error {
		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

		if httpAddr == "" {
			httpAddr = cfg.HTTPAddr
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watchTree(watcher, cfg.SlidesDir); err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		deck, err := newDeck(showandtell.WithRegisterer(reg), showandtell.WithLiveReload())
		if err != nil {
			return err
		}
		defer deck.Close()

		server, err := showandtell.NewPresentationServer(cctx, deck, httpAddr, reg, logrus.StandardLogger())
		if err != nil {
			return err
		}
		fmt.Printf("Serving presentation on %s\n", httpAddr)
		server.Run()

		go func() {
			for {
				select {
				case <-cctx.Done():
					return
				case err := <-watcher.Errors:
					logrus.WithError(err).Warn("watching slides failed")
				case evt := <-watcher.Events:
					log := logrus.WithField("file", evt.Name)
					switch {
					case evt.Op&fsnotify.Create != 0:
						log.Info("file created, rerendering")
						if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
							if err := watchTree(watcher, evt.Name); err != nil {
								log.WithError(err).Warn("cannot watch new folder")
							}
						}
					case evt.Op&fsnotify.Write != 0:
						log.Info("file changed, rerendering")
					case evt.Op&fsnotify.Remove != 0:
						log.Info("file deleted, rerendering")
					case evt.Op&fsnotify.Rename != 0:
						log.Info("file renamed, rerendering")
					default:
						continue
					}
					if err := server.Rerender(); err != nil {
						log.WithError(err).Error("rerendering failed, keeping previous slides")
					}
				}
			}
		}()

		<-c
		return server.Close()
	},
}

// watchTree adds dir and every folder below it, so chapters are watched too.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
