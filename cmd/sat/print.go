package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/connctd/showandtell/v2"
	"github.com/connctd/showandtell/v2/diagram"
	"github.com/connctd/showandtell/v2/slide"
)

var printCommand = cli.Command{
	Name:      "print",
	Aliases:   []string{"p"},
	Usage:     "Print slides to the terminal",
	ArgsUsage: "[section-id]",
	Action: func(ctx *cli.Context) error {
		// diagrams print as source, nothing needs rendering
		deck, err := newDeck(
			showandtell.WithEngine(diagram.Disabled()),
			showandtell.WithSink(slide.SinkFunc(func(string, string) {})),
		)
		if err != nil {
			return err
		}
		defer deck.Close()
		if err := deck.Load(); err != nil {
			return err
		}

		pres := deck.Presentation()
		slides := pres.Flatten()
		if id := ctx.Args().First(); id != "" {
			s := pres.Find(id)
			if s == nil {
				return errors.Wrap(showandtell.ErrSlideNotFound, id)
			}
			slides = []*showandtell.Slide{s}
			if len(s.SubSlides) > 0 {
				slides = (&showandtell.Presentation{Slides: s.SubSlides}).Flatten()
			}
		}
		return showandtell.WriteTerminal(os.Stdout, pres, slides)
	},
}
