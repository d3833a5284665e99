package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/connctd/showandtell/v2"
	"github.com/connctd/showandtell/v2/config"
)

const (
	lectureName        = "Qubits, Cats, and Coffee"
	lectureDescription = "A lighthearted introduction to quantum computing that explains the big ideas over everyday examples."
)

var initCommand = cli.Command{
	Name:      "init",
	Usage:     "Write the bundled lecture to a slide folder",
	ArgsUsage: "[dir]",
	Action: func(ctx *cli.Context) error {
		dir := ctx.Args().First()
		if dir == "" {
			dir = cfg.SlidesDir
		}
		if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
			return errors.Errorf("%s is not empty", dir)
		}
		if err := showandtell.EmitLecture(dir); err != nil {
			return err
		}
		projectFile, err := config.RenderDefault(lectureName, lectureDescription)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, config.FileName), projectFile, 0644); err != nil {
			return errors.Wrap(err, "write project file")
		}
		fmt.Printf("Wrote %d slides to %s, run sat --slides %s serve\n", len(showandtell.LectureSlides()), dir, dir)
		return nil
	},
}
