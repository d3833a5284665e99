package showandtell

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gobuffalo/packr/v2"
	"github.com/pkg/errors"
)

var (
	assetBox   = packr.New("assets", "./assets")
	lectureBox = packr.New("lecture", "./lecture")
)

// EmitAssets writes the theme and livereload script to destDir/assets.
func EmitAssets(destDir string) error {
	return emitBox(assetBox, filepath.Join(destDir, assetBox.Name), true)
}

// EmitLecture writes the bundled "Qubits, Cats, and Coffee" deck to destDir.
// Existing files are not overwritten.
func EmitLecture(destDir string) error {
	return emitBox(lectureBox, destDir, false)
}

// LectureSlides lists the files of the bundled deck.
func LectureSlides() []string {
	return lectureBox.List()
}

// AssetHandler serves the asset box under /assets/.
func AssetHandler() http.Handler {
	return http.StripPrefix("/"+assetBox.Name+"/", http.FileServer(assetBox))
}

func emitBox(b *packr.Box, destPath string, overwrite bool) error {
	if err := os.MkdirAll(destPath, 0777); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	for _, f := range b.List() {
		fPath := filepath.Join(destPath, f)
		if err := os.MkdirAll(filepath.Dir(fPath), 0777); err != nil {
			return errors.Wrap(err, "create output dir")
		}
		data, err := b.Find(f)
		if err != nil {
			return errors.Wrapf(err, "find %s in %s", f, b.Name)
		}
		if err := writeFile(fPath, data, overwrite); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
