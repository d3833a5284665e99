package diagram

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// CLIEngine renders mermaid with mermaid-cli (mmdc). Every render runs in its
// own temp dir, so concurrent calls from different views are safe.
type CLIEngine struct {
	path       string
	configFile string
	background string
}

// NewCLI resolves the mmdc binary and writes the theme config once for the
// lifetime of the engine.
func NewCLI(path string, theme Theme) (*CLIEngine, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", path)
	}
	cfg, err := theme.writeConfigFile()
	if err != nil {
		return nil, err
	}
	return &CLIEngine{
		path:       resolved,
		configFile: cfg,
		background: "transparent",
	}, nil
}

func (e *CLIEngine) Render(ctx context.Context, id, description string) (string, error) {
	if err := validate(description); err != nil {
		return "", err
	}

	dir, err := ioutil.TempDir("", "showandtell-mmdc-")
	if err != nil {
		return "", errors.Wrap(err, "create render dir")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := ioutil.WriteFile(in, []byte(description), 0600); err != nil {
		return "", errors.Wrap(err, "write diagram source")
	}

	cmd := exec.CommandContext(ctx, e.path,
		"-q",
		"-i", in,
		"-o", out,
		"-c", e.configFile,
		"-b", e.background,
		"-I", id,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("mmdc: %s", msg)
	}

	svg, err := ioutil.ReadFile(out)
	if err != nil {
		return "", errors.Wrap(err, "read rendered diagram")
	}
	return string(svg), nil
}

// Close removes the theme config file.
func (e *CLIEngine) Close() error {
	return os.Remove(e.configFile)
}
