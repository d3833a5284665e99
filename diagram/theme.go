package diagram

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// Theme is the subset of mermaid configuration the engines pass through.
type Theme struct {
	Name      string            `json:"theme"`
	Variables map[string]string `json:"themeVariables,omitempty"`
}

// DefaultThemeVariables is the palette the lecture deck was designed with.
func DefaultThemeVariables() map[string]string {
	return map[string]string{
		"primaryColor":       "#667eea",
		"primaryTextColor":   "#fff",
		"primaryBorderColor": "#7c3aed",
		"lineColor":          "#5a67d8",
		"secondaryColor":     "#764ba2",
		"tertiaryColor":      "#667eea",
		"background":         "#1a202c",
		"mainBkg":            "#2d3748",
		"secondBkg":          "#4a5568",
		"tertiaryBkg":        "#718096",
		"textColor":          "#fff",
		"nodeTextColor":      "#fff",
	}
}

// DefaultTheme is mermaid's dark theme with the lecture palette.
func DefaultTheme() Theme {
	return Theme{Name: "dark", Variables: DefaultThemeVariables()}
}

// writeConfigFile stores the theme as a mermaid config file and returns its
// path. The caller owns the file.
func (t Theme) writeConfigFile() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", errors.Wrap(err, "encode mermaid config")
	}
	f, err := ioutil.TempFile("", "showandtell-mermaid-*.json")
	if err != nil {
		return "", errors.Wrap(err, "create mermaid config")
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "write mermaid config")
	}
	return f.Name(), nil
}
