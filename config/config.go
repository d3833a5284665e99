// Package config resolves showandtell settings with precedence
// defaults < showandtell.yaml < SAT_* environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v2"

	"github.com/connctd/showandtell/v2/diagram"
)

// FileName is the project file looked up in the working directory and the
// slide folder.
const FileName = "showandtell.yaml"

type Option struct {
	Key     string
	Default any
	Comment string
}

// Options returns every known key with its default. It is the single source
// of defaults for Load and RenderDefault.
func Options() []Option {
	return []Option{
		{Key: "name", Default: "", Comment: "Presentation title"},
		{Key: "description", Default: "", Comment: "Presentation description, used as page meta"},
		{Key: "slides_dir", Default: "./slides", Comment: "Folder holding the slides"},
		{Key: "http_addr", Default: ":8080", Comment: "Listen address of sat serve"},
		{Key: "reveal.url", Default: "https://cdn.jsdelivr.net/npm/reveal.js@4.6.1", Comment: "Base URL of reveal.js"},
		{Key: "log.level", Default: "info", Comment: "logrus level"},

		{Key: "markup.parser", Default: "blackfriday", Comment: "blackfriday or goldmark"},
		{Key: "highlight.style", Default: "dracula", Comment: "chroma style for code blocks"},
		{Key: "highlight.line_numbers", Default: true, Comment: "Show line numbers in code blocks"},

		{Key: "diagram.engine", Default: diagram.EngineMMDC, Comment: "mmdc, kroki or none"},
		{Key: "diagram.mmdc_path", Default: "mmdc", Comment: "mermaid-cli binary"},
		{Key: "diagram.kroki_url", Default: "https://kroki.io", Comment: "Kroki server"},
		{Key: "diagram.timeout", Default: "30s", Comment: "Upper bound for a single diagram render"},
		{Key: "diagram.cache_ttl", Default: "1h", Comment: "How long rendered diagrams are reused, 0 disables the cache"},
		{Key: "diagram.concurrency", Default: 2, Comment: "Diagram renders running at once across all slides"},
		{Key: "diagram.theme", Default: "dark", Comment: "mermaid theme"},
		{Key: "diagram.theme_variables", Default: diagram.DefaultThemeVariables(), Comment: "mermaid themeVariables"},
	}
}

func applyDefaults(v *viper.Viper) {
	for _, o := range Options() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load seeds v with defaults, reads file (or showandtell.yaml from the
// working directory when file is empty) and binds SAT_* variables. A missing
// default file is not an error, a missing explicit file is.
func Load(v *viper.Viper, file string) error {
	applyDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}

	v.SetEnvPrefix("sat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return Check(v)
}

// Merge reads the project file of a slide folder on top of v, if there is one.
// Keys set in the environment still win.
func Merge(v *viper.Viper, slidesDir string) error {
	path := filepath.Join(slidesDir, FileName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open deck config")
	}
	defer f.Close()
	v.SetConfigType("yaml")
	if err := v.MergeConfig(f); err != nil {
		return errors.Wrapf(err, "merge %s", path)
	}
	return Check(v)
}

// Check reports every invalid value at once.
func Check(v *viper.Viper) error {
	var problems []string
	switch v.GetString("markup.parser") {
	case "blackfriday", "goldmark":
	default:
		problems = append(problems, "markup.parser must be blackfriday or goldmark")
	}
	switch v.GetString("diagram.engine") {
	case diagram.EngineMMDC, diagram.EngineKroki, diagram.EngineNone:
	default:
		problems = append(problems, "diagram.engine must be mmdc, kroki or none")
	}
	if v.GetDuration("diagram.timeout") <= 0 {
		problems = append(problems, "diagram.timeout must be greater than 0")
	}
	if v.GetDuration("diagram.cache_ttl") < 0 {
		problems = append(problems, "diagram.cache_ttl must not be negative")
	}
	if v.GetInt("diagram.concurrency") <= 0 {
		problems = append(problems, "diagram.concurrency must be greater than 0")
	}
	if strings.TrimSpace(v.GetString("slides_dir")) == "" {
		problems = append(problems, "slides_dir is required")
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Config is the resolved, typed view of v.
type Config struct {
	Name        string
	Description string
	SlidesDir   string
	HTTPAddr    string
	RevealURL   string
	LogLevel    string

	Parser         string
	HighlightStyle string
	LineNumbers    bool

	Diagram diagram.Options
}

func FromViper(v *viper.Viper) Config {
	return Config{
		Name:           v.GetString("name"),
		Description:    v.GetString("description"),
		SlidesDir:      v.GetString("slides_dir"),
		HTTPAddr:       v.GetString("http_addr"),
		RevealURL:      strings.TrimSuffix(v.GetString("reveal.url"), "/"),
		LogLevel:       v.GetString("log.level"),
		Parser:         v.GetString("markup.parser"),
		HighlightStyle: v.GetString("highlight.style"),
		LineNumbers:    v.GetBool("highlight.line_numbers"),
		Diagram: diagram.Options{
			Engine:      v.GetString("diagram.engine"),
			MMDCPath:    v.GetString("diagram.mmdc_path"),
			KrokiURL:    v.GetString("diagram.kroki_url"),
			Timeout:     v.GetDuration("diagram.timeout"),
			CacheTTL:    v.GetDuration("diagram.cache_ttl"),
			Concurrency: v.GetInt("diagram.concurrency"),
			Theme: diagram.Theme{
				Name:      v.GetString("diagram.theme"),
				Variables: themeVariables(v),
			},
		},
	}
}

// Default returns the configuration built from defaults only.
func Default() Config {
	v := viper.New()
	applyDefaults(v)
	return FromViper(v)
}

// RenderDefault renders a project file carrying name, description and the
// default value of every other key.
func RenderDefault(name, description string) ([]byte, error) {
	doc := yaml.MapSlice{}
	sections := map[string]int{}
	for _, o := range Options() {
		val := o.Default
		switch o.Key {
		case "name":
			val = name
		case "description":
			val = description
		}
		parts := strings.SplitN(o.Key, ".", 2)
		if len(parts) == 1 {
			doc = append(doc, yaml.MapItem{Key: o.Key, Value: val})
			continue
		}
		i, ok := sections[parts[0]]
		if !ok {
			i = len(doc)
			sections[parts[0]] = i
			doc = append(doc, yaml.MapItem{Key: parts[0], Value: yaml.MapSlice{}})
		}
		section := doc[i].Value.(yaml.MapSlice)
		doc[i].Value = append(section, yaml.MapItem{Key: parts[1], Value: val})
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return out, nil
}

// mermaid theme variables are camel case but viper folds keys read from files
// and the environment to lower case.
var knownThemeVariables = []string{
	"darkMode", "background", "fontFamily", "fontSize",
	"primaryColor", "primaryTextColor", "primaryBorderColor",
	"secondaryColor", "secondaryTextColor", "secondaryBorderColor",
	"tertiaryColor", "tertiaryTextColor", "tertiaryBorderColor",
	"noteBkgColor", "noteTextColor", "noteBorderColor",
	"lineColor", "textColor", "mainBkg", "secondBkg", "tertiaryBkg",
	"nodeBorder", "nodeTextColor", "clusterBkg", "clusterBorder",
	"titleColor", "edgeLabelBackground", "errorBkgColor", "errorTextColor",
}

func themeVariables(v *viper.Viper) map[string]string {
	canonical := make(map[string]string, len(knownThemeVariables))
	for _, k := range knownThemeVariables {
		canonical[strings.ToLower(k)] = k
	}
	vars := map[string]string{}
	for k, val := range v.GetStringMapString("diagram.theme_variables") {
		if c, ok := canonical[strings.ToLower(k)]; ok {
			k = c
		}
		vars[k] = val
	}
	return vars
}
