package diagram

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const maxGraphicSize = 8 << 20

var (
	svgOpenTag = regexp.MustCompile(`<svg\b[^>]*>`)
	idAttr     = regexp.MustCompile(`\sid="([^"]*)"`)
)

// KrokiEngine renders mermaid through a Kroki server.
type KrokiEngine struct {
	baseURL string
	client  *http.Client
	theme   Theme
}

func NewKroki(baseURL string, client *http.Client, theme Theme) *KrokiEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &KrokiEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		theme:   theme,
	}
}

func (k *KrokiEngine) Render(ctx context.Context, id, description string) (string, error) {
	if err := validate(description); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, k.baseURL+"/mermaid/svg", strings.NewReader(description))
	if err != nil {
		return "", errors.Wrap(err, "build kroki request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "text/plain")
	if k.theme.Name != "" {
		req.Header.Set("Kroki-Diagram-Options-Theme", k.theme.Name)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "kroki request")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxGraphicSize))
	if err != nil {
		return "", errors.Wrap(err, "read kroki response")
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return "", errors.Errorf("kroki: %s", msg)
	}
	return withRootID(string(body), id), nil
}

// withRootID sets the id of the first <svg> element. Mermaid scopes its style
// rules and marker ids by the root id, so those are renamed along with it.
func withRootID(svg, id string) string {
	loc := svgOpenTag.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]
	if m := idAttr.FindStringSubmatch(tag); m != nil && m[1] != "" {
		return renameID(svg, m[1], id)
	}
	tag = fmt.Sprintf(`<svg id="%s"%s`, id, strings.TrimPrefix(tag, "<svg"))
	return svg[:loc[0]] + tag + svg[loc[1]:]
}

// renameID replaces old wherever it is used as an id or id prefix: attribute
// values, #selectors, url(#...) references and prefixed ids like
// chart-title-<old>. Text content is left alone.
func renameID(svg, old, id string) string {
	if old == "" || old == id {
		return svg
	}
	ref := regexp.MustCompile(`([#"(-])` + regexp.QuoteMeta(old) + `([^A-Za-z0-9-]|$)`)
	return ref.ReplaceAllString(svg, "${1}"+strings.ReplaceAll(id, "$", "$$")+"${2}")
}
