// internal/render/render.go
//
// Writers that hand an Exports value to the external runtime.
//
// Context
// -------
// Superset reads its configuration from a Python module.  `FormatPython`
// emits that module with literal values, so the runtime sees exactly what
// the loader assembled without re-reading the environment itself.  The
// other formats serve tooling: JSON for the HTTP surface and scripts, YAML
// for config-management repos, and dotenv for container env files.
//
// Notes
// -----
// • Python literals: strings are double-quoted with Go escapes (a subset
//   Python accepts), ints bare, booleans `True`/`False`, an unset secret
//   `None` and an empty one `""`.
// • dotenv lines are sorted by key.  Strings are always double-quoted with
//   the escapes godotenv reads back, so "06379" keeps its leading zero.
// • Key order follows Exports and CacheConfig.Entries.

package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/AdeptTravel/superset-config/internal/config"
)

// Format names an output encoding.
type Format string

const (
	FormatPython Format = "python"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatEnv    Format = "env"
)

// Formats lists the supported encodings in help-text order.
var Formats = []Format{FormatPython, FormatJSON, FormatYAML, FormatEnv}

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown render format")

// ParseFormat accepts a format name, case-insensitively.  `py` is an alias
// for python and `dotenv` for env.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return FormatPython, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "env", "dotenv":
		return FormatEnv, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatPython:
		return "text/x-python; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Write encodes e to w in format f.
func Write(w io.Writer, e config.Exports, f Format) error {
	switch f {
	case FormatPython:
		return pythonTmpl.Execute(w, e)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return err
		}
		return enc.Close()
	case FormatEnv:
		return writeEnv(w, e)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

/*──────────────────────────── python ──────────────────────────────────────*/

var pythonTmpl = template.Must(template.New("superset_config.py").Funcs(template.FuncMap{
	"py":     pyLiteral,
	"secret": pySecret,
}).Parse(`# Generated by supersetcfg.  Do not edit; re-render instead.

SQLALCHEMY_DATABASE_URI = {{ py .DatabaseURI }}

CACHE_CONFIG = {
{{- range .CacheConfig.Entries }}
    {{ py .Key }}: {{ py .Value }},
{{- end }}
}

SECRET_KEY = {{ secret . }}
WTF_CSRF_ENABLED = {{ py .CSRFEnabled }}
`))

func pyLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case nil:
		return "None"
	}
	return strconv.Quote(fmt.Sprint(v))
}

func pySecret(e config.Exports) string {
	if !e.SecretKeySet {
		return "None"
	}
	return strconv.Quote(e.SecretKey)
}

/*──────────────────────────── dotenv ──────────────────────────────────────*/

func writeEnv(w io.Writer, e config.Exports) error {
	lines := []string{
		envLine("SQLALCHEMY_DATABASE_URI", e.DatabaseURI),
		envLine("SECRET_KEY", e.SecretKey),
		envLine("WTF_CSRF_ENABLED", strconv.FormatBool(e.CSRFEnabled)),
	}
	for _, ent := range e.CacheConfig.Entries() {
		lines = append(lines, envLine(ent.Key, ent.Value))
	}
	sort.Strings(lines)
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func envLine(key string, v any) string {
	if n, ok := v.(int); ok {
		return key + "=" + strconv.Itoa(n)
	}
	return key + `="` + envEscaper.Replace(fmt.Sprint(v)) + `"`
}

var envEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	`"`, `\"`,
	"!", `\!`,
	"$", `\$`,
	"`", "\\`",
)
