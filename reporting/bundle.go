package reporting

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Asset names looked up in every template source
const (
	TemplateAsset = "template.html"
	StyleAsset    = "report.css"
	ScriptAsset   = "report.js"

	// LocalTemplateDir is the working-directory template override checked after a configured directory
	LocalTemplateDir = "craft-report-template"
)

//go:embed assets/*
var assetFS embed.FS

// builtinTemplate is used when no source provides a template. It only loads the data block.
const builtinTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{CRAFT_TITLE}}</title>
<style><!--CRAFT_STYLES--></style>
</head>
<body>
<!--CRAFT_LOGO-->
<h1>{{CRAFT_TITLE}}</h1>
<pre id="craft-report-root"></pre>
<script>
window.__CRAFT_REPORT__ = <!--CRAFT_DATA-->;
document.getElementById("craft-report-root").textContent = JSON.stringify(window.__CRAFT_REPORT__, null, 2);
</script>
<script><!--CRAFT_SCRIPT--></script>
</body>
</html>
`

// Source is a named location that may provide presentation assets
type Source struct {
	Name string
	FS   fs.FS
}

// EmbeddedSource returns the default presentation shipped in the binary
func EmbeddedSource() Source {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory exists
	}
	return Source{Name: "embedded", FS: sub}
}

// DirSource returns a source reading from a directory on disk
func DirSource(dir string) Source {
	return Source{Name: dir, FS: os.DirFS(dir)}
}

// DefaultSources returns the ordered candidate chain: the configured template directory
// (if any), the working-directory override, then the embedded assets.
func DefaultSources(templateDir, workDir string) []Source {
	var sources []Source
	if templateDir != "" {
		sources = append(sources, DirSource(templateDir))
	}
	if workDir != "" {
		sources = append(sources, DirSource(filepath.Join(workDir, LocalTemplateDir)))
	}
	return append(sources, EmbeddedSource())
}

// Logo is an image embedded into the rendered document
type Logo struct {
	MIMEType string
	Data     []byte
}

// Bundle holds every presentation input of the rendered document
type Bundle struct {
	Template string
	Style    string
	Script   string
	Logo     *Logo
}

// LoadBundle resolves the presentation assets through the source chain.
// Missing assets never fail: the template falls back to a built-in minimal document,
// style and script fall back to empty content and a missing logo is omitted.
func LoadBundle(logger log.Logger, sources []Source, logoPath string) Bundle {
	b := Bundle{Template: builtinTemplate}

	if tmpl, ok := resolveAsset(logger, sources, TemplateAsset); ok {
		b.Template = tmpl
	} else {
		logger.Warn("No report template found, using built-in template")
	}
	b.Style, _ = resolveAsset(logger, sources, StyleAsset)
	b.Script, _ = resolveAsset(logger, sources, ScriptAsset)
	b.Logo = loadLogo(logger, logoPath)

	return b
}

func resolveAsset(logger log.Logger, sources []Source, name string) (string, bool) {
	for _, src := range sources {
		if src.FS == nil {
			continue
		}
		data, err := fs.ReadFile(src.FS, name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Failed to read report asset", "asset", name, "source", src.Name, "err", err)
			}
			continue
		}
		logger.Debug("Resolved report asset", "asset", name, "source", src.Name)
		return string(data), true
	}
	logger.Debug("Report asset not found in any source", "asset", name)
	return "", false
}

func loadLogo(logger log.Logger, path string) *Logo {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Logo not found, rendering without it", "path", path, "err", err)
		return nil
	}
	return &Logo{MIMEType: LogoMIMEType(path), Data: data}
}

// LogoMIMEType derives the image MIME type from the file extension, defaulting to PNG
func LogoMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	default:
		return "image/png"
	}
}
