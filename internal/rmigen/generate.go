package rmigen

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	log "github.com/sirupsen/logrus"
)

//go:embed template.tmpl
var stubTemplate string

// Generate parses fProto and writes the generated Go source for its
// services to outFile, in the manner of gererator.Generate.
func Generate(fProto, outFile string) error {
	p, err := Parse(fProto)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	funcMap := template.FuncMap{
		"ToLower": strings.ToLower,
		"ToTitle": strings.Title,
	}

	tpl, err := template.New("rmigen").Funcs(funcMap).Parse(stubTemplate)
	if err != nil {
		return err
	}

	log.WithField("out", outFile).Info("rmigen: writing generated stub")
	return tpl.Execute(f, p)
}
