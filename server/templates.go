package server

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

// ParseTemplate loads a named page template from the embedded filesystem.
// html/template escaping is what keeps provider-supplied error strings from
// reaching the page as live markup.
func ParseTemplate(name string) (*template.Template, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, err
	}
	content, err := fs.ReadFile(sub, name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}
