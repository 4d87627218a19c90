// Package views loads the HTML templates and renders them for gin.
package views

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
)

// Fragment templates rendered on their own for AJAX responses.
var fragments = []string{
	"comment/base.html",
	"comment/child.html",
	"comment/edit.html",
	"comment/delete.html",
}

// Pages rendered inside the base layout.
var pages = []string{
	"article/list.html",
	"article/detail.html",
	"auth/login.html",
	"auth/register.html",
	"admin/articles.html",
	"admin/flags.html",
	"admin/reactions.html",
	"error.html",
}

// Templates is a multitemplate.Render that can also execute to a string.
type Templates struct {
	multitemplate.Render
}

// Load parses every page and fragment under dir.
func Load(dir string) (*Templates, error) {
	r := multitemplate.New()
	funcs := FuncMap()

	layouts, err := filepath.Glob(filepath.Join(dir, "layouts", "*.html"))
	if err != nil {
		return nil, err
	}
	includes, err := filepath.Glob(filepath.Join(dir, "includes", "*.html"))
	if err != nil {
		return nil, err
	}
	components, err := filepath.Glob(filepath.Join(dir, "components", "*.html"))
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("no layouts found in %s", dir)
	}

	// the first file names the template that gets executed
	for _, name := range pages {
		files := append([]string{}, layouts...)
		files = append(files, includes...)
		files = append(files, components...)
		files = append(files, filepath.Join(dir, "views", name))
		r.AddFromFilesFuncs(name, funcs, files...)
	}
	for _, name := range fragments {
		files := []string{filepath.Join(dir, "views", name)}
		files = append(files, components...)
		r.AddFromFilesFuncs(name, funcs, files...)
	}

	return &Templates{Render: r}, nil
}

// Execute writes the named template to w.
func (t *Templates) Execute(w io.Writer, name string, data interface{}) error {
	tmpl, ok := t.Render[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.Execute(w, data)
}

// String renders the named template into a string, for JSON payloads.
func (t *Templates) String(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
