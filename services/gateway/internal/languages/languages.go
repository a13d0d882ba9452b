// Package languages maps file names to editor languages and judge ids.
package languages

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fallback is the language of files whose extension is unknown.
const Fallback = "plaintext"

//go:embed languages.yaml
var defaultCatalogue []byte

type Language struct {
	Name       string   `yaml:"name" json:"name"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	JudgeID    int      `yaml:"judge_id" json:"judge_id,omitempty"`
	Runnable   bool     `yaml:"runnable" json:"runnable"`
}

type catalogueFile struct {
	Languages []Language `yaml:"languages"`
}

type Catalogue struct {
	byName map[string]Language
	byExt  map[string]string
	list   []Language
}

// Default returns the embedded catalogue.
func Default() *Catalogue {
	c, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("embedded language catalogue is invalid: %v", err))
	}
	return c
}

// Load reads a catalogue from path, or the embedded one when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read language catalogue: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse language catalogue: %w", err)
	}

	c := &Catalogue{
		byName: make(map[string]Language, len(f.Languages)),
		byExt:  make(map[string]string),
	}
	for _, lang := range f.Languages {
		lang.Name = strings.ToLower(strings.TrimSpace(lang.Name))
		if lang.Name == "" {
			return nil, fmt.Errorf("language without a name")
		}
		if _, dup := c.byName[lang.Name]; dup {
			return nil, fmt.Errorf("language %q listed twice", lang.Name)
		}
		if lang.Runnable && lang.JudgeID <= 0 {
			return nil, fmt.Errorf("runnable language %q has no judge id", lang.Name)
		}
		for i, ext := range lang.Extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			lang.Extensions[i] = ext
			c.byExt[ext] = lang.Name
		}
		c.byName[lang.Name] = lang
		c.list = append(c.list, lang)
	}
	if _, ok := c.byName[Fallback]; !ok {
		fallback := Language{Name: Fallback}
		c.byName[Fallback] = fallback
		c.list = append(c.list, fallback)
	}

	sort.Slice(c.list, func(i, j int) bool { return c.list[i].Name < c.list[j].Name })
	return c, nil
}

func (c *Catalogue) Lookup(name string) (Language, bool) {
	lang, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return lang, ok
}

// ForFile picks the language from the file extension.
func (c *Catalogue) ForFile(name string) string {
	if lang, ok := c.byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return lang
	}
	return Fallback
}

func (c *Catalogue) All() []Language {
	out := make([]Language, len(c.list))
	copy(out, c.list)
	return out
}
