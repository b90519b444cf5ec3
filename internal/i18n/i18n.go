// Package i18n serves the localized API messages. Catalogs are flat JSON
// objects named <language>.json; keys follow error.*, validation.* and
// success.*.
package i18n

import (
	"cmp"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

const (
	LangRU = "ru"
	LangEN = "en"
)

var requiredLanguages = []string{LangEN, LangRU}

type catalog map[string]string

type Manager struct {
	fallback  string
	catalogs  map[string]catalog
	languages []string
}

// NewEmbeddedManager loads the catalogs compiled into the binary.
func NewEmbeddedManager(defaultLanguage string) (*Manager, error) {
	locales, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return NewManager(defaultLanguage, locales)
}

// NewManager loads every catalog at the root of locales. An unsupported
// defaultLanguage falls back to English.
func NewManager(defaultLanguage string, locales fs.FS) (*Manager, error) {
	files, err := fs.Glob(locales, "*.json")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}

	manager := &Manager{catalogs: make(map[string]catalog, len(files))}
	for _, file := range files {
		language := baseLanguage(strings.TrimSuffix(file, path.Ext(file)))
		messages, err := loadCatalog(locales, file)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", language, err)
		}
		manager.catalogs[language] = messages
		manager.languages = append(manager.languages, language)
	}

	for _, language := range requiredLanguages {
		if _, ok := manager.catalogs[language]; !ok {
			return nil, fmt.Errorf("required locale %q missing", language)
		}
	}
	slices.Sort(manager.languages)

	manager.fallback = LangEN
	if language := baseLanguage(defaultLanguage); manager.supports(language) {
		manager.fallback = language
	}
	return manager, nil
}

func loadCatalog(locales fs.FS, file string) (catalog, error) {
	content, err := fs.ReadFile(locales, file)
	if err != nil {
		return nil, err
	}
	var messages catalog
	if err := json.Unmarshal(content, &messages); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}
	return messages, nil
}

func (manager *Manager) SupportedLanguages() []string {
	return slices.Clone(manager.languages)
}

// DetectFromAcceptLanguage picks the supported language with the highest
// q-value; ties keep header order.
func (manager *Manager) DetectFromAcceptLanguage(header string) string {
	type weighted struct {
		language string
		quality  float64
	}

	var candidates []weighted
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(part, ";")
		language := baseLanguage(tag)
		if !manager.supports(language) {
			continue
		}
		quality := 1.0
		if raw, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				quality = parsed
			}
		}
		if quality > 0 {
			candidates = append(candidates, weighted{language: language, quality: quality})
		}
	}

	slices.SortStableFunc(candidates, func(a, b weighted) int {
		return cmp.Compare(b.quality, a.quality)
	})
	if len(candidates) > 0 {
		return candidates[0].language
	}
	return manager.fallback
}

// Translate falls back to the default language and then to the key itself.
func (manager *Manager) Translate(language string, key string) string {
	for _, candidate := range []string{baseLanguage(language), manager.fallback} {
		if value := strings.TrimSpace(manager.catalogs[candidate][key]); value != "" {
			return manager.catalogs[candidate][key]
		}
	}
	return key
}

func (manager *Manager) supports(language string) bool {
	_, ok := manager.catalogs[language]
	return language != "" && ok
}

// baseLanguage reduces a tag such as "ru-RU" or "EN_us" to its primary subtag.
func baseLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if index := strings.IndexAny(tag, "-_"); index >= 0 {
		tag = tag[:index]
	}
	return tag
}
