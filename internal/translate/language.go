package translate

import (
	"fmt"
	"strings"
)

type Language struct {
	Name string
	Code string
}

var English = Language{Name: "English", Code: "en"}

// Languages lists the supported languages in menu order.
var Languages = []Language{
	English,
	{Name: "Hindi", Code: "hi"},
	{Name: "Bengali", Code: "bn"},
	{Name: "Kannada", Code: "kn"},
	{Name: "Marathi", Code: "mr"},
	{Name: "Tamil", Code: "ta"},
	{Name: "Telugu", Code: "te"},
	{Name: "Gujarati", Code: "gu"},
	{Name: "Malayalam", Code: "ml"},
	{Name: "Punjabi", Code: "pa"},
	{Name: "Odia", Code: "or"},
}

// ResolveLanguage accepts a language name or ISO 639-1 code, ignoring case.
// Empty means English.
func ResolveLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return English, nil
	}
	for _, l := range Languages {
		if strings.EqualFold(l.Name, s) || strings.EqualFold(l.Code, s) {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("unsupported language %q", s)
}

func LanguageNames() []string {
	names := make([]string, 0, len(Languages))
	for _, l := range Languages {
		names = append(names, l.Name)
	}
	return names
}
