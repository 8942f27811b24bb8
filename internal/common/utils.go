package common

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCity returns the canonical form of a city name: transliterated to
// ASCII, surrounding and repeated whitespace collapsed, title-cased.
// "são  PAULO" and "Sao Paulo" both become "Sao Paulo"; "Łódź" becomes "Lodz".
// Every city that is stored or queried goes through this function.
func NormalizeCity(name string) string {
	ascii := unidecode.Unidecode(name)
	ascii = strings.Join(strings.Fields(ascii), " ")
	return cases.Title(language.Und).String(ascii)
}
