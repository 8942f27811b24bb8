package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São Paulo", "Sao Paulo"},
		{"sao paulo", "Sao Paulo"},
		{"SÃO PAULO", "Sao Paulo"},
		{"  goiânia ", "Goiania"},
		{"Brasília", "Brasilia"},
		{"rio  de   janeiro", "Rio De Janeiro"},
		{"Zürich", "Zurich"},
		{"Łódź", "Lodz"},
		{"Đà Nẵng", "Da Nang"},
		{"Tromsø", "Tromso"},
		{"Goiania", "Goiania"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCity(tt.in), "NormalizeCity(%q)", tt.in)
	}
}

func TestNormalizeCityMatchesTransliteratedSpelling(t *testing.T) {
	for accented, plain := range map[string]string{
		"Łódź":     "Lodz",
		"Đà Nẵng":  "da nang",
		"Tromsø":   "TROMSO",
		"Þórshöfn": "Thorshofn",
		"Kraków":   "krakow",
	} {
		assert.Equal(t, NormalizeCity(plain), NormalizeCity(accented), "%q vs %q", accented, plain)
	}
}

func TestNormalizeCityIsIdempotent(t *testing.T) {
	for _, in := range []string{"São Paulo", "Florianópolis", "new york", "Łódź", "Þórshöfn"} {
		once := NormalizeCity(in)
		assert.Equal(t, once, NormalizeCity(once))
	}
}
