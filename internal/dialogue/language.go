package dialogue

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Spanish marker words weighted enough that two hits flip the detector.
// Accent-stripped variants are included because SMS traffic rarely carries
// diacritics.
var spanishMarkers = []string{
	"hola", "gracias", "necesito", "quiero", "cita", "mañana", "manana",
	"por favor", "ayuda", "cuando", "cuándo", "donde", "dónde", "como",
	"cómo", "qué", "servicio", "carro", "coche", "aceite", "frenos",
	"llantas", "buenos dias", "buenas tardes", "si puedo", "el", "la",
	"mi carro", "no funciona", "problema con",
}

// strong single-word markers that flip on their own
var spanishStrong = []string{
	"hola", "gracias", "necesito", "cita", "mañana", "por favor",
	"buenos dias", "buenas tardes", "aceite", "frenos", "llantas",
}

// detectLanguage returns Spanish when the message carries enough Spanish
// markers, English otherwise. English is the default for ambiguous text.
func detectLanguage(text string) language.Tag {
	lower := " " + strings.ToLower(strings.TrimSpace(text)) + " "

	for _, marker := range spanishStrong {
		if strings.Contains(lower, " "+marker+" ") || strings.Contains(lower, " "+marker+",") ||
			strings.Contains(lower, " "+marker+"?") || strings.Contains(lower, " "+marker+"!") {
			return language.Spanish
		}
	}

	hits := 0
	for _, marker := range spanishMarkers {
		if strings.Contains(lower, " "+marker+" ") {
			hits++
		}
	}
	if hits >= 2 {
		return language.Spanish
	}
	return language.English
}

var (
	alphabeticPattern    = regexp.MustCompile(`[a-zA-ZáéíóúñüÁÉÍÓÚÑÜ]`)
	englishMarkerPattern = regexp.MustCompile(`(?i)\b(the|and|please|can|could|what|how|when|where|you|my|is|for|need|want|thanks|thank|yes|tomorrow|morning|afternoon|today|change|book|schedule)\b`)
)

// updateLanguage decides the session language after one more message. The
// detector only flips the tag on clear evidence: digit-only answers and bare
// names (a phone number, "John Doe") keep whatever language the conversation
// is already in.
func updateLanguage(current language.Tag, text string) language.Tag {
	if !alphabeticPattern.MatchString(text) {
		return current
	}
	if detectLanguage(text) == language.Spanish {
		return language.Spanish
	}
	if englishMarkerPattern.MatchString(text) {
		return language.English
	}
	return current
}
