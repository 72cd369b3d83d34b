package core

// header.go turns free-form header text into column keys.
//
// Exchange files come from French tools, so headers look like "Numéro compte"
// or "Libellé écriture". Normalization transliterates to ASCII, splits
// camel case, lower-cases and joins words with a single underscore. The
// resulting identifier is then mapped to a canonical column key through
// headerAliases; identifiers without an alias are kept as-is so that the
// header validator can reject them.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// headerAliases maps normalized French export headers to canonical column keys.
var headerAliases = map[string]string{
	"jour":                ColDay,
	"numero_compte":       ColAccountNumber,
	"journal":             ColJournal,
	"libelle_journal":     ColJournalLabel,
	"type_compte":         ColAccountType,
	"tiers":               ColThirdParty,
	"numero_piece":        ColEntryNumber,
	"libelle_ecriture":    ColEntryLabel,
	"debit":               ColDebit,
	"credit":              ColCredit,
	"lettrage":            ColReconciliationLetter,
	"id":                  ColID,
	"date_echeance":       ColDueDate,
	"sequence_analytique": ColAnalyticSequence,
}

// Characters that do not decompose into a base letter plus marks.
var approximations = map[rune]string{
	'Æ': "AE", 'æ': "ae",
	'Œ': "OE", 'œ': "oe",
	'ß': "ss",
	'Ø': "O", 'ø': "o",
	'Đ': "D", 'đ': "d",
	'Ł': "L", 'ł': "l",
	'’': "'", '‘': "'",
	'\u00a0': " ",
}

// Transliterate reduces text to ASCII: accents are dropped, known ligatures
// are spelled out and anything else outside ASCII becomes '?'.
func Transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		case approximations[r] != "":
			b.WriteString(approximations[r])
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// NormalizeHeader converts raw header text into a snake_case identifier.
// The result does not depend on case or on surrounding/repeated whitespace.
func NormalizeHeader(raw string) string {
	s := Transliterate(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(s) + 4)
	prev := rune(0)
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingSep = b.Len() > 0
			prev = r
			continue
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			pendingSep = true
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}

// ColumnKey normalizes a header and resolves it to a canonical column key.
func ColumnKey(raw string) string {
	key := NormalizeHeader(raw)
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}
