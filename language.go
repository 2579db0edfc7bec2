package sysconf

import "fmt"

// Language is the system language stored under IPL.LNG.
type Language uint8

const (
	LanguageJapanese Language = iota
	LanguageEnglish
	LanguageGerman
	LanguageFrench
	LanguageSpanish
	LanguageItalian
	LanguageDutch
	LanguageSimplifiedChinese
	LanguageTraditionalChinese
	LanguageKorean

	// LanguageUnknown is the explicit "unknown" sentinel.
	LanguageUnknown Language = 0xFF
)

var languageNames = map[Language]string{
	LanguageJapanese:           "Japanese",
	LanguageEnglish:            "English",
	LanguageGerman:             "German",
	LanguageFrench:             "French",
	LanguageSpanish:            "Spanish",
	LanguageItalian:            "Italian",
	LanguageDutch:              "Dutch",
	LanguageSimplifiedChinese:  "Simplified Chinese",
	LanguageTraditionalChinese: "Traditional Chinese",
	LanguageKorean:             "Korean",
}

// Languages returns the known languages in store order.
func Languages() []Language {
	return []Language{
		LanguageJapanese,
		LanguageEnglish,
		LanguageGerman,
		LanguageFrench,
		LanguageSpanish,
		LanguageItalian,
		LanguageDutch,
		LanguageSimplifiedChinese,
		LanguageTraditionalChinese,
		LanguageKorean,
	}
}

// Known reports whether l is one of the named languages.
func (l Language) Known() bool {
	_, ok := languageNames[l]
	return ok
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	if l == LanguageUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("Language(%d)", uint8(l))
}

// Value returns the store representation of l.
func (l Language) Value() Value { return U8(uint8(l)) }

// DerivationTable maps languages to a derived byte. It is immutable once
// built; lookups outside the table fall back to Fallback.
type DerivationTable struct {
	entries  map[Language]byte
	fallback byte
}

// NewDerivationTable copies entries into a new table.
func NewDerivationTable(entries map[Language]byte, fallback byte) DerivationTable {
	copied := make(map[Language]byte, len(entries))
	for lang, code := range entries {
		copied[lang] = code
	}
	return DerivationTable{entries: copied, fallback: fallback}
}

// Lookup returns the code for lang and whether lang was in the table.
func (t DerivationTable) Lookup(lang Language) (byte, bool) {
	code, ok := t.entries[lang]
	if !ok {
		return t.fallback, false
	}
	return code, true
}

// Fallback returns the value used for unknown input.
func (t DerivationTable) Fallback() byte { return t.fallback }

// CountryCodeFallback is the code applied for unknown languages (Japan).
const CountryCodeFallback byte = 1

// CountryCodes returns the language to country code table written to
// IPL.SADR. Both Chinese variants map to China.
func CountryCodes() DerivationTable {
	return NewDerivationTable(map[Language]byte{
		LanguageJapanese:           1,   // Japan
		LanguageEnglish:            49,  // USA
		LanguageGerman:             78,  // Germany
		LanguageFrench:             77,  // France
		LanguageSpanish:            105, // Spain
		LanguageItalian:            83,  // Italy
		LanguageDutch:              94,  // Netherlands
		LanguageSimplifiedChinese:  157, // China
		LanguageTraditionalChinese: 157, // China
		LanguageKorean:             136, // Korea
	}, CountryCodeFallback)
}

// Resolver derives the country code from the system language. It has no side
// effects; callers write the result.
type Resolver struct {
	table DerivationTable
}

// NewResolver builds a resolver over table.
func NewResolver(table DerivationTable) Resolver {
	return Resolver{table: table}
}

// Resolve returns the derived code for lang. The sentinel and any value
// outside the table resolve to the fallback and come with a diagnostic.
func (r Resolver) Resolve(lang Language) (byte, *Diagnostic) {
	table := r.table
	if table.entries == nil {
		table = CountryCodes()
	}
	code, ok := table.Lookup(lang)
	if ok {
		return code, nil
	}
	return code, &Diagnostic{
		Kind:    DiagnosticUnrecognizedValue,
		Message: fmt.Sprintf("Invalid language %s. Defaulting to %d.", lang, code),
		Value:   lang.Value(),
		Err:     fmt.Errorf("%w: %d", ErrUnrecognizedLanguage, uint8(lang)),
		Detail:  map[string]any{"sentinel": lang == LanguageUnknown, "fallback": int64(code)},
	}
}

// CountryCode looks lang up in the default table. ok is false for the
// sentinel and any unknown language.
func CountryCode(lang Language) (code byte, ok bool) {
	return CountryCodes().Lookup(lang)
}
