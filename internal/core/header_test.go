package core

import "testing"

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jour", "jour"},
		{"Numéro compte", "numero_compte"},
		{"  NUMÉRO   COMPTE  ", "numero_compte"},
		{"numéro\tcompte", "numero_compte"},
		{"Libellé écriture", "libelle_ecriture"},
		{"Date d'échéance", "date_d'echeance"},
		{"Séquence-analytique", "sequence_analytique"},
		{"NumeroPiece", "numero_piece"},
		{"entry_number", "entry_number"},
		{"Crédit", "credit"},
		{"Œuvre", "oeuvre"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeHeader(tt.raw); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeader_StableAcrossCaseAndWhitespace(t *testing.T) {
	variants := []string{
		"Libellé écriture",
		"LIBELLÉ ÉCRITURE",
		"libellé écriture",
		"   Libellé    écriture ",
		"Libelle ecriture",
	}

	want := NormalizeHeader(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeHeader(v); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", v, got, want)
		}
	}
	if again := NormalizeHeader(want); again != want {
		t.Errorf("normalizing twice changed %q to %q", want, again)
	}
}

func TestColumnKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jour", ColDay},
		{"Numéro compte", ColAccountNumber},
		{"Journal", ColJournal},
		{"Tiers", ColThirdParty},
		{"Numéro pièce", ColEntryNumber},
		{"Libellé écriture", ColEntryLabel},
		{"Débit", ColDebit},
		{"Crédit", ColCredit},
		{"Lettrage", ColReconciliationLetter},
		{"Libellé journal", ColJournalLabel},
		{"Type compte", ColAccountType},
		{"Date échéance", ColDueDate},
		{"Séquence analytique", ColAnalyticSequence},
		{"ID", ColID},
		{"entry_number", ColEntryNumber},
		{"Reconciliation Letter", ColReconciliationLetter},
		{"Montant", "montant"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ColumnKey(tt.raw); got != tt.want {
				t.Errorf("ColumnKey(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"écriture", "ecriture"},
		{"Ça déçoit", "Ca decoit"},
		{"Straße", "Strasse"},
		{"l’écriture", "l'ecriture"},
		{"a b", "a b"},
		{"日本", "??"},
	}

	for _, tt := range tests {
		if got := Transliterate(tt.in); got != tt.want {
			t.Errorf("Transliterate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
