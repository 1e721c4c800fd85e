package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

const scenarioPage = `Hyresavtal
(1) Alice Landlord, 19700101-0000
(2) Bob Tenant, 19800101-0000
Lägenhet med adress Main St 1, 123 45 Stockholm
Transaktion ABC123
Hyran är 10 000 kronor per månad`

func TestExtract_Scenario(t *testing.T) {
	t.Parallel()

	rec, err := Extract(context.Background(), TextPages{scenarioPage})
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}

	want := Record{
		Signees:       []string{"Alice Landlord", "Bob Tenant"},
		Address:       "Main St 1",
		TransactionID: "ABC123",
		CurrentRent:   "10000",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("Extract() = %+v, want %+v", rec, want)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	t.Parallel()

	_, err := Extract(context.Background(), TextPages{})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Extract() error = %v, want %v", err, ErrEmptyDocument)
	}
}

func TestExtract_MissingFieldsDegrade(t *testing.T) {
	t.Parallel()

	rec, err := Extract(context.Background(), TextPages{"nothing useful here"})
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if len(rec.Signees) != 0 {
		t.Errorf("Signees = %v, want empty", rec.Signees)
	}
	if rec.Address != NotAvailable || rec.TransactionID != NotAvailable || rec.CurrentRent != NotAvailable {
		t.Errorf("sentinels not applied: %+v", rec)
	}
	wantMissing := []string{FieldSignees, FieldAddress, FieldTransactionID, FieldCurrentRent}
	if !reflect.DeepEqual(rec.Missing, wantMissing) {
		t.Errorf("Missing = %v, want %v", rec.Missing, wantMissing)
	}
}

func TestExtract_RentOnLaterPage(t *testing.T) {
	t.Parallel()

	pages := TextPages{
		"(1) Alice, (2) Bob,",
		"Villkor utan belopp",
		"Månadshyra: 8 500 kr",
		"Hyran är 9999",
	}
	rec, err := Extract(context.Background(), pages)
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if rec.CurrentRent != "8500" {
		t.Errorf("CurrentRent = %q, want %q", rec.CurrentRent, "8500")
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, TextPages{"no rent", "still none"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want %v", err, context.Canceled)
	}
}

func TestSignees(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "comma terminated",
			text: "(1) Alice Landlord, x (2) Bob Tenant, y",
			want: []string{"Alice Landlord", "Bob Tenant"},
		},
		{
			name: "parenthesis terminated",
			text: "(1) Alice (personnr) (2)Bob,",
			want: []string{"Alice", "Bob"},
		},
		{
			name: "surrounding whitespace stripped",
			text: "(1)    Alice   ,",
			want: []string{"Alice"},
		},
		{
			name: "line-wrapped name collapsed",
			text: "(3) Carl\nGustaf, ",
			want: []string{"Carl Gustaf"},
		},
		{
			name: "repeated names kept per occurrence",
			text: "(1) Ann, (2) Ann,",
			want: []string{"Ann", "Ann"},
		},
		{
			name: "order of appearance, not index",
			text: "(2) Second, (1) First,",
			want: []string{"Second", "First"},
		},
		{
			name: "no markers",
			text: "Alice, Bob",
			want: nil,
		},
		{
			name: "unterminated marker ignored",
			text: "(1) Alice",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Signees(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Signees(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"lowercase cue", "adress Storgatan 1, Stockholm", "Storgatan 1"},
		{"capitalized cue", "ADRESS Storgatan 2, x", "Storgatan 2"},
		{"colon after cue", "Adress: Storgatan 3,", NotAvailable},
		{"first match wins", "adress A 1, adress B 2,", "A 1"},
		{"no comma", "adress Storgatan 1", NotAvailable},
		{"no cue", "Storgatan 1,", NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Address(tt.text); got != tt.want {
				t.Errorf("Address(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTransactionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"Transaktion ABC-123 signerad", "ABC-123"},
		{"Transaktion\n9f8e7d", "9f8e7d"},
		{"transaktion lower", NotAvailable},
		{"", NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			if got := TransactionID(tt.text); got != tt.want {
				t.Errorf("TransactionID(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCurrentRent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"primary with spaces", "Hyran är 12 345 kr", "12345", true},
		{"primary stops at line end", "Hyran är 10000\n2024-01-01", "10000", true},
		{"primary non-breaking space", "Hyran är 7\u00a0500 kr", "7500", true},
		{"fallback kr", "Hyra: 6 200 kr/mån", "6200", true},
		{"fallback sek", "Månadshyra 5400 SEK", "5400", true},
		{"fallback colon dash", "hyra per månad 4300:-", "4300", true},
		{"primary preferred", "Månadshyra 1 kr. Hyran är 2000", "2000", true},
		{"no digits", "Hyran är låg", "", false},
		{"no cue", "10000 kr", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := CurrentRent(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CurrentRent(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMissingError(t *testing.T) {
	t.Parallel()

	err := MissingError(FieldCurrentRent)
	if !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("MissingError() = %v, want wrapping %v", err, ErrFieldNotFound)
	}
}
