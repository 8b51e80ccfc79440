package generate

import (
	"errors"
	"testing"
)

func TestExtractSQLReturnsMarkedBlock(t *testing.T) {
	reply := "Sure, here is the query you asked for:\n<SQL>\nselect sum(donation_amount) as total\nfrom donations\n</SQL>\nLet me know if you need anything else."
	sql, err := ExtractSQL(reply)
	if err != nil {
		t.Fatalf("ExtractSQL: %v", err)
	}
	want := "select sum(donation_amount) as total from donations"
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
}

func TestExtractSQLUsesFirstBlock(t *testing.T) {
	reply := "<SQL>select 1</SQL> or maybe <SQL>select 2</SQL>"
	sql, err := ExtractSQL(reply)
	if err != nil {
		t.Fatalf("ExtractSQL: %v", err)
	}
	if sql != "select 1" {
		t.Fatalf("sql = %q", sql)
	}
}

func TestExtractSQLRejectsMissingMarkers(t *testing.T) {
	for _, reply := range []string{
		"select 1",
		"<SQL>select 1",
		"select 1</SQL>",
		"<SQL>   </SQL>",
		"",
	} {
		if _, err := ExtractSQL(reply); !errors.Is(err, ErrNoSQLMarker) {
			t.Fatalf("ExtractSQL(%q) error = %v, want ErrNoSQLMarker", reply, err)
		}
	}
}

func TestNormalizeWhitespaceIsIdempotent(t *testing.T) {
	raw := "  select\tdonor,\n\n  amount \r\n from donations  "
	once := NormalizeWhitespace(raw)
	want := "select donor, amount from donations"
	if once != want {
		t.Fatalf("NormalizeWhitespace = %q, want %q", once, want)
	}
	if twice := NormalizeWhitespace(once); twice != once {
		t.Fatalf("second pass changed output: %q != %q", twice, once)
	}
}
