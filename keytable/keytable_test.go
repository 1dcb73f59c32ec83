package keytable

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteXLSXRoundTrip(t *testing.T) {
	var tbl Table
	tbl.Add("0001", "John Smith")
	tbl.Add("0002", "Unknown")
	tbl.Add("0003", "María José Núñez")

	var buf bytes.Buffer
	if err := tbl.WriteXLSX(&buf); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	got, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	want := tbl.Entries()
	entries := got.Entries()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestWriteXLSXEmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := (&Table{}).WriteXLSX(&buf); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	got, err := ReadXLSX(&buf)
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected no rows, got %d", got.Len())
	}
}

func TestSealOpen(t *testing.T) {
	plain := []byte("ID,Applicant Name\n0001,John Smith\n")
	sealed, err := Seal(plain, "correct horse")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if bytes.Contains(sealed, []byte("John Smith")) {
		t.Fatalf("sealed output leaks the plaintext")
	}

	opened, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("Open() = %q, want %q", opened, plain)
	}

	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrSealed) {
		t.Fatalf("Open(wrong) error = %v, want ErrSealed", err)
	}
	if _, err := Open(plain, "correct horse"); !errors.Is(err, ErrSealed) {
		t.Fatalf("Open(garbage) error = %v, want ErrSealed", err)
	}
}

func TestSealRejectsEmptyPassphrase(t *testing.T) {
	if _, err := Seal([]byte("x"), ""); err == nil {
		t.Fatalf("expected an error")
	}
}
