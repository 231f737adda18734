package sqliteh

import (
	"errors"
	"testing"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{SQLITE_BUSY, "SQLITE_BUSY"},
		{SQLITE_CONSTRAINT_UNIQUE, "SQLITE_CONSTRAINT_UNIQUE"},
		{SQLITE_IOERR | 99<<8, "SQLITE_IOERR(25354)"},
		{Code(77), "SQLITE_UNKNOWN_ERR(77)"},
		{SQLITE_DONE, "SQLITE_DONE(not an error)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String()=%q, want %q", int(tt.code), got, tt.want)
		}
	}
	if got := SQLITE_CONSTRAINT_UNIQUE.Primary(); got != SQLITE_CONSTRAINT {
		t.Errorf("Primary=%v, want SQLITE_CONSTRAINT", got)
	}
}

func TestCodeAsError(t *testing.T) {
	for _, code := range []Code{SQLITE_OK, SQLITE_ROW, SQLITE_DONE} {
		if err := CodeAsError(code); err != nil {
			t.Errorf("CodeAsError(%v)=%v, want nil", code, err)
		}
	}
	err := CodeAsError(SQLITE_MISUSE)
	if !errors.Is(err, ErrCode(SQLITE_MISUSE)) {
		t.Errorf("CodeAsError(SQLITE_MISUSE)=%v", err)
	}
	if got := err.Error(); got != "SQLITE_MISUSE" {
		t.Errorf("Error()=%q", got)
	}
}

func TestOpenFlagsString(t *testing.T) {
	if got, want := OpenFlagsDefault.String(), "SQLITE_OPEN_READWRITE|SQLITE_OPEN_CREATE|SQLITE_OPEN_URI|SQLITE_OPEN_NOMUTEX"; got != want {
		t.Errorf("String()=%q, want %q", got, want)
	}
	if got, want := (SQLITE_OPEN_READONLY | 0x8).String(), "SQLITE_OPEN_READONLY|UNKNOWN_FLAG:8"; got != want {
		t.Errorf("String()=%q, want %q", got, want)
	}
	if got, want := SQLITE_BLOB.String(), "SQLITE_BLOB"; got != want {
		t.Errorf("ColumnType String()=%q, want %q", got, want)
	}
}
