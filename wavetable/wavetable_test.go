package wavetable

import (
	"strings"
	"testing"

	owterr "github.com/haptix-works/owt/errors"
)

func TestCompileDispatch(t *testing.T) {
	envelope := "S:0,WF:8,RP:0,WT:0," +
		"T:100,L:0.5,F:100,C:0,B:0,AR:0,V:0," +
		"T:100,L:0,F:100,C:0,B:0,AR:0,V:0"

	t.Run("pwle", func(t *testing.T) {
		out, err := Compile(envelope)
		if err != nil {
			t.Fatal(err)
		}
		// Format nibble of the header word.
		if out[1]>>4 != 12 {
			t.Errorf("format = %d, want 12", out[1]>>4)
		}
	})

	t.Run("composite", func(t *testing.T) {
		out, err := Compile("1.100,500")
		if err != nil {
			t.Fatal(err)
		}
		if out[0] != 0 || out[1] != 1 {
			t.Errorf("header = % x, want 00 01", out[:2])
		}
	})

	t.Run("leading whitespace", func(t *testing.T) {
		a, err := Compile("  \t" + envelope)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Compile(envelope)
		if err != nil {
			t.Fatal(err)
		}
		if len(a) != len(b) {
			t.Errorf("lengths differ: %d vs %d", len(a), len(b))
		}
	})
}

func TestCompileEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n"} {
		if _, err := Compile(in); err == nil {
			t.Errorf("Compile(%q) should fail", in)
		}
	}
}

func TestCompileStringTooLong(t *testing.T) {
	_, err := Compile("1.100," + strings.Repeat("9,", StringMax))
	wantKind(t, err, owterr.KindCapacity)
}

func TestBankString(t *testing.T) {
	tests := []struct {
		bank Bank
		want string
	}{
		{BankRAM, "RAM"},
		{BankROM, "ROM"},
		{BankOWT, "OWT"},
		{Bank(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.bank.String(); got != tt.want {
			t.Errorf("Bank(%d).String() = %q, want %q", tt.bank, got, tt.want)
		}
	}
}
