package owt

import (
	"testing"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"composite", "1.100,500,ROM2.50,400,2!"},
		{"pwle", "S:0,WF:8,RP:0,WT:10," +
			"T:100,L:0.5,F:100,C:0,B:0,AR:0,V:0," +
			"T:100,L:0,F:100,C:0,B:0,AR:0,V:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.in)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.in, err)
			}
			if len(out) == 0 || len(out) > PackedMax {
				t.Errorf("packed length = %d", len(out))
			}

			buf := make([]byte, PackedMax)
			n, err := CompileInto(buf, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(out) {
				t.Errorf("CompileInto wrote %d bytes, Compile returned %d", n, len(out))
			}
		})
	}
}

func TestCompileRejectsGarbage(t *testing.T) {
	if _, err := Compile("S:0,WF:8"); err == nil {
		t.Error("truncated PWLE should fail")
	}
	if _, err := Compile("0.0"); err == nil {
		t.Error("zero waveform reference should fail")
	}
}
