package logistics

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{0: "0.00", 5: "0.05", 1250: "12.50", -199: "-1.99"}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Fatalf("Money(%d).String()=%q want %q", int64(m), got, want)
		}
	}
}

func TestParseMoney(t *testing.T) {
	ok := map[string]Money{"12.50": 1250, "12.5": 1250, "7": 700, "-0.01": -1, ".5": 50}
	for in, want := range ok {
		got, err := ParseMoney(in)
		if err != nil || got != want {
			t.Fatalf("ParseMoney(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "1.234", "abc", "1.", "1.-5"} {
		if _, err := ParseMoney(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseMoney(%q): expected ErrValidation, got %v", in, err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"10.05","b":3.5}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 1005 || v.B != 350 {
		t.Fatalf("unexpected values: %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":"10.05","b":"3.50"}` {
		t.Fatalf("unexpected json %s", out)
	}
}
