package token

import "testing"

func TestPositionString(t *testing.T) {
	p := Position{Line: 3, Column: 7}
	if got, want := p.String(), "3:7"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKindStringKnown(t *testing.T) {
	cases := map[Kind]string{
		FN:     "fn",
		STRUCT: "struct",
		PLUS:   "+",
		DEREF:  "*",
		STAR:   "*",
		ARROW:  "->",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestKindStringUnknown(t *testing.T) {
	var k Kind = 9999
	if got := k.String(); got != "Kind(9999)" {
		t.Errorf("String() = %q, want Kind(9999)", got)
	}
}

func TestKeywordsTable(t *testing.T) {
	for lexeme, want := range map[string]Kind{
		"fn": FN, "struct": STRUCT, "if": IF, "for": FOR, "in": IN,
	} {
		if got, ok := Keywords[lexeme]; !ok || got != want {
			t.Errorf("Keywords[%q] = %v, %v; want %v, true", lexeme, got, ok, want)
		}
	}
}
