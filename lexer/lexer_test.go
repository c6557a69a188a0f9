package lexer

import (
	"testing"

	"github.com/davy-yusuke/ecc/token"
)

func kinds(src string) []token.Kind {
	lx := New(src, nil)
	var ks []token.Kind
	for {
		tok := lx.Next()
		ks = append(ks, tok.Kind)
		if tok.Kind == token.EOF {
			return ks
		}
	}
}

func TestEOFRepeatsForever(t *testing.T) {
	lx := New("x", nil)
	lx.Next() // IDENT
	first := lx.Next()
	if first.Kind != token.EOF {
		t.Fatalf("expected EOF, got %v", first.Kind)
	}
	for i := 0; i < 3; i++ {
		if got := lx.Next(); got.Kind != token.EOF {
			t.Fatalf("Next() after EOF = %v, want EOF", got.Kind)
		}
	}
}

func TestPeekConsistentWithNext(t *testing.T) {
	src := "fn main ( ) i32 { }"
	lxA := New(src, nil)
	var viaPeek []token.Kind
	for k := 0; k < 5; k++ {
		viaPeek = append(viaPeek, lxA.Peek(k).Kind)
	}

	lxB := New(src, nil)
	var viaNext []token.Kind
	for k := 0; k <= 4; k++ {
		viaNext = append(viaNext, lxB.Next().Kind)
	}

	for i := range viaPeek {
		if viaPeek[i] != viaNext[i] {
			t.Fatalf("index %d: peek-then-next = %v, next-directly = %v", i, viaPeek, viaNext)
		}
	}
}

func TestPeekDoesNotAdvanceCursor(t *testing.T) {
	lx := New("a b c", nil)
	lx.Peek(2)
	if got := lx.Next(); got.Lexeme != "a" {
		t.Fatalf("Next() after Peek = %q, want %q", got.Lexeme, "a")
	}
}

func TestLexemeRoundTrip(t *testing.T) {
	src := "foo := 123 + bar"
	lx := New(src, nil)
	for {
		tok := lx.Next()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.ILLEGAL {
			continue
		}
		// Positions are 1-based line:column on a single line, so column-1
		// is the byte offset into src.
		start := tok.Start.Column - 1
		end := tok.End.Column - 1
		if start < 0 || end > len(src) || start > end {
			t.Fatalf("token %v has out-of-range span [%d,%d]", tok, start, end)
		}
		got := src[start:end]
		if got != tok.Lexeme {
			t.Errorf("token %v: source slice %q != lexeme %q", tok.Kind, got, tok.Lexeme)
		}
	}
}

func TestStarDisambiguation(t *testing.T) {
	// '*' is DEREF whenever, after skipping whitespace, the next character
	// starts an identifier or is '*', '&', '(', '['; otherwise it is the
	// binary STAR. The rule looks forward, not at what preceded the '*', so
	// `a * b` fuses into `a DEREF b`.
	if got := kinds("*x"); got[0] != token.DEREF {
		t.Errorf("leading '*x' = %v, want DEREF first", got)
	}
	for _, src := range []string{"a * b", "a *(b)", "a *[0]", "a * *b", "a * &b"} {
		got := kinds(src)
		if got[1] != token.DEREF {
			t.Errorf("%q = %v, want DEREF for the middle '*'", src, got)
		}
	}
	for _, src := range []string{"*(", "*[", "**", "*&"} {
		got := kinds(src)
		if got[0] != token.DEREF {
			t.Errorf("%q = %v, want DEREF first", src, got)
		}
	}
}

func TestAmpDisambiguation(t *testing.T) {
	// Same forward rule applies to '&'.
	if got := kinds("&x"); got[0] != token.ADDRESS_OF {
		t.Errorf("leading '&x' = %v, want ADDRESS_OF first", got)
	}
	got := kinds("a & b")
	if got[1] != token.ADDRESS_OF {
		t.Errorf("'a & b' = %v, want ADDRESS_OF for the middle '&'", got)
	}
	for _, src := range []string{"&(", "&["} {
		got := kinds(src)
		if got[0] != token.ADDRESS_OF {
			t.Errorf("%q = %v, want ADDRESS_OF first", src, got)
		}
	}
}

func TestUnterminatedBlockCommentReportsDiagnostic(t *testing.T) {
	var diags []string
	lx := New("/* never closed", func(pos token.Position, msg string) {
		diags = append(diags, msg)
	})
	for {
		tok := lx.Next()
		if tok.Kind == token.EOF {
			break
		}
	}
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic for unterminated block comment")
	}
}

func TestUnterminatedStringReportsDiagnosticAndNoToken(t *testing.T) {
	var diags []string
	lx := New(`"never closed`, func(pos token.Position, msg string) {
		diags = append(diags, msg)
	})
	sawString := false
	for {
		tok := lx.Next()
		if tok.Kind == token.STRING {
			sawString = true
		}
		if tok.Kind == token.EOF {
			break
		}
	}
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic for unterminated string")
	}
	if sawString {
		t.Fatal("unterminated string must not produce a STRING token")
	}
}

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		`"hello"`:   "hello",
		`"a\nb"`:    "a\nb",
		`"a\tb"`:    "a\tb",
		`"quote\""`: `quote"`,
		`"back\\"`:  `back\`,
	}
	for in, want := range cases {
		if got := Unescape(in); got != want {
			t.Errorf("Unescape(%q) = %q, want %q", in, got, want)
		}
	}
}
