package driver

import "testing"

func TestQuoteUnquoteRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"simple",
		`has "quotes" and \backslash`,
		"control\x01byte",
		"utf8 café é",
	}
	for _, c := range cases {
		q := quoteValue(c)
		got, err := unquoteValue(q)
		if err != nil {
			t.Fatalf("unquoteValue(%q) error: %v", q, err)
		}
		if got != c {
			t.Errorf("round trip mismatch: got %q, want %q", got, c)
		}
	}
}

func TestQuoteValueEscapesControlBytes(t *testing.T) {
	got := quoteValue("a\x01b")
	want := `"a\x01b"`
	if got != want {
		t.Errorf("quoteValue = %q, want %q", got, want)
	}
}

func TestUnquoteValueBareToken(t *testing.T) {
	got, err := unquoteValue("bare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bare" {
		t.Errorf("got %q, want %q", got, "bare")
	}
}

func TestUnquoteValueDanglingEscape(t *testing.T) {
	if _, err := unquoteValue(`"a\`); err == nil {
		t.Error("expected error for dangling escape")
	}
}

func TestTokenizeQuotedAndBare(t *testing.T) {
	toks, err := tokenize(`SET ups.test.interval "30"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"SET", "ups.test.interval", `"30"`}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, toks[i], want[i])
		}
	}
}

func TestTokenizeQuotedWithEscapedQuote(t *testing.T) {
	toks, err := tokenize(`INSTCMD foo "a\"b"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(toks), toks)
	}
	val, err := unquoteValue(toks[2])
	if err != nil {
		t.Fatalf("unquoteValue error: %v", err)
	}
	if val != `a"b` {
		t.Errorf("got %q, want %q", val, `a"b`)
	}
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	if _, err := tokenize(`SET foo "bar`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}
