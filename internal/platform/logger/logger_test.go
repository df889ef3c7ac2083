package logger

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
)

func TestRedactorSecretsAndHashes(t *testing.T) {
	r := &redactor{enabled: true, salt: "s"}
	cases := []struct {
		key  string
		val  any
		want string
	}{
		{key: "iban", val: "DE89370400440532013000", want: "[REDACTED]"},
		{key: "authorization", val: "Bearer x", want: "[REDACTED]"},
		{key: "space_id", val: "abc", want: "abc"},
		{key: "note", val: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig", want: "[REDACTED]"},
	}
	for _, tc := range cases {
		if got := r.value(tc.key, tc.val); got != tc.want {
			t.Fatalf("value(%q): want=%v got=%v", tc.key, tc.want, got)
		}
	}

	a, _ := r.value("member_email", "ada@example.com").(string)
	b, _ := r.value("payer_email", "ada@example.com").(string)
	if !strings.HasPrefix(a, "hash:") || len(a) != len("hash:")+12 || a != b {
		t.Fatalf("emails must hash consistently: %q %q", a, b)
	}
	if other := (&redactor{enabled: true, salt: "t"}).hash("ada@example.com"); other == a {
		t.Fatalf("salt must change the hash")
	}
}

func TestRedactorKVs(t *testing.T) {
	r := &redactor{enabled: true}
	got := r.kvs([]any{"token", "abc", "nested", map[string]any{"Password": "x", "ok": 1}, "dangling"})
	if len(got) != 5 || got[1] != "[REDACTED]" || got[4] != "dangling" {
		t.Fatalf("unexpected kvs: %v", got)
	}
	if m := got[3].(map[string]any); m["Password"] != "[REDACTED]" || m["ok"] != 1 {
		t.Fatalf("nested map not sanitized: %v", m)
	}
	off := &redactor{}
	if got := off.kvs([]any{"token", "abc"}); got[1] != "abc" {
		t.Fatalf("disabled redactor must pass values through")
	}
}

func TestRedactionCanBeDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	if redactorFromEnv().enabled {
		t.Fatalf("expected redaction off")
	}
}

func TestTestModeAndWithContext(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if same := log.WithContext(context.Background()); same != log {
		t.Fatalf("empty context must not allocate a child logger")
	}
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{TenantID: uuid.New()})
	ctx = ctxutil.WithTrace(ctx, ctxutil.Trace{RequestID: "r1"})
	log.WithContext(ctx).With("service", "x").Info("discarded", "k", "v")
}
