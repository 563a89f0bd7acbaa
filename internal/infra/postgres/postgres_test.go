package postgres

import (
	"strings"
	"testing"

	"github.com/thorvik/keyward/config"
)

func TestConnString_Defaults(t *testing.T) {
	got := ConnString(config.PostgresConfig{
		User:     "keyward",
		Database: "keyward",
	})

	if !strings.HasPrefix(got, "postgres://keyward@localhost:5432/keyward?") {
		t.Fatalf("unexpected conn string %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("expected sslmode default in %q", got)
	}
	if !strings.Contains(got, "application_name=keyward") {
		t.Fatalf("expected application name in %q", got)
	}
}

func TestConnString_EscapesCredentials(t *testing.T) {
	got := ConnString(config.PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "key ward",
		Password: "p@ss/word",
		Database: "keyward",
		SSLMode:  "require",
	})

	if strings.Contains(got, "p@ss/word") {
		t.Fatalf("password must be escaped in %q", got)
	}
	if !strings.Contains(got, "@db.internal:5433/") {
		t.Fatalf("unexpected host/port in %q", got)
	}
	if !strings.Contains(got, "sslmode=require") {
		t.Fatalf("expected configured sslmode in %q", got)
	}
}
