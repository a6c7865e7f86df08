package main

import (
	"errors"
	"testing"
	"time"

	"taskboard/domain"
	"taskboard/session"
)

func TestParseDue(t *testing.T) {
	got, err := parseDue("")
	if err != nil || got != nil {
		t.Fatalf("empty due = %v, %v; want nil, nil", got, err)
	}
	got, err = parseDue("2026-03-01")
	if err != nil {
		t.Fatalf("parseDue: %v", err)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("due = %v, want %v", got, want)
	}
	if _, err := parseDue("next week"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad due err = %v, want validation", err)
	}
}

func TestResolvePassword(t *testing.T) {
	t.Setenv(envPassword, "from-env")
	if got := resolvePassword("flag"); got != "flag" {
		t.Fatalf("flag password = %q", got)
	}
	if got := resolvePassword(""); got != "from-env" {
		t.Fatalf("env password = %q", got)
	}
}

func TestDisplayUser(t *testing.T) {
	if got := displayUser(session.Session{UserID: "u1", Name: "Ada"}); got != "Ada" {
		t.Fatalf("displayUser = %q", got)
	}
	if got := displayUser(session.Session{UserID: "u1"}); got != "u1" {
		t.Fatalf("displayUser without name = %q", got)
	}
}
