package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	// a Wednesday
	now := time.Date(2026, 3, 11, 15, 4, 0, 0, time.Local)
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.Local) }

	cases := []struct {
		in   string
		want time.Time
	}{
		{"", day(3, 11)},
		{"today", day(3, 11)},
		{"Tomorrow", day(3, 12)},
		{"yesterday", day(3, 10)},
		{"friday", day(3, 13)},
		{"next mon", day(3, 16)},
		{"wednesday", day(3, 18)},
		{"2026-04-01", day(4, 1)},
		{"04-05", day(4, 5)},
		{"04/05", day(4, 5)},
		{"12/24/2026", day(12, 24)},
	}
	for _, c := range cases {
		got, err := parseDate(c.in, now)
		if err != nil {
			t.Errorf("parseDate(%q): %v", c.in, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("parseDate(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := parseDate("someday", now); err == nil {
		t.Error("parseDate(someday) should fail")
	}
}

func TestFormatDurationCompact(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Minute, "45m"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "1h 30m"},
		{26 * time.Hour, "1d 2h"},
		{48 * time.Hour, "2d"},
		{-30 * time.Minute, "30m"},
	}
	for _, c := range cases {
		if got := formatDurationCompact(c.in); got != c.want {
			t.Errorf("formatDurationCompact(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Minute, "NOW"},
		{30 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{25*time.Hour + 2*time.Minute, "1 day, 1 hour, 2 minutes"},
	}
	for _, c := range cases {
		if got := formatCountdown(c.in); got != c.want {
			t.Errorf("formatCountdown(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n\nfive", 9)
	want := []string{"one two", "three", "four", "five"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a.example, ,http://b.example ")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("splitList of empty string should be nil")
	}
}

func TestSaveProfileToConfig(t *testing.T) {
	old := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	defer func() { cfgFile = old }()

	if err := saveProfileToConfig("work", map[string]interface{}{"store": "google"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := saveProfileToConfig("home", map[string]interface{}{"store": "local"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := setDefaultProfileInConfig("work"); err != nil {
		t.Fatalf("default: %v", err)
	}

	config, err := readConfigFile()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if config["default_profile"] != "work" {
		t.Errorf("default_profile = %v", config["default_profile"])
	}
	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok || len(profiles) != 2 {
		t.Fatalf("profiles = %#v", config["profiles"])
	}
	work, _ := profiles["work"].(map[string]interface{})
	if work["store"] != "google" {
		t.Errorf("work.store = %v", work["store"])
	}
}

func TestWaitForCallback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	go func() {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?session=abc", port))
		if err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := waitForCallback(ctx, ln, "session")
	if err != nil {
		t.Fatalf("waitForCallback: %v", err)
	}
	if got != "abc" {
		t.Errorf("session = %q, want abc", got)
	}
}

func TestWaitForCallbackError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	go func() {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied", port))
		if err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := waitForCallback(ctx, ln, "code"); err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Fatalf("err = %v, want access_denied", err)
	}
}
