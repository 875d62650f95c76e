package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	updates := make(chan AppConfig, 1)
	w := &Watcher{Path: path, Cooldown: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, func(cfg AppConfig) { updates <- cfg }) }()

	// 等 watcher 就绪
	time.Sleep(100 * time.Millisecond)

	changed := strings.Replace(sampleYAML, "env: test", "env: prod", 1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-updates:
		if cfg.Env != "prod" {
			t.Errorf("env = %q, want prod", cfg.Env)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	updates := make(chan AppConfig, 1)
	w := &Watcher{Path: path, Cooldown: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, func(cfg AppConfig) { updates <- cfg }) }()

	time.Sleep(100 * time.Millisecond)

	// env 缺失：校验失败，不应触发回调
	broken := strings.Replace(sampleYAML, "env: test", "env: \"\"", 1)
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-updates:
		t.Errorf("unexpected reload with env=%q", cfg.Env)
	case <-time.After(500 * time.Millisecond):
	}
}
