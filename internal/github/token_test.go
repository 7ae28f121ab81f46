package github

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func ghStub(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a shell script gh stub")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gh"), []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write gh stub: %v", err)
	}
	t.Setenv("PATH", dir)
}

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range TokenEnvVars {
		t.Setenv(name, "")
	}
}

func TestResolveToken(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "env-token")
		tok, src, err := ResolveToken(context.Background(), " explicit ")
		if err != nil || tok != "explicit" || src != TokenSourceExplicit {
			t.Fatalf("got %q %q %v", tok, src, err)
		}
	})

	t.Run("engine variable before GITHUB_TOKEN", func(t *testing.T) {
		t.Setenv("MDQ_GITHUB_TOKEN", "mdq-token")
		t.Setenv("GITHUB_TOKEN", "env-token")
		tok, src, err := ResolveToken(context.Background(), "")
		if err != nil || tok != "mdq-token" || src != TokenSourceEnv {
			t.Fatalf("got %q %q %v", tok, src, err)
		}
	})

	t.Run("gh fallback", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "echo gh-token\n")
		tok, src, err := ResolveToken(context.Background(), "")
		if err != nil || tok != "gh-token" || src != TokenSourceCLI {
			t.Fatalf("got %q %q %v", tok, src, err)
		}
	})

	t.Run("no token anywhere", func(t *testing.T) {
		clearTokenEnv(t)
		t.Setenv("PATH", t.TempDir())
		tok, src, err := ResolveToken(context.Background(), "")
		if err != nil || tok != "" || src != "" {
			t.Fatalf("got %q %q %v", tok, src, err)
		}
	})

	t.Run("gh not logged in", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "exit 1\n")
		tok, _, err := ResolveToken(context.Background(), "")
		if err != nil || tok != "" {
			t.Fatalf("got %q %v", tok, err)
		}
	})

	t.Run("malformed gh output", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "printf 'a b\\n'\n")
		if _, _, err := ResolveToken(context.Background(), ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "echo gh-token\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := ResolveToken(ctx, "")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
