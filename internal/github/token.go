package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

type TokenSource string

const (
	TokenSourceExplicit TokenSource = "explicit"
	TokenSourceEnv      TokenSource = "env"
	TokenSourceCLI      TokenSource = "gh"
)

// TokenEnvVars are consulted in order when no token is given explicitly.
var TokenEnvVars = []string{"MDQ_GITHUB_TOKEN", "GITHUB_TOKEN"}

// ResolveToken finds a GitHub token: the provided value, then TokenEnvVars,
// then `gh auth token`. No token at all is not an error; public
// repositories are readable anonymously.
func ResolveToken(ctx context.Context, provided string) (string, TokenSource, error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, TokenSourceExplicit, nil
	}
	for _, name := range TokenEnvVars {
		if tok := strings.TrimSpace(os.Getenv(name)); tok != "" {
			return tok, TokenSourceEnv, nil
		}
	}
	tok, err := tokenFromCLI(ctx)
	if err != nil || tok == "" {
		return "", "", err
	}
	return tok, TokenSourceCLI, nil
}

func tokenFromCLI(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", "github.com")
	cmd.Env = append(os.Environ(), "GH_PAGER=cat")
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Not logged in.
		return "", nil
	}
	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("gh returned a malformed token")
	}
	return tok, nil
}
