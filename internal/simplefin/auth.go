package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-forecast/internal/common"
)

// AuthState is the saved result of claiming a setup token.
type AuthState struct {
	ClaimedAt  time.Time `json:"claimed_at"`
	AccessURL  string    `json:"access_url"`
	ClaimToken string    `json:"claim_token_hint"`
}

// LoadOrClaimAuth returns the access URL saved in stateFile, claiming token
// and saving the result when there is none.
func LoadOrClaimAuth(ctx context.Context, httpClient *http.Client, token, stateFile string) (*AuthState, error) {
	if auth, err := loadAuthState(stateFile); err == nil && auth.AccessURL != "" {
		slog.Debug("Using saved SimpleFIN access URL",
			"claimed_at", auth.ClaimedAt.Format(time.DateOnly),
			"state_file", stateFile)
		return auth, nil
	}

	if token == "" {
		return nil, fmt.Errorf("%w: SimpleFIN setup token is required", common.ErrMissingConfig)
	}

	slog.Info("Claiming SimpleFIN setup token")
	accessURL, err := claimToken(ctx, httpClient, token)
	if err != nil {
		return nil, err
	}

	auth := &AuthState{
		AccessURL:  accessURL,
		ClaimedAt:  time.Now(),
		ClaimToken: tokenHint(token),
	}
	if stateFile != "" {
		if err := saveAuthState(stateFile, auth); err != nil {
			return nil, fmt.Errorf("failed to save SimpleFIN access: %w", err)
		}
	}
	return auth, nil
}

// claimToken exchanges a base64-encoded claim URL for an access URL.
func claimToken(ctx context.Context, httpClient *http.Client, token string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(strings.TrimSpace(token))
		if err != nil {
			return "", fmt.Errorf("failed to decode SimpleFIN token: %w", err)
		}
	}

	claimURL := string(decoded)
	if !isHTTPURL(claimURL) {
		return "", errors.New("decoded SimpleFIN token is not a URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim SimpleFIN token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read claim response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("SimpleFIN claim failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	accessURL := strings.TrimSpace(string(body))
	if !isHTTPURL(accessURL) {
		return "", errors.New("SimpleFIN returned an invalid access URL")
	}
	return accessURL, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func loadAuthState(path string) (*AuthState, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from config
	if err != nil {
		return nil, err
	}

	var auth AuthState
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func saveAuthState(path string, auth *AuthState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// tokenHint keeps enough of a token to recognize it later.
func tokenHint(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-8:]
	}
	return "short_token"
}
