// Package gmail ingests bank notification emails from a Gmail mailbox.
// Access is read-only; the package lists matching messages, fetches full
// bodies in bounded batches, decodes the MIME payload, and persists raw
// emails through the store. It never writes to the mailbox.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/c360studio/expense-tracker/config"
)

// Credentials loads the OAuth client credentials from credentials.json in
// the config directory.
func Credentials(dir string) (*oauth2.Config, error) {
	path := config.CredentialsPath(dir)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no credentials at %s: download an OAuth client id from Google Cloud Console and save it there", path)
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(raw, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// Token returns a usable OAuth token for the client config, loading the
// saved token.json when present and running the interactive loopback flow
// otherwise. A saved token is returned as-is; refresh happens lazily inside
// the token source when the service uses it.
func Token(ctx context.Context, dir string, oauthCfg *oauth2.Config, gcfg config.GmailConfig) (*oauth2.Token, error) {
	path := config.TokenPath(dir)
	if tok, err := loadToken(path); err == nil {
		return tok, nil
	}

	tok, err := authorize(ctx, oauthCfg, gcfg)
	if err != nil {
		return nil, err
	}
	if err := saveToken(path, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Service builds an authenticated read-only Gmail service. A revoked or
// expired refresh token is handled by deleting token.json and re-running
// the interactive flow once.
func Service(ctx context.Context, dir string, gcfg config.GmailConfig) (*gmailapi.Service, error) {
	oauthCfg, err := Credentials(dir)
	if err != nil {
		return nil, err
	}

	tok, err := Token(ctx, dir, oauthCfg, gcfg)
	if err != nil {
		return nil, err
	}

	// Probe the token now so a dead refresh token surfaces here, where we
	// can recover interactively, rather than mid-sync.
	src := oauthCfg.TokenSource(ctx, tok)
	if _, err := src.Token(); err != nil {
		slog.Warn("Stored token unusable, re-authorizing", "error", err)
		_ = os.Remove(config.TokenPath(dir))
		tok, err = Token(ctx, dir, oauthCfg, gcfg)
		if err != nil {
			return nil, err
		}
		src = oauthCfg.TokenSource(ctx, tok)
	}

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, src)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// authorize runs the local-loopback OAuth flow: start a listener on the
// configured port, print the consent URL, wait for the redirect with the
// auth code, exchange it for a token.
func authorize(ctx context.Context, oauthCfg *oauth2.Config, gcfg config.GmailConfig) (*oauth2.Token, error) {
	port := gcfg.RedirectPort
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d for oauth callback: %w", port, err)
	}
	defer listener.Close()

	cfg := *oauthCfg
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	state := fmt.Sprintf("expense-tracker-%d", time.Now().UnixNano())
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth callback without code: %s", r.URL.Query().Get("error"))
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Close()

	fmt.Println("Open this URL in your browser to authorize read-only Gmail access:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	timeout := time.Duration(gcfg.AuthTimeoutMs) * time.Millisecond
	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, fmt.Errorf("oauth callback: %w", err)
	case <-time.After(timeout):
		return nil, fmt.Errorf("timed out after %s waiting for oauth callback", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
