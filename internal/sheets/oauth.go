package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// authTimeout bounds how long the browser flow waits for the callback.
const authTimeout = 5 * time.Minute

// OAuth2Config holds the installed-app OAuth2 settings.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string // defaults to localhost:8080
}

func (c OAuth2Config) oauth(redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// AuthenticateInteractive runs the browser OAuth2 flow. announce receives
// the URL the user has to open.
func AuthenticateInteractive(ctx context.Context, cfg OAuth2Config, announce func(url string)) (*oauth2.Token, error) {
	addr := cfg.CallbackAddr
	if addr == "" {
		addr = "localhost:8080"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	redirect := "http://" + ln.Addr().String() + "/callback"
	oauthConfig := cfg.oauth(redirect)

	state := fmt.Sprintf("yieldcast-%d", time.Now().UnixNano())
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state || q.Get("code") == "" {
			select {
			case errs <- errors.New("no authorization code received"):
			default:
			}
			http.Error(w, "Authentication failed. Please try again.", http.StatusBadRequest)
			return
		}
		select {
		case codes <- q.Get("code"):
		default:
		}
		_, _ = fmt.Fprintln(w, "Authentication successful. You can close this window.")
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case errs <- fmt.Errorf("callback server failed: %w", serveErr):
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Warn("error shutting down callback server", "error", shutdownErr)
		}
	}()

	url := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if announce != nil {
		announce(url)
	}

	timer := time.NewTimer(authTimeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-timer.C:
		return nil, fmt.Errorf("authentication timed out after %s", authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if cfg.TokenFile != "" {
		if err := SaveToken(cfg.TokenFile, token); err != nil {
			slog.Warn("failed to save token", "error", err, "file", cfg.TokenFile)
		}
	}
	return token, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// GetOrCreateToken loads a saved token or runs the interactive flow.
// Expired saved tokens are refreshed and written back.
func GetOrCreateToken(ctx context.Context, cfg OAuth2Config, announce func(url string)) (*oauth2.Token, error) {
	if cfg.TokenFile != "" {
		token, err := LoadToken(cfg.TokenFile)
		if err == nil {
			if token.Valid() {
				return token, nil
			}
			fresh, err := cfg.oauth("").TokenSource(ctx, token).Token()
			if err == nil {
				if saveErr := SaveToken(cfg.TokenFile, fresh); saveErr != nil {
					slog.Warn("failed to save refreshed token", "error", saveErr)
				}
				return fresh, nil
			}
			slog.Info("saved token could not be refreshed, starting OAuth2 flow", "error", err)
		}
	}
	return AuthenticateInteractive(ctx, cfg, announce)
}
