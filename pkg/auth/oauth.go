package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/planbridge/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	// ClientSecretsFile is the OAuth client downloaded from the Google Cloud
	// console, stored in the planbridge config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the access and refresh token next to the client secrets.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local redirect listener runs during the browser flow.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// GetConfig creates an oauth2.Config from the client secrets file.
func GetConfig(scopes []string) (*oauth2.Config, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}

	clientSecretsFile := filepath.Join(dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = localRedirect(cfg.RedirectURL)
	return cfg, nil
}

// localRedirect points the redirect URL at the local listener. Desktop
// clients come with either a bare localhost URL or the retired OOB urn.
func localRedirect(redirect string) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" || redirect == "" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	u, err := url.Parse(redirect)
	if err != nil {
		log.Printf("Warning: could not parse RedirectURL '%s': %v. Using it as is.", redirect, err)
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Printf("Warning: RedirectURL %s is not a localhost callback", redirect)
		return redirect
	}
	if u.Port() != LocalhostAuthPort {
		u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	}
	return u.String()
}

// TokenPath returns where the OAuth token is cached.
func TokenPath() (string, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TokenFile), nil
}

// GetClient returns an authenticated *http.Client, starting the browser
// flow when no token is cached. Refreshed tokens are written back.
func GetClient(ctx context.Context, scopes []string) (*http.Client, error) {
	cfg, err := GetConfig(scopes)
	if err != nil {
		return nil, err
	}

	tokenFile, err := TokenPath()
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		log.Printf("No existing token found at %s. Initiating web authorization flow...", tokenFile)
		tok, err = getTokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := cfg.TokenSource(ctx, tok)
	current, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed, run 'planbridge auth': %w", err)
	}
	if current.AccessToken != tok.AccessToken || current.RefreshToken != tok.RefreshToken {
		log.Println("Token was refreshed. Saving new token to file.")
		if err := saveToken(tokenFile, current); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(current, src)), nil
}

// getTokenFromWeb runs the authorization code flow against a local listener.
func getTokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect URL")
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Please open the following URL in your browser to authorize planbridge:\n%s\n", authURL)
	log.Println("Waiting for authorization code...")

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	log.Printf("Saving authentication token to: %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Authenticate discards any cached token and runs the browser flow again.
func Authenticate(ctx context.Context) error {
	tokenFile, err := TokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete token file '%s', please delete it manually: %w", tokenFile, err)
	}

	client, err := GetClient(ctx, []string{tasks.TasksScope})
	if err != nil {
		return err
	}
	// Touch the API once so a bad grant fails here rather than mid-push.
	srv, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to retrieve Google Tasks service: %w", err)
	}
	if _, err := srv.Tasklists.List().MaxResults(1).Context(ctx).Do(); err != nil {
		return fmt.Errorf("authorized token cannot list task lists: %w", err)
	}
	return nil
}
