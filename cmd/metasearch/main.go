// Package main provides the entry point for the metasearch CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/a3s-lab/metasearch/internal/browser"
	"github.com/a3s-lab/metasearch/internal/config"
	"github.com/a3s-lab/metasearch/internal/engine"
	"github.com/a3s-lab/metasearch/internal/engines"
	"github.com/a3s-lab/metasearch/internal/fetcher"
	"github.com/a3s-lab/metasearch/internal/orchestrator"
	"github.com/a3s-lab/metasearch/internal/proxypool"
	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
	"github.com/a3s-lab/metasearch/internal/security"
	"github.com/a3s-lab/metasearch/internal/selectors"
	"github.com/a3s-lab/metasearch/pkg/version"
)

var (
	flagEngines string
	flagLimit   int
	flagTimeout int
	flagFormat  string
	flagProxy   string
	flagVerbose bool
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	cfg.Validate()

	root := &cobra.Command{
		Use:     "metasearch [query]",
		Short:   "Embeddable meta search engine CLI",
		Version: version.Full(),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchCommand(cmd, args, cfg)
		},
	}
	root.Flags().StringVarP(&flagEngines, "engines", "e", "", "comma-separated engine shortcuts (default: ddg,wiki)")
	root.Flags().IntVarP(&flagLimit, "limit", "l", 10, "maximum number of results to display")
	root.Flags().IntVarP(&flagTimeout, "timeout", "t", 10, "search timeout in seconds (default: config DEFAULT_ENGINE_TIMEOUT)")
	root.Flags().StringVarP(&flagFormat, "format", "f", "text", "output format: text, json, compact")
	root.Flags().StringVarP(&flagProxy, "proxy", "p", "", "proxy URL (http://, https://, or socks5://), overrides PROXY_URL")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEnginesCommand())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newEnginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List available search engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Available search engines:")
			fmt.Println()
			fmt.Println("  ddg    - DuckDuckGo (HTML, privacy-focused)")
			fmt.Println("  wiki   - Wikipedia (JSON API)")
			fmt.Println("  brave  - Brave Search (browser-rendered)")
			fmt.Println()
			fmt.Println(`Usage: metasearch "query" -e ddg,wiki`)
			return nil
		},
	}
}

// runSearchCommand runs one search against the engines selected by -e and
// prints the aggregated results. Config loaded from the environment supplies
// defaults for timeout, proxy, browser, and selector settings; any of the
// corresponding CLI flags explicitly set on cmd override it.
func runSearchCommand(cmd *cobra.Command, args []string, cfg *config.Config) error {
	if flagVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if len(args) == 0 {
		return cmd.Help()
	}
	queryText := strings.Join(args, " ")

	timeout := cfg.DefaultEngineTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = time.Duration(flagTimeout) * time.Second
	}

	proxyURL := cfg.ProxyURL
	proxyUsername := cfg.ProxyUsername
	proxyPassword := cfg.ProxyPassword
	if flagProxy != "" {
		proxyURL, proxyUsername, proxyPassword = flagProxy, "", ""
	}

	var proxyPool *proxypool.Pool
	if proxyURL != "" {
		if err := security.ValidateProxyURL(proxyURL, false); err != nil {
			return fmt.Errorf("refusing proxy URL: %w", err)
		}
		proxyCfg, err := splitProxyURL(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		if proxyUsername != "" {
			proxyCfg.Username = proxyUsername
			proxyCfg.Password = proxyPassword
		}
		proxyPool = proxypool.New(proxypool.RoundRobin, []proxypool.Config{proxyCfg})
		fmt.Fprintf(os.Stderr, "Using proxy: %s\n", proxyURL)
	}

	orch := orchestrator.New()
	orch.SetTimeout(timeout)
	if proxyPool != nil {
		orch.SetProxyPool(proxyPool)
	}

	engineCfg := *cfg
	engineCfg.ProxyURL, engineCfg.ProxyUsername, engineCfg.ProxyPassword = proxyURL, proxyUsername, proxyPassword
	pool := registerEngines(orch, &engineCfg, proxyPool, selectedShortcuts())
	if pool != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pool.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("browser pool shutdown error")
			}
		}()
	}

	results, err := orch.Search(context.Background(), query.New(queryText))
	if err != nil {
		return err
	}

	printResults(results, flagLimit, flagFormat)
	return nil
}

func selectedShortcuts() []string {
	if flagEngines == "" {
		return []string{"ddg", "wiki"}
	}
	parts := strings.Split(flagEngines, ",")
	shortcuts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			shortcuts = append(shortcuts, p)
		}
	}
	return shortcuts
}

// registerEngines wires one adapter per requested shortcut onto orch,
// lazily standing up a browser pool (using cfg's browser settings) only if
// a browser-backed engine (brave) is requested. The returned pool is nil if
// no browser engine was needed.
func registerEngines(orch *orchestrator.Orchestrator, cfg *config.Config, proxyPool *proxypool.Pool, shortcuts []string) *browser.Pool {
	sel, err := selectors.NewManager(cfg.SelectorsPath, cfg.SelectorsHotReload)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load selectors, using built-in defaults")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if proxyPool != nil {
		if c, err := proxyPool.CreateHTTPClient(version.UserAgent); err == nil {
			httpClient = c
		}
	}
	httpFetcher := fetcher.NewHTTPFetcher(httpClient)

	var pool *browser.Pool
	var browserFetcher *fetcher.BrowserFetcher
	ensureBrowserPool := func() *fetcher.BrowserFetcher {
		if pool == nil {
			pool = browser.NewPool(browser.PoolConfig{
				MaxTabs:          cfg.BrowserMaxTabs,
				Headless:         cfg.Headless,
				ExecutablePath:   cfg.BrowserPath,
				ProxyURL:         cfg.ProxyURL,
				ProxyUsername:    cfg.ProxyUsername,
				ProxyPassword:    cfg.ProxyPassword,
				IgnoreCertErrors: cfg.IgnoreCertErrors,
				MaxMemoryMB:      cfg.MaxMemoryMB,
			})
			browserFetcher = fetcher.NewBrowserFetcher(pool, fetcher.NetworkIdle(500))
		}
		return browserFetcher
	}

	for _, shortcut := range shortcuts {
		var e engine.Engine
		switch shortcut {
		case "ddg", "duckduckgo":
			e = engines.NewDuckDuckGo(httpFetcher, sel)
		case "wiki", "wikipedia":
			e = engines.NewWikipedia(httpFetcher, "en")
		case "brave":
			e = engines.NewBrave(ensureBrowserPool())
		default:
			fmt.Fprintf(os.Stderr, "Warning: unknown engine %q, skipping\n", shortcut)
			continue
		}
		orch.AddEngine(e)
	}

	return pool
}

func printResults(results *result.SearchResults, limit int, format string) {
	items := results.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	switch format {
	case "json":
		b, err := json.MarshalIndent(struct {
			Items      []result.MergedResult `json:"items"`
			Count      int                   `json:"count"`
			DurationMs int64                 `json:"duration_ms"`
			Errors     map[string]string     `json:"errors"`
		}{items, results.Count, results.DurationMs, results.Errors}, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to encode results:", err)
			return
		}
		fmt.Println(string(b))
	case "compact":
		for i, item := range items {
			fmt.Printf("%d. %s (%s)\n", i+1, item.Title, item.URL)
		}
	default:
		for i, item := range items {
			fmt.Printf("%d. %s\n   %s\n", i+1, item.Title, item.URL)
			if item.Content != "" {
				fmt.Printf("   %s\n", item.Content)
			}
			fmt.Println()
		}
		fmt.Printf("%d results in %dms\n", results.Count, results.DurationMs)
	}

	for eng, msg := range results.Errors {
		fmt.Fprintf(os.Stderr, "warning: engine %s: %s\n", eng, msg)
	}
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// splitProxyURL parses a proxy URL of the form scheme://[user:pass@]host[:port].
func splitProxyURL(raw string) (proxypool.Config, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return proxypool.Config{}, fmt.Errorf("missing scheme in proxy URL %q", raw)
	}

	var protocol proxypool.Protocol
	var defaultPort int
	switch scheme {
	case "http":
		protocol, defaultPort = proxypool.ProtocolHTTP, 8080
	case "https":
		protocol, defaultPort = proxypool.ProtocolHTTPS, 443
	case "socks5":
		protocol, defaultPort = proxypool.ProtocolSOCKS5, 1080
	default:
		return proxypool.Config{}, fmt.Errorf("unsupported proxy protocol %q", scheme)
	}

	var username, password string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		cred := rest[:at]
		rest = rest[at+1:]
		if colon := strings.Index(cred, ":"); colon >= 0 {
			username, password = cred[:colon], cred[colon+1:]
		} else {
			username = cred
		}
	}

	host := rest
	port := defaultPort
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		host = rest[:colon]
		if p, err := parsePort(rest[colon+1:]); err == nil {
			port = p
		}
	}
	if host == "" {
		return proxypool.Config{}, fmt.Errorf("missing host in proxy URL %q", raw)
	}

	return proxypool.Config{Host: host, Port: port, Protocol: protocol, Username: username, Password: password}, nil
}

func parsePort(s string) (int, error) {
	var p int
	if _, err := fmt.Sscanf(s, "%d", &p); err != nil {
		return 0, err
	}
	return p, nil
}
