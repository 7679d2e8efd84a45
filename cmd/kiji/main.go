// Package main is the kiji CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/newsdesk/kiji/internal/cli"
	"github.com/newsdesk/kiji/internal/config"
	"github.com/newsdesk/kiji/internal/embedding"
	"github.com/newsdesk/kiji/internal/extract"
	"github.com/newsdesk/kiji/internal/fileid"
	"github.com/newsdesk/kiji/internal/ingest"
	"github.com/newsdesk/kiji/internal/keyword"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/rag"
	"github.com/newsdesk/kiji/internal/server"
	"github.com/newsdesk/kiji/internal/storage"
	"github.com/newsdesk/kiji/internal/summary"
	"github.com/newsdesk/kiji/internal/vector"
	"github.com/newsdesk/kiji/internal/watcher"
	"github.com/newsdesk/kiji/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiji/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kiji server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "add":
		runAdd()
	case "import":
		runImport()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "summarize":
		runSummarize()
	case "delete":
		runDelete()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kiji version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file imports, provider routing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingestor
	exts := cfg.Watch.Extensions
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		func(path string) {
			if _, err := ing.ImportFile(context.Background(), path, exts); err != nil {
				logger.Warn("watch import failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				return
			}
			if err := ing.Delete(context.Background(), fileid.ArticleID(abs)); err != nil {
				logger.Warn("watch delete by path failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Pipeline,
		components.Ingestor,
		components.Storage,
		components.KeywordIndex,
		components.Router,
		cfg,
		logger,
		server.WithWatcher(watchSvc, resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji add [flags] <article.json>   (use - for stdin)")
		os.Exit(1)
	}
	path := fs.Arg(0)

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read article: %v\n", err)
		os.Exit(1)
	}
	var input models.ArticleInput
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid article JSON: %v\n", err)
		os.Exit(1)
	}

	if *serverURL != "" {
		// Use HTTP API when server is running (avoids Bleve/SQLite lock conflict).
		resp, err := http.Post(*serverURL+"/api/v1/articles", "application/json", bytes.NewReader(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Article ingested: %s\n", out.ID)
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	article, err := components.Ingestor.Ingest(context.Background(), &input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Article ingested: %s\n", article.ID)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	defer saveVectorIndex(components, cfg, logger)

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		exts := cfg.Watch.Extensions
		n, err := components.Ingestor.ImportDirectory(ctx, path, exts)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter
	article, err := components.Ingestor.ImportFile(ctx, path, nil)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Article imported: %s\n", article.ID)
}

// buildQueryString joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "gpu shortage" vs gpu shortage).
func buildQueryString(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "kiji search \"query\" -top-k 5"
// would otherwise leave -top-k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of results (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji search [flags] <query>")
		os.Exit(1)
	}
	queryStr := buildQueryString(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kiji search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.SearchQuery{Query: queryStr, TopK: *topK}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if query.TopK <= 0 {
		query.TopK = components.Config.Search.DefaultTopK
	}
	response, err := components.Pipeline.Search(context.Background(), query.Query, query.TopK, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of context chunks to retrieve (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQueryString(fs.Args())
	if question == "" {
		fmt.Println("Usage: kiji ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		body, _ := json.Marshal(map[string]interface{}{"question": question, "top_k": *topK})
		resp, err := http.Post(*serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Ask failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var answer models.Answer
		if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, &answer, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	k := *topK
	if k <= 0 {
		k = components.Config.Search.DefaultTopK
	}
	answer, err := components.Pipeline.Answer(context.Background(), question, k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSummarize() {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	maxLength := fs.Int("max-length", 0, "maximum summary length in characters (0 = provider default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji summarize [flags] <article-id>")
		os.Exit(1)
	}
	articleID := fs.Arg(0)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		body, _ := json.Marshal(map[string]int{"max_length": *maxLength})
		resp, err := http.Post(*serverURL+"/api/v1/articles/"+url.PathEscape(articleID)+"/summary",
			"application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Summarize failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var summaryResult models.Summary
		if err := json.NewDecoder(resp.Body).Decode(&summaryResult); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSummary(os.Stdout, &summaryResult, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if components.Router == nil {
		fmt.Fprintln(os.Stderr, "No summarization providers configured")
		os.Exit(1)
	}
	ctx := context.Background()
	article, err := components.Storage.GetArticle(ctx, articleID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
		os.Exit(1)
	}
	result, err := components.Router.Summarize(ctx, article.Body, *maxLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSummary(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiji delete [flags] <article-id>")
		os.Exit(1)
	}
	articleID := fs.Arg(0)

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if err := components.Ingestor.Delete(context.Background(), articleID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Article deleted: %s\n", articleID)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kiji watch <add|remove|list> [path]")
		fmt.Println("  kiji watch add <path>     Add directory to watch")
		fmt.Println("  kiji watch remove <path>  Remove directory from watch")
		fmt.Println("  kiji watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kiji watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kiji watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Articles         int64                  `json:"articles"`
	VectorIndexSize  int                    `json:"vector_index_size"`
	KeywordIndexSize *uint64                `json:"keyword_index_size,omitempty"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Providers        []string               `json:"providers,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		cfg := components.Config

		ctx := context.Background()
		articleCount, err := components.Storage.CountArticles(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count articles failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Articles:        articleCount,
			VectorIndexSize: components.VectorIndex.Size(),
			Config: map[string]interface{}{
				"embedding_backend":    cfg.Embedding.Backend,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"chunk_size":           cfg.Search.ChunkSize,
				"chunk_overlap":        cfg.Search.ChunkOverlap,
				"database_path":        cfg.Storage.DatabasePath,
				"bleve_index_path":     cfg.Storage.BleveIndexPath,
				"vector_index_path":    cfg.Storage.VectorIndexPath,
			},
		}
		if kwCount, err := components.KeywordIndex.DocCount(); err == nil {
			status.KeywordIndexSize = &kwCount
		}
		if components.Router != nil {
			status.Providers = components.Router.Providers()
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("articles:            %d   # count of stored articles\n", status.Articles)
		fmt.Printf("vector_index_size:   %d   # count of chunk vectors in semantic index\n", status.VectorIndexSize)
		if status.KeywordIndexSize != nil {
			fmt.Printf("keyword_index_size:  %d   # count of articles in keyword index\n", *status.KeywordIndexSize)
		}
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:    %d   # storage + indices on disk\n", *status.DiskUsageBytes)
		}
		if len(status.Providers) > 0 {
			fmt.Printf("providers:           %s\n", strings.Join(status.Providers, ", "))
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{
				"embedding_backend", "embedding_dimensions", "chunk_size", "chunk_overlap",
				"database_path", "bleve_index_path", "vector_index_path",
			} {
				if v, ok := status.Config[key]; ok && v != "" {
					fmt.Printf("%-20s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  *vector.Index
	KeywordIndex keyword.KeywordIndex
	Router       *summary.Router
	Pipeline     *rag.Pipeline
	Ingestor     *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// mustInitialize loads config, builds a logger, and initializes all components,
// exiting on failure. Shared by the direct-mode subcommands.
func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	switch cfg.Embedding.Backend {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	case "ollama":
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL:    cfg.Embedding.OllamaURL,
			Model:      cfg.Embedding.OllamaModel,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
		}, cfg.Embedding.CacheSize)
	default:
		embedder := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.BatchSize,
			cfg.Embedding.CacheSize,
		)
		if !embedder.Available() {
			if logger != nil {
				logger.Warn("ONNX model unavailable, falling back to mock embedder",
					zap.String("model_path", cfg.Embedding.ModelPath))
			}
			_ = embedder.Close()
			return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		}
		return embedder
	}
}

// buildRouter constructs the provider fallback router from config.
// Returns nil when no provider can be constructed (summarization disabled).
func buildRouter(cfg *config.Config, logger *zap.Logger) *summary.Router {
	descriptors := make([]summary.Descriptor, 0, len(cfg.Summary.Providers))
	for _, pc := range cfg.Summary.Providers {
		switch pc.Name {
		case "ollama":
			provider := summary.NewOllamaProvider(summary.OllamaConfig{
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				Timeout:     pc.Timeout.Std(),
				MinTextLen:  pc.MinTextLen,
				MaxChars:    pc.MaxChars,
				MaxKeywords: cfg.Summary.MaxKeywords,
			})
			descriptors = append(descriptors, summary.Descriptor{Name: pc.Name, Provider: provider, Weight: pc.Weight})
		case "claude":
			keyEnv := pc.APIKeyEnv
			if keyEnv == "" {
				keyEnv = "ANTHROPIC_API_KEY"
			}
			provider, err := summary.NewClaudeProvider(summary.ClaudeConfig{
				APIKey:      os.Getenv(keyEnv),
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				Timeout:     pc.Timeout.Std(),
				MinTextLen:  pc.MinTextLen,
				MaxChars:    pc.MaxChars,
				MaxKeywords: cfg.Summary.MaxKeywords,
			})
			if err != nil {
				if logger != nil {
					logger.Warn("skipping claude provider", zap.String("api_key_env", keyEnv), zap.Error(err))
				}
				continue
			}
			descriptors = append(descriptors, summary.Descriptor{Name: pc.Name, Provider: provider, Weight: pc.Weight})
		default:
			if logger != nil {
				logger.Warn("unknown summarization provider", zap.String("name", pc.Name))
			}
		}
	}
	if len(descriptors) == 0 {
		return nil
	}
	routerOpts := []summary.RouterOption{summary.WithProbeTTL(cfg.Summary.ProbeTTL.Std())}
	if logger != nil {
		routerOpts = append(routerOpts, summary.WithLogger(logger))
	}
	return summary.NewRouter(descriptors, routerOpts...)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := newEmbedder(cfg, logger)

	vectorIndex := vector.NewIndex(embedder.Dimensions())
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil && logger != nil {
			logger.Warn("vector index load skipped (re-import to rebuild)",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	router := buildRouter(cfg, logger)

	pipelineOpts := []rag.PipelineOption{}
	if router != nil {
		pipelineOpts = append(pipelineOpts, rag.WithRouter(router))
	}
	if debug && logger != nil {
		pipelineOpts = append(pipelineOpts, rag.WithLogger(logger))
	}
	pipeline, err := rag.New(rag.Config{
		ChunkSize:     cfg.Search.ChunkSize,
		ChunkOverlap:  cfg.Search.ChunkOverlap,
		ContextBudget: cfg.Summary.ContextBudget,
	}, embedder, vectorIndex, pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	ingOpts := []ingest.IngestorOption{}
	if debug && logger != nil {
		ingOpts = append(ingOpts, ingest.WithLogger(logger))
	}
	ing := ingest.NewIngestor(store, keywordIndex, pipeline, extract.NewExtractor(), ingOpts...)

	return &Components{
		Config:       cfg,
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Router:       router,
		Pipeline:     pipeline,
		Ingestor:     ing,
	}, nil
}

func saveVectorIndex(components *Components, cfg *config.Config, logger *zap.Logger) {
	if cfg.Storage.VectorIndexPath == "" {
		return
	}
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil && logger != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`kiji - Local tech-news search and summarization

Usage:
  kiji server [flags]              Start the HTTP server
  kiji add [flags] <article.json>  Ingest a structured article (use - for stdin)
  kiji import [flags] <path>       Import a file or directory of articles
  kiji search [flags] <query>      Semantic search over article chunks
  kiji ask [flags] <question>      Answer a question from stored articles
  kiji summarize [flags] <id>      Summarize a stored article
  kiji delete [flags] <id>         Delete an article
  kiji status [flags]              Show storage/index/provider status
  kiji watch <add|remove|list>     Manage watched import directories
  kiji version                     Show version
  kiji help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kiji/config.yaml)
  --debug            Enable debug logging (file imports, provider routing, etc.)

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --top-k int        Number of results (0 = config default)
  --output string    Output format: text, compact, or json (default: text)

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --top-k int        Number of context chunks to retrieve (0 = config default)
  --output string    Output format: text or json (default: text)

Summarize Flags:
  --server string      Server URL (default: http://localhost:8080)
  --max-length int     Maximum summary length in characters (0 = provider default)
  --output string      Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  kiji server
  kiji add story.json
  kiji import ~/news/
  kiji search "gpu supply chain"
  kiji search --output json "kernel release"
  kiji ask "what changed in the latest kernel release?"
  kiji summarize --max-length 280 file:2f9a...
  kiji status --output json
  kiji watch add /path/to/news`)
}
