package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/conversation"
	"github.com/planweave/planweave/internal/httpapi"
	"github.com/planweave/planweave/internal/knowledge"
	"github.com/planweave/planweave/internal/llm"
	"github.com/planweave/planweave/internal/mcptools"
	"github.com/planweave/planweave/internal/research"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/turn"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir    string
	ListenAddr   string
	MCPAddr      string
	SessionsPath string
	ServeMCP     bool
	Version      bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("planweave", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing planweave.yml")
	fs.StringVar(&flags.ListenAddr, "listen", "", "HTTP API listen address (default :8080)")
	fs.StringVar(&flags.MCPAddr, "mcp-listen", "", "MCP server listen address (default :8081)")
	fs.StringVar(&flags.SessionsPath, "sessions", "", "path of the session persistence file")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "also expose the MCP tool server")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.ListenAddr != "" {
		cfg.ListenAddr = flags.ListenAddr
	}
	if flags.MCPAddr != "" {
		cfg.MCPAddr = flags.MCPAddr
	}
	if flags.SessionsPath != "" {
		cfg.SessionsPath = flags.SessionsPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.MCPAddr == "" {
		cfg.MCPAddr = ":8081"
	}

	keys := config.KeysFromEnv()
	if keys.OpenAI == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	var chatOpts []llm.Option
	if cfg.ChatModel != "" {
		chatOpts = append(chatOpts, llm.WithModel(cfg.ChatModel))
	}
	if cfg.ChatBaseURL != "" {
		chatOpts = append(chatOpts, llm.WithBaseURL(cfg.ChatBaseURL))
	}
	chat := llm.NewOpenAIClient(keys.OpenAI, chatOpts...)

	var researchOpts []research.ClientOption
	if cfg.ResearchEndpoint != "" {
		researchOpts = append(researchOpts, research.WithEndpoint(cfg.ResearchEndpoint))
	}
	if cfg.ResearchModel != "" {
		researchOpts = append(researchOpts, research.WithSearchModel(cfg.ResearchModel))
	}
	researcher := research.NewHTTPClient(keys.Perplexity, researchOpts...)

	sessions, err := session.NewStore(cfg.SessionsPath)
	if err != nil {
		return err
	}

	controller := turn.NewController(
		conversation.NewAgent(chat),
		research.NewOrchestrator(researcher),
	)

	var embedOpts []knowledge.EmbedOption
	if cfg.EmbedModel != "" {
		embedOpts = append(embedOpts, knowledge.WithEmbedModel(cfg.EmbedModel))
	}
	vectors := knowledge.NewVectorStore(knowledge.NewOpenAIEmbedder(keys.OpenAI, embedOpts...))
	indexer := knowledge.NewIndexer(vectors)

	server := httpapi.NewServer(sessions, controller,
		httpapi.WithIndexer(indexer),
		httpapi.WithSearch(vectors),
	)
	server.Start(cfg.ListenAddr)
	log.Printf("planweave: HTTP API listening on %s", cfg.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.ServeMCP {
		svc := mcptools.NewPlanService(sessions, controller)
		log.Printf("planweave: MCP server listening on %s", cfg.MCPAddr)
		if err := mcptools.RunMCPServer(ctx, svc, cfg.MCPAddr); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	return server.Stop(context.Background())
}
