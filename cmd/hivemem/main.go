package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chzyer/readline"
	"github.com/swarmlabs/hivemem/pkg/config"
	"github.com/swarmlabs/hivemem/pkg/memory"
	"github.com/swarmlabs/hivemem/pkg/memory/index"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "hivemem"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Printf("  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	if p := os.Getenv("HIVEMEM_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".hivemem", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

// pool bundles the memory components one process works with.
type pool struct {
	cfg        *config.Config
	shared     *memory.SharedStore
	router     *memory.DomainRouter
	filter     *memory.InsightFilter
	federation *memory.Federation
	private    *memory.PrivateStoreManager
}

func openPool(cfg *config.Config) (*pool, error) {
	basePath := cfg.StoragePath()
	ns := cfg.Storage.Namespace

	factory, err := indexFactory(cfg)
	if err != nil {
		return nil, err
	}

	filter := memory.NewInsightFilter()
	if cfg.Filter.MinQuality > 0 {
		filter.MinQuality = cfg.Filter.MinQuality
	}
	if cfg.Filter.MaxInsights > 0 {
		filter.MaxInsights = cfg.Filter.MaxInsights
	}

	fed := memory.NewFederation(cfg.FederationPath())
	if cfg.Federation.QualityThreshold > 0 {
		fed.QualityThreshold = cfg.Federation.QualityThreshold
	}

	var sharedIdx index.Index
	if factory != nil {
		sharedIdx = factory(ns)
	}

	return &pool{
		cfg:        cfg,
		shared:     memory.NewSharedStore(ns, basePath, sharedIdx),
		router:     memory.NewDomainRouter(filepath.Join(basePath, "domains"), factory),
		filter:     filter,
		federation: fed,
		private:    memory.NewPrivateStoreManager(ns, basePath),
	}, nil
}

// indexFactory maps the configured backend onto per-namespace index
// constructors. Backend failures surface at open time, not on first query.
func indexFactory(cfg *config.Config) (memory.IndexFactory, error) {
	basePath := cfg.StoragePath()

	switch strings.ToLower(cfg.Index.Backend) {
	case "", "keyword":
		return func(namespace string) index.Index { return index.NewKeyword() }, nil
	case "sqlite":
		return func(namespace string) index.Index {
			idx, err := index.NewSQLiteFTS(filepath.Join(basePath, "index", namespace+".db"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: sqlite index for %s unavailable: %v\n", namespace, err)
				return nil
			}
			return idx
		}, nil
	case "chromem":
		embedder := index.NewEmbedder(cfg.Index.EmbeddingModel)
		persistBase := ""
		if cfg.Index.Persist {
			persistBase = filepath.Join(basePath, "vectors")
		}
		return func(namespace string) index.Index {
			persist := ""
			if persistBase != "" {
				persist = filepath.Join(persistBase, namespace)
			}
			idx, err := index.NewChromem(namespace, persist, embedder)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: vector index for %s unavailable: %v\n", namespace, err)
				return nil
			}
			return idx
		}, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q (expected keyword, sqlite or chromem)", cfg.Index.Backend)
	}
}

func shellLoop(p *pool, agentID string) {
	prompt := fmt.Sprintf("%s> ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".hivemem_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Printf("%s shell as %q (store <text> | recall <query> | summary | exit)\n\n", appName, agentID)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		cmd, rest, _ := strings.Cut(input, " ")
		rest = strings.TrimSpace(rest)
		ctx := context.Background()

		switch cmd {
		case "store":
			if rest == "" {
				fmt.Println("Usage: store <insight text>")
				continue
			}
			e := memory.NewEntry(agentID, rest, nil, nil)
			e.QualityScore = p.filter.QualityScore(rest)
			if err := p.router.StoreInsight(ctx, e); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("Stored in domain %q\n", memory.ClassifyDomain(rest))
		case "recall":
			if rest == "" {
				fmt.Println("Usage: recall <query>")
				continue
			}
			candidates := p.router.RetrieveInsights(ctx, rest, agentID, p.filter.MaxInsights*2)
			insights := p.filter.Filter(candidates, rest)
			fmt.Println(memory.FormatInsights(insights))
		case "summary":
			printSummaries(p)
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func printSummaries(p *pool) {
	for _, domain := range append([]string{memory.DefaultDomain}, memory.Domains()...) {
		s := p.router.DomainStore(domain).Summary()
		if s.TotalEntries == 0 {
			continue
		}
		fmt.Printf("%-20s %d entries, agents: %s\n", domain, s.TotalEntries, strings.Join(s.Agents, ", "))
	}
}
