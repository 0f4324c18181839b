package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/swarmlabs/hivemem/pkg/config"
	"github.com/swarmlabs/hivemem/pkg/memory"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "hivemem",
		Short: "Collective memory layer for multi-agent pipelines",
		Long: strings.TrimSpace(`hivemem manages shared, private, and domain-routed memory pools
for cooperating agents.

Use CLI commands to initialize configuration, store and recall insights,
inspect pool summaries, export snapshots, and exchange federation bundles
between organizations.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newStoreCommand())
	root.AddCommand(newRecallCommand())
	root.AddCommand(newShareCommand())
	root.AddCommand(newSummaryCommand())
	root.AddCommand(newExportCommand())
	root.AddCommand(newFederateCommand())
	root.AddCommand(newShellCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.hivemem config",
		Long:    "Create the default configuration file for a new hivemem installation.",
		Example: "  hivemem onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := getConfigPath()
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config already exists at %s", configPath)
			}
			cfg := config.DefaultConfig()
			if err := config.SaveConfig(configPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("%s is ready!\n\nConfig written to %s\n", appName, configPath)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Store an insight:  hivemem store --agent engineer \"binary search needs sorted input\"")
			fmt.Println("  2. Recall insights:   hivemem recall --agent engineer \"search algorithms\"")
			fmt.Println("  3. Open a shell:      hivemem shell --agent engineer")
			return nil
		},
	}
}

func newStoreCommand() *cobra.Command {
	var (
		agentID    string
		tags       []string
		importance float64
		private    bool
	)

	cmd := &cobra.Command{
		Use:   "store <content>",
		Short: "Store an insight in the memory pool",
		Long:  "Classify the insight by domain and write it to the shared pool, or to the agent's private store with --private.",
		Args:  cobra.ExactArgs(1),
		Example: strings.Join([]string{
			"  hivemem store --agent engineer \"binary search needs sorted input\"",
			"  hivemem store --agent qa_engineer --private --tag flaky \"retry the checkout test\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			e := memory.NewEntry(agentID, args[0], tags, nil)
			e.Importance = importance
			e.QualityScore = p.filter.QualityScore(args[0])

			ctx := context.Background()
			if private {
				store, err := p.private.Get(agentID)
				if err != nil {
					return err
				}
				if err := store.Store(ctx, e); err != nil {
					return err
				}
				fmt.Printf("Stored privately for %s (id %s)\n", agentID, e.ID)
				return nil
			}
			if err := p.router.StoreInsight(ctx, e); err != nil {
				return err
			}
			fmt.Printf("Stored in domain %q (id %s)\n", memory.ClassifyDomain(args[0]), e.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "Agent identity storing the insight")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().Float64VarP(&importance, "importance", "i", 0.5, "Importance score in [0,1]")
	cmd.Flags().BoolVarP(&private, "private", "p", false, "Store in the agent's private pool")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func newRecallCommand() *cobra.Command {
	var (
		agentID string
		limit   int
		private bool
	)

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Recall quality-filtered insights for a query",
		Args:  cobra.ExactArgs(1),
		Example: strings.Join([]string{
			"  hivemem recall --agent engineer \"search algorithms\"",
			"  hivemem recall --agent qa_engineer --private \"flaky tests\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if private {
				store, err := p.private.Get(agentID)
				if err != nil {
					return err
				}
				entries, err := store.Retrieve(ctx, args[0], agentID, limit)
				if err != nil {
					return err
				}
				fmt.Println(memory.FormatInsights(entries))
				return nil
			}

			candidates := p.router.RetrieveInsights(ctx, args[0], agentID, limit*2)
			insights := p.filter.Filter(candidates, args[0])
			fmt.Println(memory.FormatInsights(insights))
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "Agent identity performing the recall")
	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "Maximum insights to return")
	cmd.Flags().BoolVarP(&private, "private", "p", false, "Recall from the agent's private pool")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func newShareCommand() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:     "share <entry_id>...",
		Short:   "Copy private entries from one agent to another",
		Long:    "Create damped copies of the named private entries in the target agent's store, tagged as shared knowledge.",
		Args:    cobra.MinimumNArgs(1),
		Example: "  hivemem share --from engineer --to qa_engineer 3f2a91c0",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			source, err := p.private.Get(from)
			if err != nil {
				return err
			}
			target, err := p.private.Get(to)
			if err != nil {
				return err
			}
			shared, err := source.ShareKnowledge(context.Background(), args, target)
			if err != nil {
				return err
			}
			fmt.Printf("Shared %d/%d entries from %s to %s\n", shared, len(args), from, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source agent identity")
	cmd.Flags().StringVar(&to, "to", "", "Target agent identity")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "summary",
		Short:   "Show entry counts per domain store",
		Example: "  hivemem summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}
			printSummaries(p)
			shared := p.shared.Summary()
			if shared.TotalEntries > 0 {
				fmt.Printf("%-20s %d entries, agents: %s\n", "shared", shared.TotalEntries, strings.Join(shared.Agents, ", "))
			}
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export pool snapshots for analysis",
		Long:    "Write the shared pool snapshot and all private store exports to the output directory.",
		Example: "  hivemem export --out ./snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			sharedPath := filepath.Join(outDir, "shared_memory_export.json")
			if err := p.shared.Export(sharedPath); err != nil {
				return err
			}
			if err := p.private.ExportAll(outDir); err != nil {
				return err
			}
			fmt.Printf("Exported pool snapshots to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "exports", "Output directory")
	return cmd
}

func newFederateCommand() *cobra.Command {
	fedRoot := &cobra.Command{
		Use:   "federate",
		Short: "Exchange insight bundles between organizations",
	}

	var org string
	export := &cobra.Command{
		Use:     "export",
		Short:   "Export high-quality shared insights as a bundle",
		Example: "  hivemem federate export --org acme",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			var entries []memory.Entry
			for _, domain := range append([]string{memory.DefaultDomain}, memory.Domains()...) {
				entries = append(entries, p.router.DomainStore(domain).Entries()...)
			}

			path, err := p.federation.Export(entries, org)
			if err != nil {
				return err
			}
			fmt.Printf("Bundle written to %s\n", path)
			return nil
		},
	}
	export.Flags().StringVar(&org, "org", "", "Organization identifier stamped on the bundle")
	_ = export.MarkFlagRequired("org")
	fedRoot.AddCommand(export)

	imp := &cobra.Command{
		Use:     "import <bundle.json>",
		Short:   "Import a federation bundle into the local pool",
		Args:    cobra.ExactArgs(1),
		Example: "  hivemem federate import export_acme_1756250000.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}
			n, err := p.federation.Import(context.Background(), args[0], p.router)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d insights\n", n)
			return nil
		},
	}
	fedRoot.AddCommand(imp)

	return fedRoot
}

func newShellCommand() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:     "shell",
		Short:   "Interactive memory session",
		Example: "  hivemem shell --agent engineer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}
			shellLoop(p, agentID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "cli", "Agent identity for the session")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and pool utilization",
		Example: "  hivemem status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := openPool(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Config:      %s\n", getConfigPath())
			fmt.Printf("Storage:     %s (namespace %q)\n", cfg.StoragePath(), cfg.Storage.Namespace)
			fmt.Printf("Index:       %s\n", indexBackendName(cfg))
			fmt.Printf("Federation:  %s (threshold %.2f)\n", cfg.FederationPath(), p.federation.QualityThreshold)

			report := memory.Utilization(p.shared.AccessStats())
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("\nShared pool utilization:\n%s\n", out)
			return nil
		},
	}
}

func indexBackendName(cfg *config.Config) string {
	backend := strings.ToLower(cfg.Index.Backend)
	if backend == "" {
		backend = "keyword"
	}
	if backend == "chromem" {
		return fmt.Sprintf("chromem (%s)", cfg.Index.EmbeddingModel)
	}
	return backend
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  hivemem version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
