package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mikeboe/web-research/pkg/browser"
	"github.com/mikeboe/web-research/pkg/clients"
	"github.com/mikeboe/web-research/pkg/config"
	"github.com/mikeboe/web-research/pkg/research"
	"github.com/mikeboe/web-research/pkg/research/tools"
	"github.com/spf13/cobra"
)

var (
	objective string
	planOnly  bool
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "web-research",
		Short: "A terminal-based web research agent",
		Long:  `web-research is an autonomous agent that decomposes an objective into weighted questions, reads the matching web pages headlessly and synthesizes a sourced summary.`,
		Run: func(cmd *cobra.Command, args []string) {

			// Check if objective provided via flags
			objectiveFlagChanged := cmd.Flags().Changed("objective")

			if !objectiveFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research objective: ")
				input, _ := reader.ReadString('\n')
				objective = strings.TrimSpace(input)
				if objective == "" {
					slog.Error("Objective cannot be empty")
					os.Exit(1)
				}
			} else {
				// Non-Interactive Mode (Flag provided)
				if objective == "" {
					slog.Error("--objective flag provided but empty")
					os.Exit(1)
				}
			}

			slog.Info("Starting research", "objective", objective)

			// Initialize LLM clients
			primary, err := clients.GoogleAi(cmd.Context(), clients.ModelType(cfg.ResearchModel))
			if err != nil {
				slog.Error("Failed to init Google AI client", "error", err)
				os.Exit(1)
			}
			fallback, err := clients.Ollama()
			if err != nil {
				slog.Error("Failed to init Ollama client", "error", err)
				os.Exit(1)
			}

			// Assemble the pipeline
			rcfg := cfg.ResearchConfig()
			logger := slog.Default()
			llm := research.NewInferenceClient(primary, fallback, rcfg, logger)
			resolver := tools.NewSearchClient(rcfg.SourceLimit, logger)
			orch := research.NewOrchestrator(llm, resolver, browser.Factory(logger), rcfg, logger)

			if planOnly {
				plan := orch.CreatePlan(cmd.Context(), objective)
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					slog.Error("Failed to encode plan", "error", err)
					os.Exit(1)
				}
				fmt.Println(string(data))
				return
			}

			output := orch.Run(cmd.Context(), objective)

			fmt.Println()
			fmt.Println(output.Summary)

			writeArtifacts(output)
		},
	}

	rootCmd.Flags().StringVarP(&objective, "objective", "o", "", "The research objective")
	rootCmd.Flags().BoolVar(&planOnly, "plan-only", false, "Generate and print the research plan without running it")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// writeArtifacts keeps the results on disk: a markdown report next to the
// full output as JSON.
func writeArtifacts(output research.ResearchOutput) {
	timestamp := time.Now().Unix()

	var sb strings.Builder
	sb.WriteString("# " + output.Objective + "\n\n")
	sb.WriteString(output.Summary + "\n")
	if len(output.Findings) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, f := range output.Findings {
			sb.WriteString(fmt.Sprintf("- %s\n", f.Source))
		}
	}

	reportFilename := fmt.Sprintf("report_%d.md", timestamp)
	if err := os.WriteFile(reportFilename, []byte(sb.String()), 0644); err != nil {
		slog.Warn("failed to save report locally", "error", err)
	}

	outputFilename := fmt.Sprintf("research_%d.json", timestamp)
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		slog.Warn("failed to encode research output", "error", err)
		return
	}
	if err := os.WriteFile(outputFilename, data, 0644); err != nil {
		slog.Warn("failed to save research output locally", "error", err)
	}

	slog.Info("Artifacts written", "report", reportFilename, "output", outputFilename)
}
