// Command ask runs a recommendation query from the terminal against the same
// backends as the server. Useful for poking at the pipeline without HTTP.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"vrlearn.app/beacon/common/arangodb"
	"vrlearn.app/beacon/common/id"
	"vrlearn.app/beacon/common/llm"
	"vrlearn.app/beacon/core/config"
	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/ranker"
	"vrlearn.app/beacon/internal/retriever"
	"vrlearn.app/beacon/internal/service"
	"vrlearn.app/beacon/internal/skillindex"
)

func main() {
	ctx := context.Background()

	// Load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := id.Init(1); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	graph, err := arangodb.New(arangodb.Config{
		URL:      cfg.ArangoDB.URL,
		Username: cfg.ArangoDB.Username,
		Password: cfg.ArangoDB.Password,
		Database: cfg.ArangoDB.Database,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Knowledge graph: %v\n", err)
		os.Exit(1)
	}
	if err := graph.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Knowledge graph: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Knowledge graph: connected (%s)\n", cfg.ArangoDB.URL)

	skills := skillindex.New(skillindex.Config{
		URL:           cfg.Typesense.URL,
		APIKey:        cfg.Typesense.APIKey,
		Collection:    cfg.Typesense.Collection,
		MinSimilarity: cfg.Typesense.MinSimilarity,
	})

	var llmClient llm.Client
	if cfg.RankerLLM.Enabled() {
		llmClient, err = llm.New(llm.Config{
			APIKey:  cfg.RankerLLM.APIKey,
			BaseURL: cfg.RankerLLM.BaseURL,
			Model:   cfg.RankerLLM.Model,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ranker: disabled (%v)\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Ranker: %s\n", cfg.RankerLLM.Model)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Ranker: disabled (no api key)")
	}

	ret := retriever.New(graph, skills, retriever.Config{
		BridgeMinSimilarity: cfg.Typesense.MinSimilarity,
	})
	rnk := ranker.New(llmClient, nil, ranker.Config{
		MaxTokens: cfg.RankerLLM.MaxTokens,
		Timeout:   cfg.RankerLLM.Timeout,
	})
	recs := service.New(ret, rnk, nil, graph.Close)
	defer recs.Close()

	// One-shot mode: query passed as arguments
	if len(os.Args) > 1 {
		run(ctx, recs, strings.Join(os.Args[1:], " "))
		return
	}

	// Interactive mode
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nask> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" || query == "exit" || query == "quit" {
			break
		}
		run(ctx, recs, query)
	}
}

func run(ctx context.Context, recs service.RecommendationService, query string) {
	result, err := recs.Recommend(ctx, query, service.DefaultTopK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Printf("\n%s\n", result.QueryUnderstanding)
	if len(result.Apps) == 0 {
		fmt.Println("No matching apps found.")
		return
	}

	fmt.Printf("Matched skills: %s\n", strings.Join(result.MatchedSkills, ", "))
	fmt.Printf("Showing %d of %d matches\n\n", len(result.Apps), result.TotalMatches)

	for i, app := range result.Apps {
		fmt.Printf("%d. %s (%.2f) [%s]\n", i+1, app.Name, app.Score, app.RetrievalSource)
		if len(app.MatchedSkills) > 0 {
			fmt.Printf("   Skills: %s\n", strings.Join(app.MatchedSkills, ", "))
		}
		if app.RetrievalSource == model.SourceSemanticBridge && app.BridgeExplanation != "" {
			fmt.Printf("   %s\n", app.BridgeExplanation)
		}
		fmt.Printf("   %s\n", app.Reasoning)
	}
}
