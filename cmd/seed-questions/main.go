package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/generator"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/service"
)

// Seeds the question bank by running one batch over topics read from a file
// (one per line, # comments allowed) or from the remaining arguments.
func main() {
	var topicsFile string
	flag.StringVar(&topicsFile, "file", "", "File with one topic per line")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	topics := flag.Args()
	if topicsFile != "" {
		fromFile, err := readTopics(topicsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read topics file")
		}
		topics = append(topics, fromFile...)
	}
	if len(topics) == 0 {
		fmt.Println("Usage: seed-questions [-file topics.txt] [topic ...]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	var cache service.QuestionPageCache
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err == nil {
		defer rdb.Close()
		cache = repository.NewQuestionCache(rdb, cfg.QuestionCacheTTL)
	}

	gen := generator.NewAzureClient(generator.Config{
		Endpoint:   cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIAPIKey,
		APIVersion: cfg.OpenAIAPIVersion,
		Deployment: cfg.OpenAIDeployment,
		Timeout:    cfg.GenerationTimeout,
	}, nil, log)

	questionService := service.NewQuestionService(
		repository.NewQuestionRepository(pool), cache, gen, cfg.GenerationConcurrency, nil, log)

	fmt.Printf("=== Generating %d question(s) ===\n", len(topics))

	out, err := questionService.GenerateBatchStream(ctx, topics, func(r service.TopicResult) {
		if r.Question != nil {
			fmt.Printf("[ok]   %s -> #%d\n", r.Topic, r.Question.ID)
		} else {
			fmt.Printf("[fail] %s (%s)\n", r.Topic, r.Error.Error)
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Batch rejected")
	}

	fmt.Printf("\nSeed completed! Generated %d/%d questions.\n", len(out.Generated), len(topics))
	if len(out.Errors) > 0 {
		os.Exit(1)
	}
}

func readTopics(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var topics []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	return topics, sc.Err()
}
