package main

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docpipe/docpipe/config"
	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/document/filestore"
	"github.com/docpipe/docpipe/document/redisstore"
	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/events/localbus"
	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/extractors/excel"
	"github.com/docpipe/docpipe/extractors/media"
	"github.com/docpipe/docpipe/extractors/pdf"
	"github.com/docpipe/docpipe/extractors/textlike"
	"github.com/docpipe/docpipe/extractors/webpage"
	"github.com/docpipe/docpipe/extractors/word"
	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/gateway/providers"
	"github.com/docpipe/docpipe/logging"
	"github.com/docpipe/docpipe/metrics"
	"github.com/docpipe/docpipe/processor"
	"github.com/docpipe/docpipe/queue"
	"github.com/docpipe/docpipe/queue/memory"
	redisqueue "github.com/docpipe/docpipe/queue/redis"
	"github.com/docpipe/docpipe/tools"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds every wired dependency the worker, submit and status subcommands share.
// It deliberately has no package-level equivalent: each cobra RunE call
// builds its own app from the resolved config and tears nothing down beyond
// what the caller explicitly closes.
type app struct {
	cfg       config.AllConfig
	log       *logging.Logger
	store     document.Store
	queue     queue.Queue
	bus       events.Bus
	gateway   *gateway.Gateway
	tools     *tools.Registry
	extractor extractors.Table
	processor *processor.Processor
	metrics   *metrics.Metrics
}

func buildApp(flags *appFlags, cfg config.AllConfig) (*app, error) {
	log := logging.NewLogger(logging.New(logging.DefaultConfig()), map[string]interface{}{"component": "docpipe"})

	store, err := buildStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("docpipe: build store: %w", err)
	}

	q, err := buildQueue(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("docpipe: build queue: %w", err)
	}

	bus := localbus.New(log)

	reg := gateway.NewRegistry()
	if err := reg.Register(providers.NewHeuristic("heuristic")); err != nil {
		return nil, fmt.Errorf("docpipe: register provider: %w", err)
	}
	if path := flags.providersFile; path != "" {
		if err := loadProvidersInto(reg, path); err != nil {
			return nil, fmt.Errorf("docpipe: load providers file: %w", err)
		}
	}
	gw := gateway.New(reg, gateway.Strategy(cfg.Gateway.SelectionStrategy), cfg.Gateway.FallbackChain, cfg.Gateway.DefaultProvider, log)

	toolRegistry := tools.NewRegistry(
		tools.NewSummarize(),
		tools.NewDetectLanguage(),
		tools.NewExtractEntities(),
		tools.NewTranslate(),
		tools.NewTextToMarkdown(),
		tools.NewClassify(),
		tools.NewQuestionAnswering(),
		tools.NewEmbedding(),
	)

	table := extractors.Table{
		document.KindPDF:      pdf.New(),
		document.KindWord:     word.New(),
		document.KindExcel:    excel.New(),
		document.KindWebpage:  webpage.New(),
		document.KindText:     textlike.NewText(),
		document.KindMarkdown: textlike.NewMarkdown(),
		document.KindJSON:     textlike.NewJSON(),
		document.KindXML:      textlike.NewXML(),
		document.KindCSV:      textlike.NewCSV(),
		document.KindYouTube:  media.New(nil),
		document.KindPodcast:  media.New(nil),
	}

	proc := processor.New(store, bus, table, gw, toolRegistry, log)

	m := metrics.New(prometheus.DefaultRegisterer, "docpipe")

	return &app{
		cfg: cfg, log: log, store: store, queue: q, bus: bus,
		gateway: gw, tools: toolRegistry, extractor: table, processor: proc, metrics: m,
	}, nil
}

func buildStore(cfg config.StoreConfig) (document.Store, error) {
	switch cfg.Type {
	case "redis":
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("docpipe: parse store redis URL: %w", err)
		}
		return redisstore.New(goredis.NewClient(opts), cfg.TTL), nil
	case "filesystem", "":
		return filestore.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("docpipe: unknown store type %q", cfg.Type)
	}
}

func buildQueue(cfg config.QueueConfig) (queue.Queue, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "redis", "":
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("docpipe: parse queue redis URL: %w", err)
		}
		return redisqueue.New(goredis.NewClient(opts)), nil
	default:
		return nil, fmt.Errorf("docpipe: unknown queue backend %q", cfg.Backend)
	}
}

func loadProvidersInto(reg *gateway.Registry, path string) error {
	entries, _, err := config.LoadProvidersFile(path)
	if err != nil {
		return err
	}
	for _, p := range entries {
		if !p.Enabled {
			continue
		}
		caps := make([]gateway.Capability, 0, len(p.Capabilities))
		for _, c := range p.Capabilities {
			caps = append(caps, gateway.Capability(c))
		}
		meta := gateway.Metadata{
			ID:           p.ID,
			ModelID:      p.ModelID,
			Capabilities: caps,
			Cost: gateway.CostProfile{
				CostPerKInputTokens:  p.CostPerKInput,
				CostPerKOutputTokens: p.CostPerKOutput,
				AvgLatencyMS:         p.AvgLatencyMS,
				QualityScore:         p.QualityScore,
				MaxContextTokens:     p.MaxContextTokens,
			},
			Enabled:      p.Enabled,
			PreferredFor: p.PreferredFor,
		}
		if err := reg.Register(providers.NewConfigured(meta)); err != nil {
			return err
		}
	}
	return nil
}
