package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/strata-io/strata/internal/engine"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/lookup"
	"github.com/strata-io/strata/internal/pgraph"
	"github.com/strata-io/strata/internal/provider"
	cfnprovider "github.com/strata-io/strata/providers/cloudformation"
	nullprovider "github.com/strata-io/strata/providers/null"
)

// manifest is the on-disk run configuration.
type manifest struct {
	Namespace string            `json:"namespace"`
	Region    string            `json:"region,omitempty"`
	Vars      map[string]string `json:"vars,omitempty"`
	Stacks    []*ir.Stack       `json:"stacks"`
	Hooks     *ir.Hooks         `json:"hooks,omitempty"`
}

// loadManifest reads and decodes a manifest file, applying flag overrides.
func loadManifest(args []string) (*manifest, error) {
	path := "strata.json"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &engine.ConfigError{Msg: fmt.Sprintf("failed to read config %s: %v", path, err)}
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &engine.ConfigError{Msg: fmt.Sprintf("failed to parse config %s: %v", path, err)}
	}
	if flagNamespace != "" {
		m.Namespace = flagNamespace
	}
	if flagRegion != "" {
		m.Region = flagRegion
	}
	if m.Namespace == "" {
		return nil, &engine.ConfigError{Msg: fmt.Sprintf("config %s: namespace is required", path)}
	}
	for k, v := range flagVars {
		if m.Vars == nil {
			m.Vars = make(map[string]string)
		}
		m.Vars[k] = v
	}
	return &m, nil
}

// buildProviders registers every available provider for this run.
func buildProviders(ctx context.Context, region string) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	registry.Register("null", nullprovider.New())

	cfn, err := cfnprovider.New(ctx, region, flagProfile)
	if err != nil {
		return nil, err
	}
	registry.Register("cloudformation", cfn)
	return registry, nil
}

// buildProvider constructs the stack provider named by --provider.
func buildProvider(ctx context.Context, region string) (provider.Provider, error) {
	registry, err := buildProviders(ctx, region)
	if err != nil {
		return nil, err
	}
	p, err := registry.Get(flagProvider)
	if err != nil {
		return nil, &engine.ConfigError{Msg: fmt.Sprintf("unknown provider %q (available: %v)", flagProvider, registry.Names())}
	}
	return p, nil
}

// buildPersist constructs the persistent graph manager when --persist is set.
func buildPersist(ctx context.Context, m *manifest) (*pgraph.Manager, error) {
	if !flagPersist {
		return nil, nil
	}
	if flagBucket == "" {
		return nil, &engine.ConfigError{Msg: "--persist requires --bucket"}
	}
	store, err := pgraph.NewS3Store(ctx, flagBucket, m.Region, flagProfile)
	if err != nil {
		return nil, err
	}
	key := flagGraphKey
	if key == "" {
		key = m.Namespace
	}
	return pgraph.NewManager(store, flagPrefix, m.Namespace, key), nil
}

// buildEngine assembles the engine for one run.
func buildEngine(ctx context.Context, m *manifest) (*engine.Engine, error) {
	prov, err := buildProvider(ctx, m.Region)
	if err != nil {
		return nil, err
	}
	persist, err := buildPersist(ctx, m)
	if err != nil {
		return nil, err
	}
	return &engine.Engine{
		Provider: prov,
		Lookups:  lookup.DefaultRegistry(),
		Hooks:    engine.NewHookRegistry(),
		Persist:  persist,
	}, nil
}

// run executes one action end to end. The returned error is mapped to the
// process exit status by main.
func run(ctx context.Context, args []string, action ir.Action) error {
	m, err := loadManifest(args)
	if err != nil {
		return err
	}
	eng, err := buildEngine(ctx, m)
	if err != nil {
		return err
	}

	summary, err := eng.Run(ctx, engine.RunInput{
		Action:    action,
		Stacks:    m.Stacks,
		Hooks:     m.Hooks,
		Region:    m.Region,
		Namespace: m.Namespace,
		Vars:      m.Vars,
		Options:   engine.Options{Concurrency: flagConcurrency},
	})
	if summary != nil {
		renderSummary(summary)
	}
	return err
}

// renderSummary prints the per-stack outcomes and totals.
func renderSummary(s *engine.Summary) {
	names := make([]string, 0, len(s.Results))
	for name := range s.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := s.Results[name]
		color := "\033[0m"
		detail := ""
		switch r.Status {
		case ir.StatusComplete:
			color = "\033[32m"
			if r.Planned != "" {
				detail = " (" + r.Planned + ")"
			}
		case ir.StatusFailed:
			color = "\033[31m"
			if r.Err != nil {
				detail = ": " + r.Err.Error()
			}
		case ir.StatusSkipped:
			color = "\033[33m"
		}
		fmt.Printf("%s  %-10s %s%s\033[0m\n", color, r.Status, name, detail)
	}
	fmt.Println()
	fmt.Println(s.Describe())
}
