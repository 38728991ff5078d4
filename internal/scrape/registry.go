package scrape

import (
	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/scrape/greenhouse"
	"jobingest-engine/internal/scrape/lever"
	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/scrape/workday"
	"jobingest-engine/internal/sourcecfg"
)

// Deps are the process-wide collaborators shared by every adapter.
type Deps struct {
	Client  *util.Client
	Limiter *util.HostLimiter
	Pacer   *util.Pacer
	Browser workday.Browser

	// Base URL overrides for the JSON APIs; empty means the public endpoint.
	GreenhouseBaseURL string
	LeverBaseURL      string
}

type Factory func(cfg domain.CompanyScraperConfig, deps Deps) (types.Adapter, error)

type Registry struct {
	deps      Deps
	factories map[domain.ScraperType]Factory
}

// NewRegistry wires the built-in adapters. icims, jobvite and custom are valid
// scraper types with no adapter; resolving them fails with config_invalid.
func NewRegistry(deps Deps) *Registry {
	if deps.Limiter == nil {
		deps.Limiter = util.NewHostLimiter(0, 1)
	}
	if deps.Client == nil {
		deps.Client = util.NewClient(deps.Limiter, nil, "")
	}
	return &Registry{
		deps: deps,
		factories: map[domain.ScraperType]Factory{
			domain.ScraperGreenhouse: newGreenhouse,
			domain.ScraperLever:      newLever,
			domain.ScraperWorkday:    newWorkday,
		},
	}
}

// Register replaces or adds the factory for t.
func (r *Registry) Register(t domain.ScraperType, f Factory) {
	r.factories[t] = f
}

func (r *Registry) Resolve(cfg domain.CompanyScraperConfig) (types.Adapter, error) {
	t, err := domain.ParseScraperType(string(cfg.ScraperType))
	if err != nil {
		return nil, err
	}
	f, ok := r.factories[t]
	if !ok {
		return nil, domain.Errorf(domain.KindConfigInvalid, "resolve adapter",
			"no adapter registered for scraper_type %q", t)
	}
	cfg.ScraperType = t
	return f(cfg, r.deps)
}

func newGreenhouse(cfg domain.CompanyScraperConfig, deps Deps) (types.Adapter, error) {
	c, err := sourcecfg.DecodeGreenhouse(cfg.Config)
	if err != nil {
		return nil, err
	}
	return greenhouse.New(cfg.CompanyName, c, deps.Client, deps.GreenhouseBaseURL), nil
}

func newLever(cfg domain.CompanyScraperConfig, deps Deps) (types.Adapter, error) {
	c, err := sourcecfg.DecodeLever(cfg.Config)
	if err != nil {
		return nil, err
	}
	return lever.New(cfg.CompanyName, c, deps.Client, deps.LeverBaseURL), nil
}

func newWorkday(cfg domain.CompanyScraperConfig, deps Deps) (types.Adapter, error) {
	c, err := sourcecfg.DecodeWorkday(cfg.Config)
	if err != nil {
		return nil, err
	}
	if deps.Browser == nil {
		return nil, domain.Errorf(domain.KindConfigInvalid, "resolve adapter", "workday needs a browser; none configured")
	}
	return workday.New(cfg.CompanyName, c, deps.Browser, deps.Limiter, deps.Pacer), nil
}
