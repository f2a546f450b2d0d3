// Package app is the command surface of the application. Each exported method
// corresponds to one command a front end can invoke. Long-running commands
// (pack download, processing) dispatch a background goroutine and report
// through events; every other command returns its result directly.
package app

import (
	"context"
	"runtime"
	"sync"

	"github.com/jaja2302/Palm-counting-AI/internal/aipack"
	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/datastore"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/httpclient"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
	"github.com/jaja2302/Palm-counting-AI/internal/paths"
	"github.com/jaja2302/Palm-counting-AI/internal/sidecar"
	"github.com/jaja2302/Palm-counting-AI/internal/specs"
)

// Deps carries the collaborators of an App. Only Settings is required.
type Deps struct {
	Settings *conf.Settings
	Emitter  events.Emitter
	Log      logger.Logger

	HTTP    *httpclient.Client     // nil builds a default client
	Runner  specs.Runner           // nil runs nvidia-smi
	Command sidecar.CommandFactory // nil uses exec.CommandContext
	GOOS    string                 // defaults to runtime.GOOS
}

// App wires the store, the pack manager, the sidecar supervisor and the specs
// probe behind the command methods.
type App struct {
	settings   *conf.Settings
	paths      *paths.Resolver
	store      *datastore.Store
	probe      *specs.Probe
	pack       *aipack.Manager
	supervisor *sidecar.Supervisor
	http       *httpclient.Client
	ownsHTTP   bool
	pub        *events.Publisher
	log        logger.Logger

	exeNames   []string
	sidecarMin int64

	// baseCtx is cancelled by Close and bounds every background run.
	baseCtx context.Context
	stop    context.CancelFunc

	mu             sync.Mutex
	downloadFlag   *cancel.Flag // nil when no download is active
	processingFlag *cancel.Flag // nil when no processing run is active
	wg             sync.WaitGroup
}

// New builds an App. Nothing is written to disk until a command needs it.
func New(d Deps) (*App, error) {
	s := d.Settings
	if s == nil {
		s = &conf.Settings{}
	}
	log := d.Log
	if log == nil {
		log = logger.Global().Module("app")
	}
	goos := d.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	resolver, err := paths.New(s.Paths.DataDir, s.Paths.TempDir)
	if err != nil {
		return nil, err
	}

	pub := events.NewPublisher(d.Emitter)

	client, ownsHTTP := d.HTTP, false
	if client == nil {
		client = httpclient.New(nil)
		ownsHTTP = true
	}

	exeNames := sidecar.ExecutableNames(goos)
	sidecarMin := s.Sidecar.MinSize
	if sidecarMin <= 0 {
		sidecarMin = conf.DefaultSidecarMin
	}
	minPack := s.AIPack.MinPackSize
	if minPack <= 0 {
		minPack = conf.DefaultMinPackSize
	}

	var supOpts []sidecar.Option
	if d.Command != nil {
		supOpts = append(supOpts, sidecar.WithCommandFactory(d.Command))
	}

	ctx, stop := context.WithCancel(context.Background())
	return &App{
		settings: s,
		paths:    resolver,
		store:    datastore.New(resolver.DatabasePath(), resolver.ModelsDir(), log.Module("datastore")),
		probe: specs.NewProbe(specs.Options{
			CPUSampleInterval: s.Specs.CPUSampleInterval,
			CacheTTL:          s.Specs.CacheTTL,
			NvidiaSMI:         s.Specs.NvidiaSMI,
		}, d.Runner, log.Module("specs")),
		pack: aipack.NewManager(client, pub, log.Module("aipack"), aipack.Options{
			PartialPath: resolver.PartialPath(),
			ArchivePath: resolver.ArchivePath(),
			BinariesDir: resolver.BinariesDir(),
			ChunkSize:   s.AIPack.ChunkSize,
			MinPackSize: minPack,
			ExeNames:    exeNames,
		}),
		supervisor: sidecar.NewSupervisor(pub, log.Module("sidecar"), supOpts...),
		http:       client,
		ownsHTTP:   ownsHTTP,
		pub:        pub,
		log:        log,
		exeNames:   exeNames,
		sidecarMin: sidecarMin,
		baseCtx:    ctx,
		stop:       stop,
	}, nil
}

// Paths exposes the resolved application paths.
func (a *App) Paths() *paths.Resolver { return a.paths }

// Store exposes the embedded store.
func (a *App) Store() *datastore.Store { return a.store }

// Setup creates or migrates the database.
func (a *App) Setup(ctx context.Context) error {
	return a.store.Setup(ctx)
}

// Wait blocks until every background run has finished.
func (a *App) Wait() { a.wg.Wait() }

// Close requests cancellation of running work and waits for it to finish.
func (a *App) Close() {
	a.mu.Lock()
	a.downloadFlag.Set()
	a.processingFlag.Set()
	a.mu.Unlock()

	a.stop()
	a.wg.Wait()
	if a.ownsHTTP {
		a.http.Close()
	}
}
