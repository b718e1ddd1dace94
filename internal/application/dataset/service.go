package dataset

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/domain/orthogroup"
	"github.com/orthoatlas/orthoatlas/internal/domain/phylotree"
	"github.com/orthoatlas/orthoatlas/internal/domain/species"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/datasource"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/messaging/kafka"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// FallbackNewick is the topology served when the tree artifact cannot be
// fetched or parsed.  The engine stays up with this two-leaf tree instead of
// refusing all tree queries.
const FallbackNewick = "(At:1.0,Os:1.0);"

// maxConflictLogs caps per-conflict debug lines per load.
const maxConflictLogs = 20

const (
	triggerInitial = "initial"
	triggerReload  = "reload"

	outcomeSuccess  = "success"
	outcomeDegraded = "degraded"
	outcomeFailure  = "failure"
)

// Service owns the dataset lifecycle: fetching artifacts, binding them into a
// Snapshot, and swapping snapshots atomically on reload.
type Service struct {
	source  datasource.Source
	cfg     config.DatasetConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	events  *kafka.EventPublisher

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
}

// ServiceOption configures NewService.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithMetrics wires the application metrics.
func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithEvents wires the dataset lifecycle event publisher.
func WithEvents(e *kafka.EventPublisher) ServiceOption {
	return func(s *Service) { s.events = e }
}

// NewService creates an unloaded dataset service.  The first Ensure call
// performs the load.
func NewService(source datasource.Source, cfg config.DatasetConfig, opts ...ServiceOption) *Service {
	s := &Service{
		source: source,
		cfg:    cfg,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("dataset")
	return s
}

// Ensure returns the active snapshot, loading the dataset on first use.
// Concurrent first callers share a single load.
func (s *Service) Ensure(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.load(ctx, triggerInitial)
}

// Reload fetches and binds a fresh snapshot, then swaps it in.  On failure
// the previous snapshot, if any, stays active and keeps serving queries.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	trigger := triggerReload
	if s.current.Load() == nil {
		trigger = triggerInitial
	}
	return s.load(ctx, trigger)
}

// Current returns the active snapshot without triggering a load.
func (s *Service) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeDatasetNotLoaded, "dataset not loaded")
	}
	return snap, nil
}

// Loaded reports whether a snapshot is active.
func (s *Service) Loaded() bool {
	return s.current.Load() != nil
}

// Stats summarises the active snapshot.
func (s *Service) Stats() (Stats, error) {
	snap, err := s.Current()
	if err != nil {
		return Stats{}, err
	}
	return snap.Stats(), nil
}

// load funnels all loads through one singleflight key so an Ensure racing a
// Reload observes the reload's result instead of starting a second load.
func (s *Service) load(ctx context.Context, trigger string) (*Snapshot, error) {
	v, err, _ := s.group.Do("load", func() (interface{}, error) {
		return s.doLoad(ctx, trigger)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Service) doLoad(ctx context.Context, trigger string) (*Snapshot, error) {
	start := time.Now()
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}

	table, err := s.loadTable(ctx)
	if err != nil {
		return nil, s.failLoad(trigger, start, err)
	}
	mapping, err := s.loadSpecies(ctx)
	if err != nil {
		return nil, s.failLoad(trigger, start, err)
	}
	tree, rawNewick, degraded, degradeDetail, err := s.loadTree(ctx)
	if err != nil {
		return nil, s.failLoad(trigger, start, err)
	}

	// Bind: synthesize names for table species the metadata misses, then
	// annotate every tree leaf with its resolved identity and gene total.
	synthesized := mapping.Enhance(table.SpeciesCodes())

	snap := &Snapshot{
		Version:     uuid.New().String(),
		Source:      s.source.Describe(),
		LoadedAt:    time.Now().UTC(),
		Degraded:    degraded,
		Table:       table,
		Species:     mapping,
		Tree:        tree,
		RawNewick:   rawNewick,
		annotations: make(map[*phylotree.Node]LeafAnnotation),
		synthesized: synthesized,
	}
	for _, leaf := range tree.Leaves() {
		snap.annotations[leaf] = LeafAnnotation{
			Identity:  mapping.Resolve(leaf.Name),
			GeneTotal: table.GeneCountForSpecies(leaf.Name),
		}
	}

	s.logConflicts(table)
	s.current.Store(snap)

	duration := time.Since(start)
	outcome := outcomeSuccess
	if degraded {
		outcome = outcomeDegraded
	}
	prometheus.RecordDatasetLoad(s.metrics, trigger, outcome, duration)
	tableStats := table.Stats()
	prometheus.SetDatasetStats(s.metrics, prometheus.DatasetStats{
		Orthogroups:        table.Len(),
		Species:            tableStats.Species,
		TreeLeaves:         tree.LeafCount(),
		IndexSize:          table.IndexSize(),
		IndexConflicts:     tableStats.IndexConflicts,
		SkippedTableRows:   tableStats.SkippedRows,
		SkippedSpeciesRows: mapping.Stats().SkippedLines,
		FallbackNames:      mapping.EnhancedLen(),
		Degraded:           degraded,
	})

	s.logger.Info("dataset loaded",
		logging.String("version", snap.Version),
		logging.String("trigger", trigger),
		logging.String("source", snap.Source),
		logging.Int("orthogroups", table.Len()),
		logging.Int("species_columns", tableStats.Species),
		logging.Int("tree_leaves", tree.LeafCount()),
		logging.Int("synthesized_names", len(synthesized)),
		logging.Bool("degraded", degraded),
		logging.Duration("duration", duration),
	)

	s.publishEvents(ctx, snap, degradeDetail, duration)
	return snap, nil
}

func (s *Service) failLoad(trigger string, start time.Time, err error) error {
	prometheus.RecordDatasetLoad(s.metrics, trigger, outcomeFailure, time.Since(start))
	s.logger.Error("dataset load failed",
		logging.String("trigger", trigger),
		logging.Err(err),
	)
	return err
}

func (s *Service) loadTable(ctx context.Context) (*orthogroup.Table, error) {
	rc, err := s.source.Fetch(ctx, s.cfg.TableArtifact)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	table, err := orthogroup.ParseTable(rc, orthogroup.WithDelimiter(s.cfg.Delimiter))
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, errors.New(errors.ErrCodeTableEmpty, "orthogroup table holds no rows")
	}
	return table, nil
}

func (s *Service) loadSpecies(ctx context.Context) (*species.Mapping, error) {
	rc, err := s.source.Fetch(ctx, s.cfg.SpeciesArtifact)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	mapping, err := species.ParseMapping(rc,
		species.WithDelimiter(s.cfg.Delimiter),
		species.WithHeaderLines(s.cfg.SpeciesHeaderLines),
	)
	if err != nil {
		return nil, err
	}
	if mapping.Len() == 0 {
		s.logger.Warn("species metadata is empty; all display names will be synthesized",
			logging.String("artifact", s.cfg.SpeciesArtifact))
	}
	return mapping, nil
}

// loadTree is deliberately forgiving: an unreachable or unparsable tree
// artifact downgrades to FallbackNewick instead of failing the whole load.
// The returned error is non-nil only when even the fallback cannot be parsed.
func (s *Service) loadTree(ctx context.Context) (*phylotree.Tree, string, bool, string, error) {
	raw, err := s.fetchTree(ctx)
	if err == nil {
		tree, perr := phylotree.ParseNewick(raw)
		if perr == nil {
			return tree, raw, false, "", nil
		}
		err = perr
	}

	s.logger.Warn("tree artifact unusable, serving fallback topology",
		logging.String("artifact", s.cfg.TreeArtifact),
		logging.Err(err),
	)
	fallback, ferr := phylotree.ParseNewick(FallbackNewick)
	if ferr != nil {
		return nil, "", false, "", errors.Wrap(ferr, errors.ErrCodeTreeParseFailed, "parsing fallback tree")
	}
	return fallback, FallbackNewick, true, err.Error(), nil
}

func (s *Service) fetchTree(ctx context.Context) (string, error) {
	rc, err := s.source.Fetch(ctx, s.cfg.TreeArtifact)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "reading tree artifact")
	}
	return string(data), nil
}

func (s *Service) logConflicts(table *orthogroup.Table) {
	conflicts := table.Conflicts()
	if len(conflicts) == 0 {
		return
	}
	s.logger.Warn("genes claimed by multiple orthogroups; keeping the last row for each",
		logging.Int("conflicts", len(conflicts)))
	for i, c := range conflicts {
		if i == maxConflictLogs {
			s.logger.Debug("further conflicts suppressed",
				logging.Int("suppressed", len(conflicts)-maxConflictLogs))
			break
		}
		s.logger.Debug("gene reassigned",
			logging.String("gene", c.Gene),
			logging.String("previous", c.PreviousID),
			logging.String("kept", c.RowID))
	}
}

func (s *Service) publishEvents(ctx context.Context, snap *Snapshot, degradeDetail string, duration time.Duration) {
	if snap.Degraded {
		err := s.events.DatasetDegraded(ctx, kafka.DatasetDegradedPayload{
			DatasetVersion: snap.Version,
			Reason:         "tree_unusable",
			Detail:         degradeDetail,
			OccurredAt:     snap.LoadedAt,
		})
		if err != nil {
			s.logger.Warn("failed to publish degraded event", logging.Err(err))
		}
	}

	err := s.events.DatasetReloaded(ctx, kafka.DatasetReloadedPayload{
		DatasetVersion: snap.Version,
		Source:         snap.Source,
		Orthogroups:    snap.Table.Len(),
		Species:        snap.Table.Stats().Species,
		TreeLeaves:     snap.Tree.LeafCount(),
		Degraded:       snap.Degraded,
		LoadedAt:       snap.LoadedAt,
		DurationMS:     duration.Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("failed to publish reload event", logging.Err(err))
	}
}
