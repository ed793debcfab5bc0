package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/config"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/internal/relay"
	"github.com/Adda-Baaj/groupkit/internal/storage"
	"github.com/Adda-Baaj/groupkit/pkg/publishers"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// Relay is the relay runtime. It runs the relay service on a fixed interval
// over the groups that have relay enabled, and owns the storage and
// publisher connections.
type Relay struct {
	groups   []watchlist.Group
	fanout   *publishers.Fanout
	service  *relay.Service
	interval time.Duration
	log      logger.Logger
	store    storage.Store
}

// NewRelay builds a relay runtime from config files.
func NewRelay(ctx context.Context, cfg *config.Config, log logger.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	wl, err := watchlist.Load(cfg.GroupsFile)
	if err != nil {
		return nil, fmt.Errorf("load groups file: %w", err)
	}
	groups := wl.Relayed()
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	log.InfoObj("relayed groups loaded", "groups_meta", map[string]any{
		"count": len(groupIDs),
		"ids":   groupIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	client, err := NewGroupMeClient(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	store, err := OpenStore(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	if !storage.Persistent(cfg.StorageType) {
		log.WarnObj("relay checkpoints are kept in memory only", "relay_storage", map[string]any{
			"storage_type": cfg.StorageType,
		})
	}

	return newRelay(groups, relay.NewService(client, store, relay.NewScraper(nil, cfg.UserAgent), fanout, log), fanout, store, cfg.RelayInterval, log), nil
}

func newRelay(groups []watchlist.Group, svc *relay.Service, fanout *publishers.Fanout, store storage.Store, interval time.Duration, log logger.Logger) *Relay {
	return &Relay{
		groups:   groups,
		fanout:   fanout,
		service:  svc,
		interval: interval,
		log:      logger.Ensure(log),
		store:    store,
	}
}

// Run starts the relay loop until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("relay is not initialized")
	}
	defer r.close()
	if len(r.groups) == 0 {
		r.log.WarnObj("no groups have relay enabled; relay idle", "groups", 0)
		<-ctx.Done()
		return nil
	}

	r.log.InfoObj("relay loop starting", "relay_state", map[string]any{
		"groups_count":     len(r.groups),
		"publishers_count": r.fanout.Size(),
		"interval":         r.interval.String(),
	})

	if err := r.runOnce(ctx); err != nil {
		r.log.ErrorObj("initial relay pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("relay loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				r.log.ErrorObj("scheduled relay pass failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single relay pass across all groups.
func (r *Relay) runOnce(ctx context.Context) error {
	start := time.Now()
	if err := r.service.Run(ctx, r.groups); err != nil {
		return err
	}
	r.log.DebugObj("relay pass completed", "relay_meta", map[string]any{
		"groups_count": len(r.groups),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return nil
}

func (r *Relay) close() {
	closeStore(r.store, r.log)
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publisher close failed", "error", err.Error())
	}
}
