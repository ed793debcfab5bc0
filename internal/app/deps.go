package app

import (
	"fmt"

	"github.com/Adda-Baaj/groupkit/internal/config"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/internal/storage"
	"github.com/Adda-Baaj/groupkit/pkg/groupme"
	"github.com/Adda-Baaj/groupkit/pkg/httpclient"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// NewGroupMeClient builds the API client from config using a resty transport.
func NewGroupMeClient(cfg *config.Config) (*groupme.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	client, err := groupme.NewClient(groupme.Config{
		BaseURL:   cfg.GroupMeBaseURL,
		Token:     cfg.GroupMeToken,
		UserAgent: cfg.UserAgent,
	}, httpclient.NewRestyClient(cfg.HTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("init groupme client: %w", err)
	}
	return client, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		MessageTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Ensure(log).InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"message_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})
	return store, nil
}

// LoadGroups loads the groups file and narrows it to ids when given.
func LoadGroups(cfg *config.Config, ids []string, log logger.Logger) ([]watchlist.Group, error) {
	wl, err := watchlist.Load(cfg.GroupsFile)
	if err != nil {
		return nil, fmt.Errorf("load groups file: %w", err)
	}
	groups, err := wl.Select(ids)
	if err != nil {
		return nil, err
	}
	logger.Ensure(log).InfoObj("groups loaded", "groups_meta", map[string]any{
		"file":     cfg.GroupsFile,
		"count":    len(groups),
		"selected": len(ids) > 0,
	})
	return groups, nil
}

// closeStore safely closes the storage backend, logging any errors encountered.
func closeStore(store storage.Store, log logger.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Ensure(log).ErrorObj("storage close failed", "error", err.Error())
	}
}
