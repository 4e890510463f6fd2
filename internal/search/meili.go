// Package search pushes live wiki nodes to Meilisearch.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	models "wikiflow/internal/domain/models/wiki"

	meili "github.com/meilisearch/meilisearch-go"
)

const indexNodes = "wikiflow_nodes"

// NodeRecord is the indexed form of a node
type NodeRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Route       string `json:"route"`
	IsGroup     bool   `json:"isGroup"`
	IsPublished bool   `json:"isPublished"`
	ModifiedAt  int64  `json:"modifiedAt"`
}

// RecordOf converts a node to its index record
func RecordOf(n models.Node) NodeRecord {
	r := NodeRecord{
		ID:          n.ID,
		Title:       n.Title,
		Route:       n.Route,
		IsGroup:     n.IsGroup,
		IsPublished: n.IsPublished,
		ModifiedAt:  n.ModifiedAt.Unix(),
	}
	if n.Content != nil {
		r.Content = *n.Content
	}
	return r
}

var errUnhealthy = errors.New("meilisearch unhealthy")

// Meili implements the wiki SearchIndexer on Meilisearch
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates the client and configures the node index. An unreachable
// server is not fatal: the health loop reconfigures it once it comes up.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: indexNodes, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", indexNodes, "error", err)
	}

	index := m.client.Index(indexNodes)
	filterable := []interface{}{"isGroup", "isPublished"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", indexNodes, "error", err)
	}
	searchable := []string{"title", "content", "route"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", indexNodes, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the health loop
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch answered the last health check
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Ping reports the result of the last health check
func (m *Meili) Ping(ctx context.Context) error {
	if !m.Healthy() {
		return errUnhealthy
	}
	return nil
}

// IndexNodes adds or replaces the nodes' records
func (m *Meili) IndexNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if !m.healthy.Load() {
		return errUnhealthy
	}

	records := make([]NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, RecordOf(n))
	}
	if _, err := m.client.Index(indexNodes).AddDocuments(records, nil); err != nil {
		m.healthy.Store(false)
		return fmt.Errorf("index %d nodes: %w", len(records), err)
	}
	return nil
}

// RemoveNodes deletes the records of deleted nodes
func (m *Meili) RemoveNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if !m.healthy.Load() {
		return errUnhealthy
	}

	index := m.client.Index(indexNodes)
	for _, id := range ids {
		if _, err := index.DeleteDocument(id, nil); err != nil {
			return fmt.Errorf("remove node %s: %w", id, err)
		}
	}
	return nil
}
