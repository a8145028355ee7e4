package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	appConfig "github.com/goodpass/backoffice/internal/config"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/google/uuid"
)

// ActivityIndex mirrors activity events into Elasticsearch for free-text
// search. Postgres stays the source of truth; indexing is best effort.
type ActivityIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewActivityIndex creates a new Elasticsearch-backed activity index
func NewActivityIndex(cfg appConfig.ElasticsearchConfig) (*ActivityIndex, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info request failed: %s", res.String())
	}

	return &ActivityIndex{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexEvent indexes a single activity event
func (a *ActivityIndex) IndexEvent(ctx context.Context, event *domain.ActivityEvent) error {
	doc := map[string]interface{}{
		"event_id":    event.EventID.String(),
		"actor_id":    event.ActorID.String(),
		"actor_role":  event.ActorRole,
		"action":      event.Action,
		"target_type": event.TargetType,
		"target_id":   event.TargetID,
		"result":      event.Result,
		"ip_address":  event.IPAddress,
		"created_at":  event.CreatedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event for indexing: %w", err)
	}

	res, err := a.client.Index(
		a.index,
		bytes.NewReader(data),
		a.client.Index.WithDocumentID(event.EventID.String()),
		a.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index request failed: %s", res.String())
	}
	return nil
}

// Search performs a full-text query over indexed events
func (a *ActivityIndex) Search(ctx context.Context, query string, limit int) ([]*domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"size": limit,
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}

	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := a.client.Search(
		a.client.Search.WithContext(ctx),
		a.client.Search.WithIndex(a.index),
		a.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search request failed: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source struct {
					EventID    string `json:"event_id"`
					ActorID    string `json:"actor_id"`
					ActorRole  string `json:"actor_role"`
					Action     string `json:"action"`
					TargetType string `json:"target_type"`
					TargetID   string `json:"target_id"`
					Result     string `json:"result"`
					IPAddress  string `json:"ip_address"`
					CreatedAt  string `json:"created_at"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	events := make([]*domain.ActivityEvent, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		createdAt, _ := time.Parse(time.RFC3339, hit.Source.CreatedAt)
		eventID, _ := uuid.Parse(hit.Source.EventID)
		actorID, _ := uuid.Parse(hit.Source.ActorID)
		events = append(events, &domain.ActivityEvent{
			EventID:    eventID,
			ActorID:    actorID,
			ActorRole:  hit.Source.ActorRole,
			Action:     domain.ActivityAction(hit.Source.Action),
			TargetType: hit.Source.TargetType,
			TargetID:   hit.Source.TargetID,
			Result:     domain.ActivityResult(hit.Source.Result),
			IPAddress:  hit.Source.IPAddress,
			CreatedAt:  createdAt,
		})
	}
	return events, nil
}
