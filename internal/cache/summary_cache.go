package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix   = "kpi:summary"
	dashboardKeyPrefix = "kpi:dashboard"
	latestSuffix       = "latest"
)

// SummaryCache keeps the latest run summary per tenant and date and clears
// dashboard entries derived from the previous snapshot.
type SummaryCache interface {
	GetSummary(ctx context.Context, tenantID, asOfDate string) (*domain.RunResult, bool, error)
	SetSummary(ctx context.Context, result domain.RunResult) error
	InvalidateDashboards(ctx context.Context, tenantID string) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(client *redis.Client, ttl time.Duration) SummaryCache {
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &redisSummaryCache{client: client, ttl: ttl}
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

// GetSummary reads the summary for a date, or the tenant's latest one when
// asOfDate is empty.
func (c *redisSummaryCache) GetSummary(ctx context.Context, tenantID, asOfDate string) (*domain.RunResult, bool, error) {
	payload, err := c.client.Get(ctx, summaryKey(tenantID, asOfDate)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode kpi summary cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisSummaryCache) SetSummary(ctx context.Context, result domain.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode kpi summary cache: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, summaryKey(result.TenantID, result.Date), payload, c.ttl)
	pipe.Set(ctx, summaryKey(result.TenantID, ""), payload, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateDashboards(ctx context.Context, tenantID string) error {
	return deleteKeysWithPrefix(ctx, c.client, dashboardKeyPrefix+":"+tenantID+":", scanBatchSize)
}

func (n *noopSummaryCache) GetSummary(ctx context.Context, tenantID, asOfDate string) (*domain.RunResult, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) SetSummary(ctx context.Context, result domain.RunResult) error {
	return nil
}

func (n *noopSummaryCache) InvalidateDashboards(ctx context.Context, tenantID string) error {
	return nil
}

func summaryKey(tenantID, asOfDate string) string {
	if asOfDate == "" {
		asOfDate = latestSuffix
	}
	return fmt.Sprintf("%s:%s:%s", summaryKeyPrefix, tenantID, asOfDate)
}
