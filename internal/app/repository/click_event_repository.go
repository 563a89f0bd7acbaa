package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thorvik/keyward/internal/app/model"
)

// ClickEventRepository defines the data access contract for click events.
// Writes arrive in batches from the analytics flush loop.
type ClickEventRepository interface {
	InsertBatch(ctx context.Context, events []*model.ClickEvent) error
}

type clickEventRepository struct {
	pool *pgxpool.Pool
}

// NewClickEventRepository returns a pgx-backed ClickEventRepository. The
// detail rows bypass the ORM so a whole flush is one pipelined round trip.
func NewClickEventRepository(pool *pgxpool.Pool) ClickEventRepository {
	return &clickEventRepository{pool: pool}
}

const insertClickEventSQL = `
INSERT INTO click_events (
	id, link_id, visitor_id, ip_address, user_agent_raw, referer,
	device_type, browser_name, browser_version, os_name, os_version, is_bot,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	country_code, country_name, city, region, postal_code,
	latitude, longitude, timezone, response_time_ms, clicked_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11, $12,
	$13, $14, $15, $16, $17,
	$18, $19, $20, $21, $22,
	$23, $24, $25, $26, $27
)`

func (r *clickEventRepository) InsertBatch(ctx context.Context, events []*model.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(insertClickEventSQL,
			e.ID, e.LinkID, e.VisitorID, e.IPAddress, e.UserAgentRaw, e.Referer,
			e.DeviceType, e.BrowserName, e.BrowserVer, e.OSName, e.OSVer, e.IsBot,
			e.UTMSource, e.UTMMedium, e.UTMCampaign, e.UTMTerm, e.UTMContent,
			e.CountryCode, e.CountryName, e.City, e.Region, e.PostalCode,
			e.Latitude, e.Longitude, e.Timezone, e.ResponseMs, e.ClickedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert click events: %w", err)
		}
	}
	return nil
}
