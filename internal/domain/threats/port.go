package threats

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, item *Item) error
	Latest(ctx context.Context, tenant string, limit int) ([]*Item, error)
	Get(ctx context.Context, tenant string, id ItemID) (*Item, error)
}

// Fetcher port (interface untuk feed ingestion)
type Fetcher interface {
	Fetch(ctx context.Context) ([]Item, error)
}
