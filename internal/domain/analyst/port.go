package analyst

import "context"

// ReplyArchive port for archiving raw provider replies
type ReplyArchive interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Analysis, error)
	Latest(ctx context.Context, tenant string) (*Analysis, error)
}
