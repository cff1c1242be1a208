package harvest

import (
	"context"
	"encoding/json"

	"github.com/sacherjj/casper-harvester/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// NodeClient issues typed queries against a chain node.
	NodeClient interface {
		GetHeadBlock(ctx context.Context) (*model.Block, error)
		GetBlock(ctx context.Context, hash string) (*model.Block, error)
		GetDeploy(ctx context.Context, hash string) (json.RawMessage, error)
		GetValidatorBonds(ctx context.Context, stateRootHash string) ([]byte, error)
	}
	// CacheStore persists a dataset under a cache key.
	CacheStore interface {
		Load(key string, v interface{}) error
		Save(key string, v interface{}) error
	}
)

const (
	blocksCacheKey  = "blocks"
	deploysCacheKey = "deploys"
	erasCacheKey    = "eras"
)
