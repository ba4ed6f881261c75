// Package businessflow contains the core business logic and use cases for bot content workflows
package businessflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

// ContentFlow handles the keyed text/image blocks the bot renders.
type ContentFlow interface {
	Upsert(ctx context.Context, req *dto.UpsertContentRequest, imagePath string, metadata *ClientMetadata) (*dto.BotContentDTO, error)
	GetByKey(ctx context.Context, key string, metadata *ClientMetadata) (*dto.BotContentDTO, error)
	List(ctx context.Context, metadata *ClientMetadata) ([]dto.BotContentDTO, error)
}

// ContentFlowImpl implements ContentFlow
type ContentFlowImpl struct {
	contentRepo repository.BotContentRepository
	rc          *redis.Client
	cacheConfig config.CacheConfig
}

func NewContentFlow(contentRepo repository.BotContentRepository, rc *redis.Client, cacheConfig config.CacheConfig) ContentFlow {
	return &ContentFlowImpl{contentRepo: contentRepo, rc: rc, cacheConfig: cacheConfig}
}

// Upsert creates the block for a new key or overwrites the existing one.
// An empty imagePath keeps the stored image.
func (f *ContentFlowImpl) Upsert(ctx context.Context, req *dto.UpsertContentRequest, imagePath string, metadata *ClientMetadata) (*dto.BotContentDTO, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, ErrContentKeyRequired
	}

	content, err := f.contentRepo.ByKey(ctx, key)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to look up content", err)
	}
	if content == nil {
		content = &models.BotContent{Key: key, Text: req.Text, Image: imagePath}
		if err := f.contentRepo.Save(ctx, content); err != nil {
			return nil, NewBusinessError("CONTENT_CREATE_FAILED", "Failed to create content", err)
		}
	} else {
		content.Text = req.Text
		if imagePath != "" {
			content.Image = imagePath
		}
		if err := f.contentRepo.Update(ctx, content); err != nil {
			return nil, NewBusinessError("CONTENT_UPDATE_FAILED", "Failed to update content", err)
		}
	}

	f.invalidate(ctx, key)
	d := toContentDTO(content)
	return &d, nil
}

func (f *ContentFlowImpl) GetByKey(ctx context.Context, key string, metadata *ClientMetadata) (*dto.BotContentDTO, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrContentKeyRequired
	}

	cacheKey := f.cacheKey(key)
	if cacheKey != "" {
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.BotContentDTO
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	content, err := f.contentRepo.ByKey(ctx, key)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to look up content", err)
	}
	if content == nil {
		return nil, ErrContentNotFound
	}
	d := toContentDTO(content)

	if cacheKey != "" {
		if bs, err := json.Marshal(d); err == nil {
			_ = f.rc.Set(ctx, cacheKey, bs, f.cacheConfig.DefaultTTL).Err()
		}
	}
	return &d, nil
}

func (f *ContentFlowImpl) List(ctx context.Context, metadata *ClientMetadata) ([]dto.BotContentDTO, error) {
	contents, err := f.contentRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LIST_FAILED", "Failed to list content", err)
	}
	out := make([]dto.BotContentDTO, 0, len(contents))
	for _, c := range contents {
		out = append(out, toContentDTO(c))
	}
	return out, nil
}

func (f *ContentFlowImpl) cacheKey(key string) string {
	if f.rc == nil || !f.cacheConfig.Enabled {
		return ""
	}
	return f.cacheConfig.RedisPrefix + "content:" + key
}

func (f *ContentFlowImpl) invalidate(ctx context.Context, key string) {
	if cacheKey := f.cacheKey(key); cacheKey != "" {
		_ = f.rc.Del(ctx, cacheKey).Err()
	}
}

func toContentDTO(c *models.BotContent) dto.BotContentDTO {
	return dto.BotContentDTO{ID: c.ID, Key: c.Key, Text: c.Text, Image: c.Image}
}
