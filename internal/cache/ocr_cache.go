package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const OCRCacheTTL = 24 * time.Hour

// OCRCache stores recognized text keyed by the content hash of the image, so
// re-processing an identical receipt skips the provider call entirely.
type OCRCache struct {
	client *redis.Client
}

func NewOCRCache(client *redis.Client) *OCRCache {
	return &OCRCache{client: client}
}

func (c *OCRCache) GetText(ctx context.Context, image []byte) (string, bool, error) {
	val, err := c.client.Get(ctx, ocrKey(image)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *OCRCache) SetText(ctx context.Context, image []byte, text string) error {
	return c.client.Set(ctx, ocrKey(image), text, OCRCacheTTL).Err()
}

func ocrKey(image []byte) string {
	sum := sha256.Sum256(image)
	return fmt.Sprintf("ocr:text:%s", hex.EncodeToString(sum[:]))
}
