// Package cache provides the two stores the deployment configures: a Redis
// cache for chart and metadata payloads and a filesystem store for Query
// Lab results. Both speak []byte; callers own serialization.
package cache

import "errors"

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")
