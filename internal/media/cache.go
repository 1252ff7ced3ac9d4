package media

import (
	"fmt"
	"os"
	"sync"
)

// SourceIdentity keys the audio cache. Path alone is insufficient: the file
// may be replaced in place between runs.
type SourceIdentity struct {
	Path    string
	Size    int64
	ModTime int64
}

// Identify stats the file and builds its cache identity.
func Identify(path string) (SourceIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceIdentity{}, fmt.Errorf("identify source: %w", err)
	}
	return SourceIdentity{Path: path, Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}

// AudioHandle is a shared read-only reference to decoded audio for one run.
// Stage calls slice it by chunk boundaries; nothing mutates it after load.
type AudioHandle struct {
	Identity SourceIdentity
	Data     []byte
}

// AudioCache holds at most one decoded-audio handle, invalidated whenever the
// source identity changes.
type AudioCache struct {
	mu     sync.Mutex
	handle *AudioHandle
}

// NewAudioCache returns an empty cache.
func NewAudioCache() *AudioCache {
	return &AudioCache{}
}

// Get returns the cached handle for the identity, loading it through load on
// a miss. A cached handle for a different identity is discarded first.
func (c *AudioCache) Get(identity SourceIdentity, load func() ([]byte, error)) (*AudioHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil && c.handle.Identity == identity {
		return c.handle, nil
	}
	c.handle = nil
	data, err := load()
	if err != nil {
		return nil, err
	}
	c.handle = &AudioHandle{Identity: identity, Data: data}
	return c.handle, nil
}

// Invalidate drops any cached handle.
func (c *AudioCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = nil
}
