package actions

import (
	"sync"
	"time"

	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

// projectCacheTTL bounds how stale a cached project list may get.
// Resolution only needs to survive a burst of messages, not a session.
const projectCacheTTL = 60 * time.Second

type cachedList struct {
	projects []vikunja.Project
	fetched  time.Time
}

// projectCache holds one recently fetched project list per chat.
type projectCache struct {
	mu      sync.Mutex
	entries map[string]cachedList
}

func newProjectCache() *projectCache {
	return &projectCache{entries: make(map[string]cachedList)}
}

func (c *projectCache) get(chatID string) ([]vikunja.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[chatID]
	if !ok || time.Since(entry.fetched) > projectCacheTTL {
		return nil, false
	}
	return entry.projects, true
}

func (c *projectCache) put(chatID string, projects []vikunja.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[chatID] = cachedList{projects: projects, fetched: time.Now()}
}

func (c *projectCache) invalidate(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, chatID)
}
