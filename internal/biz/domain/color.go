package domain

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// ColorAssigner maps application names to stable display colors
type ColorAssigner struct {
	mu     sync.RWMutex
	colors map[string]string
}

// NewColorAssigner creates an empty color assigner
func NewColorAssigner() *ColorAssigner {
	return &ColorAssigner{colors: make(map[string]string)}
}

// ColorFor returns the color for an app name, computing it on first use
func (a *ColorAssigner) ColorFor(appName string) string {
	a.mu.RLock()
	color, ok := a.colors[appName]
	a.mu.RUnlock()
	if ok {
		return color
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if color, ok := a.colors[appName]; ok {
		return color
	}
	color = hueColor(appName)
	a.colors[appName] = color
	return color
}

func hueColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", h.Sum32()%360)
}
