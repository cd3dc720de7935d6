package watch

import (
	"sort"
	"sync"
	"time"
)

// debouncer collects changed paths and hands them to flush once no new
// path has arrived for the debounce interval.
type debouncer struct {
	mu       sync.Mutex
	paths    map[string]struct{}
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	flush    func(paths []string)
}

func newDebouncer(debounce time.Duration, flush func(paths []string)) *debouncer {
	return &debouncer{
		paths:    make(map[string]struct{}),
		debounce: debounce,
		flush:    flush,
	}
}

// add records path and restarts the quiet period.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.paths[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.paths) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.paths))
	for p := range d.paths {
		paths = append(paths, p)
	}
	d.paths = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(paths)
	d.flush(paths)
}

// stop drops pending paths. Later adds are ignored.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.paths = make(map[string]struct{})
}
