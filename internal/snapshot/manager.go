package snapshot

import (
	"sync"
	"time"

	"YakNS/internal/logger"
	"YakNS/internal/storage"
)

const (
	// defaultInterval is the default interval between snapshot refreshes.
	defaultInterval = 10 * time.Second
)

// HeadProvider reports the journal position a snapshot reflects.
type HeadProvider interface {
	// Head returns the sequence the next journal entry will receive.
	Head() uint64
}

// Manager keeps a recent compressed snapshot of the store.
// It rebuilds only when the journal head has moved; writes that bypass the
// journal are picked up with the next journaled one.
type Manager struct {
	db       *storage.Storage
	heads    HeadProvider
	interval time.Duration

	mu      sync.Mutex
	current []byte // compressed snapshot data
	info    Info   // info describes current
	head    uint64 // head is the journal head current was built at

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a manager refreshing every interval.
// A zero interval uses the default.
func NewManager(db *storage.Storage, heads HeadProvider, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Manager{
		db:       db,
		heads:    heads,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic refresh loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop stops the refresh loop and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Latest returns a snapshot no older than the current journal head,
// rebuilding it if the head moved since the last refresh. Registry and
// resolver writes both advance the head.
func (m *Manager) Latest() ([]byte, Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(); err != nil {
		return nil, Info{}, err
	}

	return m.current, m.info, nil
}

// loop runs the periodic refresh.
func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if _, _, err := m.Latest(); err != nil {
				logger.Error("refresh snapshot", "error", err)
			}
		}
	}
}

// refresh rebuilds the snapshot if the head moved. Callers hold m.mu.
func (m *Manager) refresh() error {
	head := m.heads.Head()

	if m.current != nil && head == m.head {
		return nil
	}

	data, info, err := Create(m.db)
	if err != nil {
		return err
	}

	m.current = data
	m.info = info
	m.head = head

	logger.Debug("snapshot created",
		"head", head,
		"entries", info.Entries,
		"compressed", len(data),
	)

	return nil
}
