package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/metrics/counter"
)

const (
	// pendingSweepInterval controls how often expired pending connections are cleaned up
	pendingSweepInterval = 10 * time.Minute
	// counterFlushInterval controls how often in-memory/Redis counters are persisted to MySQL
	counterFlushInterval = 15 * time.Second
)

// Manager coordinates the job queue and periodic maintenance work
type Manager struct {
	queue   *Queue
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	managerInstance *Manager
	managerOnce     sync.Once
)

// GetManager returns the singleton job queue manager
func GetManager() *Manager {
	managerOnce.Do(func() {
		managerInstance = &Manager{
			queue:  NewQueue(3),
			stopCh: make(chan struct{}),
		}
	})
	return managerInstance
}

// Start starts the workers and background tickers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	m.queue.Start()

	m.wg.Add(1)
	go m.pendingSweepWorker()

	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue] Manager started")
}

// Stop stops the workers and tickers, flushing counters one last time
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	close(m.stopCh)
	m.wg.Wait()
	m.queue.Stop()

	// Final flush so refresh counts are not lost on shutdown
	if err := counter.FlushAll(); err != nil {
		log.Errorf("[JobQueue] Final counter flush failed: %v", err)
	}

	log.Info("[JobQueue] Manager stopped")
}

// Queue returns the underlying job queue for enqueueing work
func (m *Manager) Queue() *Queue {
	return m.queue
}

// EnqueueReconcile enqueues an organization-wide reconcile run
func (m *Manager) EnqueueReconcile(orgID uint, trigger string) (*Job, error) {
	payload := ReconcileJobPayload{
		OrganizationID: orgID,
		Trigger:        trigger,
	}
	return m.queue.EnqueueJob(JobTypeConnectionReconcile, payload.ToMap())
}

// EnqueueDetailRefresh enqueues a location detail refresh for an organization
func (m *Manager) EnqueueDetailRefresh(orgID uint) (*Job, error) {
	payload := DetailRefreshJobPayload{
		OrganizationID: orgID,
	}
	return m.queue.EnqueueJob(JobTypeLocationDetailRefresh, payload.ToMap())
}

// pendingSweepWorker periodically enqueues a sweep of expired pending connections
func (m *Manager) pendingSweepWorker() {
	defer m.wg.Done()

	ticker := time.NewTicker(pendingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.queue.EnqueueJob(JobTypePendingSweep, nil); err != nil {
				log.Errorf("[JobQueue] Failed to enqueue pending sweep: %v", err)
			}
		}
	}
}

// counterFlushWorker periodically persists refresh/sync counters to the database
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()

	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[JobQueue] Counter flush failed: %v", err)
			}
		}
	}
}
