package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls how error logs are aggregated before being shipped.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval, 30s when zero
	CountThreshold int           // max distinct entries before an early flush, 100 when zero
	Topic          string
	Publisher      Publisher
	Environment    string // copied onto every entry
	PublishTimeout time.Duration
}

// AggregatedLogEntry is one distinct error with its repeat count inside a flush window.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Env       string                 `json:"env,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector groups identical error logs and publishes them in batches from a
// single sender goroutine, so a slow broker never blocks the logging call site.
type LogCollector struct {
	config  CollectionConfig
	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry
	closed  bool
	batches chan []AggregatedLogEntry
	stop    chan struct{}
	once    sync.Once
	ticker  sync.WaitGroup
	sender  sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	c := &LogCollector{
		config:  cfg,
		entries: make(map[uint64]*AggregatedLogEntry),
		batches: make(chan []AggregatedLogEntry, 4),
		stop:    make(chan struct{}),
	}
	c.ticker.Add(1)
	go c.tick()
	c.sender.Add(1)
	go c.send()
	return c
}

// AddLog records one occurrence. Entries with the same level, message, caller and
// fields collapse into one with an incremented count.
func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := fingerprint(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Env:       c.config.Environment,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(c.entries) >= c.config.CountThreshold {
		c.enqueueLocked(c.drainLocked())
	}
}

// Close publishes pending entries and waits for the sender to finish. Logs added
// after Close are discarded.
func (c *LogCollector) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.ticker.Wait()

		c.mu.Lock()
		c.closed = true
		final := c.drainLocked()
		c.mu.Unlock()

		if len(final) > 0 {
			c.batches <- final
		}
		close(c.batches)
		c.sender.Wait()
	})
}

func (c *LogCollector) tick() {
	defer c.ticker.Done()
	t := time.NewTicker(c.config.TimeInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.mu.Lock()
			c.enqueueLocked(c.drainLocked())
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func (c *LogCollector) send() {
	defer c.sender.Done()
	for batch := range c.batches {
		if c.config.Publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.config.PublishTimeout)
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "failed to publish %d aggregated logs: %v\n", len(batch), err)
		}
		cancel()
	}
}

// enqueueLocked hands a batch to the sender without blocking. When the queue is
// full the batch is dropped.
func (c *LogCollector) enqueueLocked(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.closed {
		return
	}
	select {
	case c.batches <- batch:
	default:
		fmt.Fprintf(os.Stderr, "log collector queue full, dropped %d entries\n", len(batch))
	}
}

// drainLocked returns the pending entries, most frequent first, and resets the window.
func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

func fingerprint(level, message string, fields map[string]interface{}, caller string) uint64 {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(0)
	b.WriteString(caller)
	b.WriteByte(0)
	b.WriteString(message)
	for _, k := range keys {
		fmt.Fprintf(&b, "\x00%s=%v", k, fields[k])
	}
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return h.Sum64()
}
