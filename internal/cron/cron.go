// Package cron implements the Cron Manager (C3): a persistent ledger of
// named scheduled tasks. Unlike a typical cron library wrapper, C3 does
// not drive execution itself — spec.md §4.3/§4.4 route firing through the
// Background Dispatcher (C4), which polls DueNow and submits due work to
// the Priority Scheduler (C2). C3's own job here is schedule acceptance,
// due-time computation, and the failure-counter/auto-disable ledger.
// Cron-expression parsing and next-occurrence computation are grounded on
// github.com/robfig/cron/v3's standard parser (the same dependency the
// teacher's earlier single-process scheduler used), kept for exactly
// that — parsing and Next() — rather than for its own background
// goroutine. Persistence follows the teacher's convention (seen
// throughout internal/store and internal/autopoiesis) of a single JSON
// file as the durable record for small, infrequently-written state,
// rather than a database table.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"kernelforge/internal/config"
	"kernelforge/internal/embedding"
	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
	"kernelforge/internal/store"

	robfigcron "github.com/robfig/cron/v3"
)

// Entry describes one scheduled task, carrying the full §3 Scheduled Task
// field set (name, description, schedule, args, result history, run
// count, timestamps, metadata).
type Entry struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Schedule     string            `json:"schedule"`
	Args         map[string]string `json:"args,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ConsecErrors int               `json:"consec_errors"`
	Disabled     bool              `json:"disabled"`
	RunCount     int               `json:"run_count"`
	LastRun      time.Time         `json:"last_run"`
	LastResult   string            `json:"last_result,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TaskFunc is the work a cron entry performs when C4 fires it.
type TaskFunc func(ctx context.Context) error

// Manager owns the on-disk entry ledger and the in-memory task-function
// table; it never executes a TaskFunc itself.
type Manager struct {
	mu            sync.Mutex
	parser        robfigcron.Parser
	entries       map[string]*Entry
	fns           map[string]TaskFunc
	persistPath   string
	maxConsecErrs int

	store    *store.Store
	embedder embedding.EmbeddingEngine
	llmc     *llm.Client
}

// New constructs a Manager, loading any previously persisted entries from
// cfg.PersistPath (a missing file is not an error — it means no tasks have
// been registered yet). st, emb, and llmc back the optional C1 semantic
// mirror and natural-language schedule fallback; any may be nil, in which
// case those features degrade to "cron-expression schedules only" and
// "no semantic mirror" respectively, rather than failing closed.
func New(cfg config.CronConfig, st *store.Store, emb embedding.EmbeddingEngine, llmc *llm.Client) (*Manager, error) {
	m := &Manager{
		parser:        robfigcron.NewParser(robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow),
		entries:       make(map[string]*Entry),
		fns:           make(map[string]TaskFunc),
		persistPath:   cfg.PersistPath,
		maxConsecErrs: cfg.MaxConsecErrs,
		store:         st,
		embedder:      emb,
		llmc:          llmc,
	}
	if m.maxConsecErrs <= 0 {
		m.maxConsecErrs = 5
	}
	if err := m.load(); err != nil {
		return nil, fmt.Errorf("cron: load persisted entries: %w", err)
	}
	return m, nil
}

// Create registers (or re-registers) a scheduled task under name. schedule
// is either a valid five-field cron expression or a natural-language
// phrase; natural-language phrases are resolved against a built-in table
// first, then an LLM fallback (temperature <= 0.1), per spec.md §4.3.
// Re-creating an existing name keeps its error/run history but updates
// its schedule, description, args, and TaskFunc.
func (m *Manager) Create(ctx context.Context, name, description, schedule string, fn TaskFunc, args, metadata map[string]string) (string, error) {
	cronExpr, err := m.resolveSchedule(ctx, schedule)
	if err != nil {
		return "", fmt.Errorf("cron: resolve schedule %q for %s: %w", schedule, name, err)
	}

	m.mu.Lock()
	entry, existed := m.entries[name]
	now := time.Now().UTC()
	if !existed {
		entry = &Entry{Name: name, CreatedAt: now}
		m.entries[name] = entry
	}
	entry.Description = description
	entry.Schedule = cronExpr
	entry.Args = args
	entry.Metadata = metadata
	entry.UpdatedAt = now
	m.fns[name] = fn
	persistErr := m.persistLocked()
	m.mu.Unlock()

	if persistErr != nil {
		return "", fmt.Errorf("cron: persist %s: %w", name, persistErr)
	}

	m.mirror(ctx, *entry)
	return name, nil
}

// resolveSchedule accepts a valid cron expression as-is; otherwise it
// tries the built-in natural-language table, then falls back to an LLM
// conversion that must itself pass cron-parse validation.
func (m *Manager) resolveSchedule(ctx context.Context, schedule string) (string, error) {
	if _, err := m.parser.Parse(schedule); err == nil {
		return schedule, nil
	}

	if expr, ok := naturalToCron(schedule); ok {
		return expr, nil
	}

	if m.llmc == nil {
		return "", fmt.Errorf("cron: %q is not a valid cron expression and no LLM is configured for natural-language fallback", schedule)
	}

	prompt := fmt.Sprintf(
		"Convert this natural-language schedule to a standard five-field cron expression "+
			"(minute hour day-of-month month day-of-week). Respond with ONLY the expression, no explanation.\n\nSchedule: %s",
		schedule)
	resp, err := m.llmc.Generate(ctx, llm.RolePlanner, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return "", fmt.Errorf("llm schedule conversion: %w", err)
	}
	candidate := strings.TrimSpace(resp)
	if _, err := m.parser.Parse(candidate); err != nil {
		return "", fmt.Errorf("llm produced an invalid cron expression %q: %w", candidate, err)
	}
	return candidate, nil
}

// naturalToCron matches a fast built-in table of common phrases before
// any LLM is consulted, per spec.md §4.3.
func naturalToCron(phrase string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	p = strings.TrimSuffix(p, ".")

	switch p {
	case "every minute":
		return "* * * * *", true
	case "every hour", "hourly":
		return "0 * * * *", true
	case "every day", "daily", "every day at midnight":
		return "0 0 * * *", true
	case "every week", "weekly":
		return "0 0 * * 0", true
	case "every sunday at noon":
		return "0 12 * * 0", true
	case "every weekday", "weekdays":
		return "0 9 * * 1-5", true
	case "every monday":
		return "0 0 * * 1", true
	}

	if m := everyNDaily.FindStringSubmatch(p); m != nil {
		hour, minute := m[1], "0"
		if m[2] != "" {
			minute = m[2]
		}
		return fmt.Sprintf("%s %s * * *", minute, hour), true
	}
	if m := everyWeekdayAt.FindStringSubmatch(p); m != nil {
		if dow, ok := weekdayNum[m[1]]; ok {
			hour, minute := m[2], "0"
			if m[3] != "" {
				minute = m[3]
			}
			return fmt.Sprintf("%s %s * * %d", minute, hour, dow), true
		}
	}
	return "", false
}

var (
	everyNDaily    = regexp.MustCompile(`^every day at (\d{1,2})(?::(\d{2}))?$`)
	everyWeekdayAt = regexp.MustCompile(`^every (sunday|monday|tuesday|wednesday|thursday|friday|saturday) at (\d{1,2})(?::(\d{2}))?$`)
	weekdayNum     = map[string]int{
		"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
		"thursday": 4, "friday": 5, "saturday": 6,
	}
)

// DueNow returns every enabled entry whose next occurrence after
// max(last_run, created_at) falls within window of at, per spec.md
// §4.3's due computation.
func (m *Manager) DueNow(at time.Time, window time.Duration) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Entry
	for _, e := range m.entries {
		if e.Disabled {
			continue
		}
		sched, err := m.parser.Parse(e.Schedule)
		if err != nil {
			continue
		}
		base := e.CreatedAt
		if e.LastRun.After(base) {
			base = e.LastRun
		}
		next := sched.Next(base)
		if !next.After(at.Add(window)) {
			due = append(due, *e)
		}
	}
	return due, nil
}

// Func returns the TaskFunc registered for name, so C4 can execute it
// through the Priority Scheduler without C3 ever calling it directly.
func (m *Manager) Func(name string) (TaskFunc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.fns[name]
	return fn, ok
}

// MarkRun records the outcome of one execution of name, per spec.md
// §4.3's failure semantics: 5 consecutive failures auto-disables the
// task; any success resets the counter.
func (m *Manager) MarkRun(name string, success bool, result, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("cron: unknown task %q", name)
	}

	log := logging.Get(logging.CategoryCron)
	entry.LastRun = time.Now().UTC()
	entry.RunCount++
	entry.LastResult = result

	if success {
		entry.ConsecErrors = 0
		entry.LastError = ""
		log.Debugw("cron task completed", "name", name)
	} else {
		entry.ConsecErrors++
		entry.LastError = errMsg
		log.Warnw("cron task failed", "name", name, "consecutive_errors", entry.ConsecErrors, "error", errMsg)
		if entry.ConsecErrors >= m.maxConsecErrs {
			entry.Disabled = true
			log.Errorw("cron task disabled after repeated failures", "name", name, "consecutive_errors", entry.ConsecErrors)
		}
	}
	entry.UpdatedAt = time.Now().UTC()
	return m.persistLocked()
}

// Enable clears a task's disabled flag and error count.
func (m *Manager) Enable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("cron: unknown task %q", name)
	}
	entry.Disabled = false
	entry.ConsecErrors = 0
	return m.persistLocked()
}

// Delete removes a scheduled task from the ledger.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return fmt.Errorf("cron: unknown task %q", name)
	}
	delete(m.entries, name)
	delete(m.fns, name)
	return m.persistLocked()
}

// List returns a snapshot of every registered entry, optionally
// restricted to enabled ones.
func (m *Manager) List(enabledOnly bool) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if enabledOnly && e.Disabled {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Search returns entries whose name, description, or metadata match
// query, preferring C1's semantic mirror when an embedder is configured
// and falling back to a substring scan otherwise. Every result is a live
// local Entry, so no further cron-evaluation re-validation is needed
// before reporting it.
func (m *Manager) Search(ctx context.Context, query string, filters map[string]string) ([]Entry, error) {
	names := m.searchNamesViaMirror(ctx, query)
	if names == nil {
		names = m.searchNamesLocally(query)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, name := range names {
		e, ok := m.entries[name]
		if !ok || !matchesFilters(e, filters) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// QueryNatural answers a free-form "what's due / what's scheduled around
// X" question: it narrows candidates via Search, then re-validates the
// result set by exact cron evaluation against at, per spec.md §4.3.
func (m *Manager) QueryNatural(ctx context.Context, text string, at time.Time) ([]Entry, error) {
	candidates, err := m.Search(ctx, text, nil)
	if err != nil {
		return nil, err
	}
	const defaultWindow = 24 * time.Hour

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, c := range candidates {
		sched, err := m.parser.Parse(c.Schedule)
		if err != nil {
			continue
		}
		base := c.CreatedAt
		if c.LastRun.After(base) {
			base = c.LastRun
		}
		if !sched.Next(base).After(at.Add(defaultWindow)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matchesFilters(e *Entry, filters map[string]string) bool {
	for k, v := range filters {
		switch k {
		case "enabled":
			if (v == "true") == e.Disabled {
				return false
			}
		default:
			if e.Metadata[k] != v {
				return false
			}
		}
	}
	return true
}

func (m *Manager) searchNamesLocally(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name, e := range m.entries {
		if q == "" || strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(e.Description), q) {
			names = append(names, name)
		}
	}
	return names
}

// searchNamesViaMirror consults C1's Plan-artifact mirror of every
// created task; it returns nil (not an empty slice) when the mirror is
// unavailable or uninformative, signalling the caller to fall back.
func (m *Manager) searchNamesViaMirror(ctx context.Context, query string) []string {
	if m.store == nil || m.embedder == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil
	}
	matches, err := m.store.FindSimilar(ctx, store.KindPlan, vec, 10)
	if err != nil || len(matches) == 0 {
		return nil
	}
	var names []string
	for _, match := range matches {
		if name := match.Artifact.Metadata["cron_name"]; name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// mirror persists a Plan artifact in C1 describing entry's deconstructed
// schedule — frequency class, time-of-day, weekday names, and the next
// two run times; entries carry no group, so none is recorded. Failure is
// logged and swallowed: the mirror is a convenience index, not the
// source of truth.
func (m *Manager) mirror(ctx context.Context, e Entry) {
	if m.store == nil {
		return
	}
	log := logging.Get(logging.CategoryCron)

	desc := deconstructSchedule(e)
	content := fmt.Sprintf("cron task %q: %s\nschedule: %s\n%s", e.Name, e.Description, e.Schedule, desc.summary)

	var vec []float32
	if m.embedder != nil {
		if v, err := m.embedder.Embed(ctx, content); err == nil {
			vec = v
		} else {
			log.Debugw("cron mirror: embed failed, storing without a vector", "name", e.Name, "error", err)
		}
	}

	meta := map[string]string{
		"cron_name":       e.Name,
		"frequency_class": desc.frequencyClass,
		"time_of_day":     desc.timeOfDay,
		"weekdays":        strings.Join(desc.weekdays, ","),
		"next_run_1":      desc.nextRuns[0].Format(time.RFC3339),
		"next_run_2":      desc.nextRuns[1].Format(time.RFC3339),
	}

	if _, err := m.store.Store(ctx, store.Artifact{
		Kind:     store.KindPlan,
		Content:  content,
		Tags:     []string{"cron", e.Name},
		Metadata: meta,
		Embedding: vec,
	}); err != nil {
		log.Warnw("cron mirror: store failed", "name", e.Name, "error", err)
	}
}

type scheduleBreakdown struct {
	frequencyClass string
	timeOfDay      string
	weekdays       []string
	nextRuns       [2]time.Time
	summary        string
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// deconstructSchedule turns a five-field cron expression into the
// human-legible breakdown the C1 mirror stores: how often it fires, what
// time of day, which weekdays, and its next two occurrences.
func deconstructSchedule(e Entry) scheduleBreakdown {
	fields := strings.Fields(e.Schedule)
	var minute, hour, dow string
	if len(fields) == 5 {
		minute, hour, dow = fields[0], fields[1], fields[4]
	}

	class := "custom"
	switch {
	case minute == "*" && hour == "*":
		class = "minutely"
	case hour == "*":
		class = "hourly"
	case dow == "*":
		class = "daily"
	default:
		class = "weekly"
	}

	timeOfDay := "n/a"
	if hour != "" && hour != "*" && minute != "" && minute != "*" {
		timeOfDay = fmt.Sprintf("%s:%s", hour, minute)
	}

	var weekdays []string
	if dow != "" && dow != "*" {
		for _, part := range strings.Split(dow, ",") {
			if n, err := parseWeekday(part); err == nil {
				weekdays = append(weekdays, weekdayNames[n])
			}
		}
	}

	var next [2]time.Time
	parser := robfigcron.NewParser(robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow)
	if sched, err := parser.Parse(e.Schedule); err == nil {
		next[0] = sched.Next(time.Now().UTC())
		next[1] = sched.Next(next[0])
	}

	return scheduleBreakdown{
		frequencyClass: class,
		timeOfDay:      timeOfDay,
		weekdays:       weekdays,
		nextRuns:       next,
		summary: fmt.Sprintf("frequency=%s time_of_day=%s weekdays=%v next=[%s, %s]",
			class, timeOfDay, weekdays, next[0].Format(time.RFC3339), next[1].Format(time.RFC3339)),
	}
}

func parseWeekday(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("cron: invalid weekday %q", s)
	}
	return n, nil
}

func (m *Manager) persistLocked() error {
	if m.persistPath == "" {
		return nil
	}
	list := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, *e)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.persistPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.persistPath, data, 0o644)
}

func (m *Manager) load() error {
	if m.persistPath == "" {
		return nil
	}
	data, err := os.ReadFile(m.persistPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for i := range list {
		e := list[i]
		m.entries[e.Name] = &e
	}
	return nil
}
