package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TrailFile represents an evaluation trail file on disk.
type TrailFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListTrails finds .jsonl evaluation trail files in dir.
func ListTrails(dir string) ([]TrailFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trail directory: %w", err)
	}

	var files []TrailFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), "-evaluation.jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, TrailFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// ReadEvents parses all events from an evaluation trail file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trail file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	// Increase buffer for large lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // skip malformed lines
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trail file: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable evaluation timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " EVALUATION TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventEvaluationStart:
			sessionID, _ := ev.Data["session_id"].(string) //nolint:errcheck
			fileType, _ := ev.Data["file_type"].(string)   //nolint:errcheck
			bytes := jsonNumber(ev.Data["file_bytes"])
			fmt.Fprintf(w, "[%s] 🚀 Evaluation started  session=%s  file=%s (%d bytes)\n", ts, sessionID, fileType, bytes)

		case EventAgentStart:
			agent, _ := ev.Data["agent"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ▶  Agent %s\n", ts, agent)

		case EventAgentComplete:
			agent, _ := ev.Data["agent"].(string)   //nolint:errcheck
			status, _ := ev.Data["status"].(string) //nolint:errcheck
			secs := jsonFloat(ev.Data["seconds"])
			icon := "✓"
			if status != "success" {
				icon = "✗"
			}
			fmt.Fprintf(w, "[%s] %s  Agent %s [%s] (%.1fs)\n", ts, icon, agent, status, secs)

		case EventCostResolved:
			agent, _ := ev.Data["agent"].(string) //nolint:errcheck
			usd := jsonFloat(ev.Data["cost_usd"])
			fmt.Fprintf(w, "[%s]    $ %s cost $%.6f\n", ts, agent, usd)

		case EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, msg)

		case EventEvaluationEnd:
			marks := jsonNumber(ev.Data["final_marks"])
			complete, _ := ev.Data["complete"].(bool) //nolint:errcheck
			failed := jsonNumber(ev.Data["failed_agents"])
			dur := jsonNumber(ev.Data["duration_ms"])
			icon := "🏁"
			if !complete {
				icon = "⚠️"
			}
			fmt.Fprintf(w, "[%s] %s Evaluation finished  marks=%d/100  failed_agents=%d  (%dms)\n",
				ts, icon, marks, failed, dur)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from a JSON-decoded interface{} (float64 or json.Number).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}

func jsonFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64() //nolint:errcheck
		return f
	}
	return 0
}
