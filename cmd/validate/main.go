// Command validate performs integrity checks over a service data directory:
// the two height history documents and the surge state document the poller
// maintains. It verifies the documents decode, history caps and chronology
// hold, and the recorded surge state is coherent with the Pilote Norden
// history.
//
// Usage:
//
//	go run ./cmd/validate -data-dir ./data
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
)

// Document names and bounds as the service writes them. The validator states
// them independently so a drift in either side surfaces as a failure.
const (
	sanFernandoDoc = "alturas_sf"
	piloteDoc      = "alturas_pilote"
	surgeDoc       = "sudestada"

	recordsKey = "registros"

	sanFernandoCap = 72
	piloteCap      = 100

	surgeActivationMeters = 2.0

	// Plausible water levels for the Río de la Plata estuary, in meters over
	// the local datum. Anything outside is a parse or ingestion bug.
	minPlausibleMeters = -2.0
	maxPlausibleMeters = 6.0
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "service data directory to validate")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir string) int {
	fmt.Println("=== River Data Integrity Validation ===")
	fmt.Println()

	sfRecords, sfFound, err := loadHistory(dataDir, sanFernandoDoc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load san fernando history: %v\n", err)
		return 1
	}

	piloteRecords, piloteFound, err := loadHistory(dataDir, piloteDoc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load pilote norden history: %v\n", err)
		return 1
	}

	surge, surgeFound, err := loadDoc[domain.SurgeEvent](dataDir, surgeDoc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load surge state: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHistory("Phase 1: San Fernando History", sfRecords, sanFernandoCap),
		validateHistory("Phase 2: Pilote Norden History", piloteRecords, piloteCap),
		validateSurgeCoherence(surge, surgeFound),
		validateCrossDocument(surge, piloteRecords),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Documents: %d San Fernando records (%s), %d Pilote Norden records (%s), surge %s\n",
		len(sfRecords), presence(sfFound), len(piloteRecords), presence(piloteFound), surgeState(surge, surgeFound))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadDoc reads one JSON document from the data directory. An absent file is
// not an error: a fresh service has not written every document yet.
func loadDoc[T any](dir, key string) (T, bool, error) {
	var doc T
	data, err := os.ReadFile(filepath.Join(dir, key+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, false, err
	}
	return doc, true, nil
}

func loadHistory(dir, key string) ([]domain.HeightSample, bool, error) {
	doc, found, err := loadDoc[map[string][]domain.HeightSample](dir, key)
	if err != nil || !found {
		return nil, found, err
	}
	return doc[recordsKey], true, nil
}

func presence(found bool) string {
	if found {
		return "present"
	}
	return "absent"
}

func surgeState(surge domain.SurgeEvent, found bool) string {
	switch {
	case !found:
		return "absent"
	case surge.Active:
		return "active"
	}
	return "inactive"
}

// ── Phases 1 and 2: History Integrity ──
// A history must stay under its rotation cap, hold finite plausible heights,
// and record samples in chronological order.

func validateHistory(name string, records []domain.HeightSample, maxRecords int) *phase {
	p := &phase{name: name}

	if len(records) > maxRecords {
		p.errorf("record count %d exceeds rotation cap %d", len(records), maxRecords)
	}

	// Small slack so a validator racing the poller does not flag the newest
	// sample as future-dated.
	horizon := time.Now().Add(5 * time.Minute).Unix()

	for i, r := range records {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			p.errorf("record %d: height is not a finite number", i)
			continue
		}
		if r.Value < minPlausibleMeters || r.Value > maxPlausibleMeters {
			p.errorf("record %d: height %.2f m outside plausible range [%.1f, %.1f]",
				i, r.Value, minPlausibleMeters, maxPlausibleMeters)
		}
		if r.RecordedAt == 0 {
			p.errorf("record %d: missing recorded-at timestamp", i)
			continue
		}
		if r.RecordedAt > horizon {
			p.errorf("record %d: recorded-at %d is in the future", i, r.RecordedAt)
		}
		if i > 0 && r.RecordedAt < records[i-1].RecordedAt {
			p.errorf("record %d: recorded-at goes backwards (%d after %d)",
				i, r.RecordedAt, records[i-1].RecordedAt)
		}
	}
	return p
}

// ── Phase 3: Surge State Coherence ──
// An active surge must carry a peak at or above the activation threshold and
// a consistent start/peak chronology. A retired surge keeps its peak data.

func validateSurgeCoherence(surge domain.SurgeEvent, found bool) *phase {
	p := &phase{name: "Phase 3: Surge State Coherence"}
	if !found {
		return p
	}

	if surge.Active {
		if surge.PeakHeightMeters < surgeActivationMeters {
			p.errorf("active surge peak %.2f m is below the %.1f m activation threshold",
				surge.PeakHeightMeters, surgeActivationMeters)
		}
		if surge.PeakDetectedAtUnix == 0 {
			p.errorf("active surge is missing its peak detection timestamp")
		}
		if surge.StartedAtUnix == 0 {
			p.errorf("active surge is missing its start timestamp")
		}
	}

	if surge.StartedAtUnix != 0 && surge.PeakDetectedAtUnix != 0 &&
		surge.StartedAtUnix > surge.PeakDetectedAtUnix {
		p.errorf("surge started at %d, after its peak at %d",
			surge.StartedAtUnix, surge.PeakDetectedAtUnix)
	}
	return p
}

// ── Phase 4: Cross-Document Consistency ──
// While a surge is active its recorded peak is a running maximum, so no
// Pilote Norden sample taken since the surge started may exceed it.

func validateCrossDocument(surge domain.SurgeEvent, pilote []domain.HeightSample) *phase {
	p := &phase{name: "Phase 4: Cross-Document Consistency"}
	if !surge.Active {
		return p
	}

	const epsilon = 0.001
	for i, r := range pilote {
		if r.RecordedAt < surge.StartedAtUnix {
			continue
		}
		if r.Value > surge.PeakHeightMeters+epsilon {
			p.errorf("pilote record %d: height %.2f m exceeds the recorded surge peak %.2f m",
				i, r.Value, surge.PeakHeightMeters)
		}
	}
	return p
}
