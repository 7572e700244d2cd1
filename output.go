package epinet

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// EventRecord describes one applied Gillespie event, for recorders that
// want a full transition trace rather than just endpoint summaries.
type EventRecord struct {
	Step    int
	Clock   float64
	Kind    string // "move" or "infection"
	AgentID int
	State   int32
}

// Recorder receives one EventRecord per applied event. Grounded on the
// teacher's DataLogger interface (logger.go/csv_logger.go): a narrow
// write-one-record-at-a-time contract that in-memory and file-backed
// implementations both satisfy, with an explicit Close for flushing.
type Recorder interface {
	RecordEvent(EventRecord) error
	Close() error
}

// MemoryRecorder accumulates every event in a slice, for tests and for
// short runs where the full trace fits comfortably in memory.
type MemoryRecorder struct {
	Events []EventRecord
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// RecordEvent appends rec to the in-memory log.
func (m *MemoryRecorder) RecordEvent(rec EventRecord) error {
	m.Events = append(m.Events, rec)
	return nil
}

// Close is a no-op for MemoryRecorder.
func (m *MemoryRecorder) Close() error {
	return nil
}

// CSVRecorder streams events to a CSV file, one row per event, mirroring
// the teacher's csv_logger.go output shape.
type CSVRecorder struct {
	f *os.File
	w *csv.Writer
}

// NewCSVRecorder creates (or truncates) path and writes the header row.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating CSV recorder output %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "clock", "kind", "agent_id", "state"}); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "writing CSV header to %s", path)
	}
	return &CSVRecorder{f: f, w: w}, nil
}

// RecordEvent writes one CSV row for rec.
func (c *CSVRecorder) RecordEvent(rec EventRecord) error {
	row := []string{
		strconv.Itoa(rec.Step),
		strconv.FormatFloat(rec.Clock, 'g', -1, 64),
		rec.Kind,
		strconv.Itoa(rec.AgentID),
		strconv.Itoa(int(rec.State)),
	}
	if err := c.w.Write(row); err != nil {
		return errors.Wrap(err, "writing CSV row")
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file.
func (c *CSVRecorder) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return errors.Wrap(err, "flushing CSV writer")
	}
	return c.f.Close()
}

// CompartmentCounts is one fixed-width time-series row from spec.md
// §2 component 8 / §6: the simulated clock at emission and the current
// count in every disease state 0..2I.
type CompartmentCounts struct {
	Clock  float64
	Counts []int
}

// Snapshot is a full per-agent disease-state vector at one instant,
// used both for the periodic every-tenth-tick snapshot and the final
// state vector emitted on termination (spec.md §6).
type Snapshot struct {
	Clock  float64
	States []int32
}

// SeriesRecorder receives the engine's nts-cadence aggregate output,
// distinct from Recorder's per-event trace: spec.md §6 requires a
// compartment-count time series, periodic full snapshots, and a final
// per-agent state vector, none of which are per-event records.
type SeriesRecorder interface {
	RecordCounts(CompartmentCounts) error
	RecordSnapshot(Snapshot) error
	RecordFinal(Snapshot) error
	Close() error
}

// MemorySeriesRecorder accumulates every emission in memory, for tests
// and short runs.
type MemorySeriesRecorder struct {
	Counts    []CompartmentCounts
	Snapshots []Snapshot
	Final     Snapshot
}

// NewMemorySeriesRecorder returns an empty in-memory series recorder.
func NewMemorySeriesRecorder() *MemorySeriesRecorder {
	return &MemorySeriesRecorder{}
}

func (m *MemorySeriesRecorder) RecordCounts(c CompartmentCounts) error {
	m.Counts = append(m.Counts, c)
	return nil
}

func (m *MemorySeriesRecorder) RecordSnapshot(s Snapshot) error {
	m.Snapshots = append(m.Snapshots, s)
	return nil
}

func (m *MemorySeriesRecorder) RecordFinal(s Snapshot) error {
	m.Final = s
	return nil
}

func (m *MemorySeriesRecorder) Close() error {
	return nil
}

// CSVSeriesRecorder streams compartment-count rows and per-agent
// snapshots to two separate CSV files, mirroring CSVRecorder's
// open-once/write-many shape; the final state vector is written as a
// single row to its own file only once, on Close-adjacent RecordFinal.
type CSVSeriesRecorder struct {
	countsFile *os.File
	countsW    *csv.Writer
	snapFile   *os.File
	snapW      *csv.Writer
	finalPath  string
}

// NewCSVSeriesRecorder creates (or truncates) countsPath and
// snapshotPath, writing header rows sized to numStates disease states.
// finalPath is created lazily by RecordFinal.
func NewCSVSeriesRecorder(countsPath, snapshotPath, finalPath string, numStates, popSize int) (*CSVSeriesRecorder, error) {
	countsFile, err := os.Create(countsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "creating compartment-count output %s", countsPath)
	}
	countsW := csv.NewWriter(countsFile)
	countsHeader := make([]string, numStates+1)
	countsHeader[0] = "t"
	for s := 0; s < numStates; s++ {
		countsHeader[s+1] = "count_" + strconv.Itoa(s)
	}
	if err := countsW.Write(countsHeader); err != nil {
		countsFile.Close()
		return nil, errors.Wrapf(err, "writing header to %s", countsPath)
	}

	snapFile, err := os.Create(snapshotPath)
	if err != nil {
		countsFile.Close()
		return nil, errors.Wrapf(err, "creating snapshot output %s", snapshotPath)
	}
	snapW := csv.NewWriter(snapFile)
	snapHeader := make([]string, popSize+1)
	snapHeader[0] = "t"
	for a := 0; a < popSize; a++ {
		snapHeader[a+1] = "agent_" + strconv.Itoa(a)
	}
	if err := snapW.Write(snapHeader); err != nil {
		countsFile.Close()
		snapFile.Close()
		return nil, errors.Wrapf(err, "writing header to %s", snapshotPath)
	}

	return &CSVSeriesRecorder{
		countsFile: countsFile,
		countsW:    countsW,
		snapFile:   snapFile,
		snapW:      snapW,
		finalPath:  finalPath,
	}, nil
}

// RecordCounts writes one compartment-count row.
func (s *CSVSeriesRecorder) RecordCounts(c CompartmentCounts) error {
	row := make([]string, 0, len(c.Counts)+1)
	row = append(row, strconv.FormatFloat(c.Clock, 'g', -1, 64))
	for _, n := range c.Counts {
		row = append(row, strconv.Itoa(n))
	}
	if err := s.countsW.Write(row); err != nil {
		return errors.Wrap(err, "writing compartment-count row")
	}
	return nil
}

// RecordSnapshot writes one full per-agent state row.
func (s *CSVSeriesRecorder) RecordSnapshot(snap Snapshot) error {
	row := make([]string, 0, len(snap.States)+1)
	row = append(row, strconv.FormatFloat(snap.Clock, 'g', -1, 64))
	for _, st := range snap.States {
		row = append(row, strconv.Itoa(int(st)))
	}
	if err := s.snapW.Write(row); err != nil {
		return errors.Wrap(err, "writing snapshot row")
	}
	return nil
}

// RecordFinal writes the per-agent final state vector to its own file.
func (s *CSVSeriesRecorder) RecordFinal(snap Snapshot) error {
	f, err := os.Create(s.finalPath)
	if err != nil {
		return errors.Wrapf(err, "creating final-state output %s", s.finalPath)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	row := make([]string, len(snap.States))
	for i, st := range snap.States {
		row[i] = strconv.Itoa(int(st))
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, "writing final-state row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flushing final-state writer")
	}
	return nil
}

// Close flushes and closes the counts and snapshot files.
func (s *CSVSeriesRecorder) Close() error {
	s.countsW.Flush()
	if err := s.countsW.Error(); err != nil {
		s.countsFile.Close()
		s.snapFile.Close()
		return errors.Wrap(err, "flushing compartment-count writer")
	}
	s.snapW.Flush()
	if err := s.snapW.Error(); err != nil {
		s.countsFile.Close()
		s.snapFile.Close()
		return errors.Wrap(err, "flushing snapshot writer")
	}
	if err := s.countsFile.Close(); err != nil {
		s.snapFile.Close()
		return errors.Wrap(err, "closing compartment-count file")
	}
	return s.snapFile.Close()
}
