// Package storage keeps flight logs on disk: one directory per run holding
// metadata.json and a ticks.csv with one row per control tick.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/sim"
)

// ErrMalformedLog indicates a ticks.csv row that cannot be parsed.
var ErrMalformedLog = errors.New("storage: malformed flight log")

const (
	metadataFile = "metadata.json"
	ticksFile    = "ticks.csv"
)

// Header is the ticks.csv column layout.
var Header = []string{
	"tick", "time", "mode",
	"cmd_ax", "cmd_ay", "cmd_az", "cmd_heading", "cmd_mode",
	"qw", "qx", "qy", "qz",
	"wx", "wy", "wz",
	"ax", "ay", "az",
	"f0", "f1", "f2", "f3",
	"saturated",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Source    string             `json:"source"` // local or hil
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Ticks     int                `json:"ticks"`
	Timeouts  int                `json:"timeouts"`
	FinalMode dynamo.Mode        `json:"final_mode"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a run and returns its ID. ID, Timestamp, Ticks, Timeouts,
// FinalMode and Metrics in meta are filled from result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Scenario, now.UnixNano())
	meta.Timestamp = now
	meta.Ticks = len(result.Records)
	meta.Timeouts = result.Timeouts
	meta.FinalMode = result.Final().Mode
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTicks(filepath.Join(runDir, ticksFile), result.Records); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeTicks(path string, records []dynamo.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func row(rec dynamo.Record) []string {
	st, cmd := rec.State, rec.Command
	r := make([]string, 0, len(Header))
	r = append(r, strconv.Itoa(rec.Tick), formatFloat(rec.Time), st.Mode.String())
	r = appendFloats(r, cmd.Accel.X, cmd.Accel.Y, cmd.Accel.Z, cmd.Heading)
	r = append(r, cmd.Mode.String())
	r = appendFloats(r, st.Orientation.W, st.Orientation.X, st.Orientation.Y, st.Orientation.Z)
	r = appendFloats(r, st.AngularVel.X, st.AngularVel.Y, st.AngularVel.Z)
	r = appendFloats(r, st.Accel.X, st.Accel.Y, st.Accel.Z)
	r = appendFloats(r, st.Forces[:]...)
	return append(r, strconv.FormatBool(rec.Saturated))
}

func appendFloats(r []string, vals ...float64) []string {
	for _, v := range vals {
		r = append(r, formatFloat(v))
	}
	return r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTicks reads back the per-tick records of a run.
func (s *Store) LoadTicks(runID string) ([]dynamo.Record, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, ticksFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLog, err)
	}
	if len(rows) < 2 {
		return []dynamo.Record{}, nil
	}

	records := make([]dynamo.Record, 0, len(rows)-1)
	for i, r := range rows[1:] {
		rec, err := parseRow(r)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrMalformedLog, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(r []string) (dynamo.Record, error) {
	var rec dynamo.Record
	var err error

	if rec.Tick, err = strconv.Atoi(r[0]); err != nil {
		return rec, err
	}
	if rec.State.Mode, err = dynamo.ParseMode(r[2]); err != nil {
		return rec, err
	}
	if rec.Command.Mode, err = dynamo.ParseMode(r[7]); err != nil {
		return rec, err
	}
	if rec.Saturated, err = strconv.ParseBool(r[22]); err != nil {
		return rec, err
	}

	v := make([]float64, len(r))
	for _, i := range []int{1, 3, 4, 5, 6, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21} {
		if v[i], err = strconv.ParseFloat(r[i], 64); err != nil {
			return rec, fmt.Errorf("column %s: %w", Header[i], err)
		}
	}

	rec.Time = v[1]
	rec.Command.Accel = dynamo.Vec3{X: v[3], Y: v[4], Z: v[5]}
	rec.Command.Heading = v[6]
	rec.State.Orientation = dynamo.Quat{W: v[8], X: v[9], Y: v[10], Z: v[11]}
	rec.State.AngularVel = dynamo.Vec3{X: v[12], Y: v[13], Z: v[14]}
	rec.State.Accel = dynamo.Vec3{X: v[15], Y: v[16], Z: v[17]}
	rec.State.Forces = dynamo.Forces{v[18], v[19], v[20], v[21]}
	return rec, nil
}
