package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/quadsim/internal/dynamo"
)

type ExportTick struct {
	Tick        int           `json:"tick"`
	Time        float64       `json:"time"`
	Mode        dynamo.Mode   `json:"mode"`
	Orientation [4]float64    `json:"orientation"`
	AngularVel  [3]float64    `json:"angular_vel"`
	Accel       [3]float64    `json:"accel"`
	Forces      dynamo.Forces `json:"forces"`
	Command     ExportCommand `json:"command"`
	Saturated   bool          `json:"saturated"`
}

type ExportCommand struct {
	Accel   [3]float64  `json:"accel"`
	Heading float64     `json:"heading"`
	Mode    dynamo.Mode `json:"mode"`
}

type ExportData struct {
	Run   RunMetadata  `json:"run"`
	Ticks []ExportTick `json:"ticks"`
}

// WriteJSON writes a run as one indented JSON document.
func WriteJSON(w io.Writer, meta RunMetadata, records []dynamo.Record) error {
	data := ExportData{
		Run:   meta,
		Ticks: make([]ExportTick, len(records)),
	}
	for i, rec := range records {
		st := rec.State
		data.Ticks[i] = ExportTick{
			Tick:        rec.Tick,
			Time:        rec.Time,
			Mode:        st.Mode,
			Orientation: st.Orientation.Array(),
			AngularVel:  st.AngularVel.Array(),
			Accel:       st.Accel.Array(),
			Forces:      st.Forces,
			Command: ExportCommand{
				Accel:   rec.Command.Accel.Array(),
				Heading: rec.Command.Heading,
				Mode:    rec.Command.Mode,
			},
			Saturated: rec.Saturated,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSON writes a stored run to path, or to stdout when path is empty
// or "-".
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadTicks(runID)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, *meta, records)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, *meta, records)
}
